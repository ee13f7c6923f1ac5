package session

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Factory builds and starts the provider for a session ID.
type Factory func(sessionID string) *Provider

// Registry keeps one live Provider per session ID. Evicted or released providers are closed.
type Registry struct {
	mu      sync.Mutex
	cache   *lru.Cache[string, *Provider]
	factory Factory
}

// NewRegistry builds a registry holding at most size providers.
func NewRegistry(size int, factory Factory) (*Registry, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.NewWithEvict[string, *Provider](size, func(_ string, p *Provider) {
		p.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("create provider cache: %w", err)
	}
	return &Registry{cache: cache, factory: factory}, nil
}

// Acquire returns the provider for sessionID, creating it on first use.
func (r *Registry) Acquire(sessionID string) *Provider {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.cache.Get(sessionID); ok {
		return p
	}
	p := r.factory(sessionID)
	r.cache.Add(sessionID, p)
	return p
}

// Lookup returns the provider for sessionID without creating one.
func (r *Registry) Lookup(sessionID string) (*Provider, bool) {
	return r.cache.Peek(sessionID)
}

// Release closes and forgets the provider for sessionID.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(sessionID)
}

// Len reports the number of live providers.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close tears down every provider.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
