package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/domain"
)

const defaultLookupTimeout = 5 * time.Second

// Provider owns the State of one authenticated session and keeps it in step with
// the auth service. It is the only writer of that State.
//
// Every refresh takes a sequence number. A finished resolution is applied only when
// no newer refresh has started since, so the most recently requested resolution
// wins regardless of completion order. Results finishing after Close are dropped.
type Provider struct {
	auth     AuthService
	resolver IdentityResolver
	logger   *zap.Logger
	recorder Recorder
	timeout  time.Duration

	mu      sync.RWMutex
	state   State
	seq     uint64
	closed  bool
	changed chan struct{}

	obsMu     sync.Mutex
	observers map[uint64]func(State)
	nextObs   uint64
	notifyMu  sync.Mutex

	baseCtx     context.Context
	unsubscribe func()
	startOnce   sync.Once
	closeOnce   sync.Once
}

// Option customizes a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Provider) { p.recorder = r }
}

// WithLookupTimeout bounds a single resolution.
func WithLookupTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewProvider builds an uninitialized provider. Call Start to subscribe and resolve.
func NewProvider(auth AuthService, resolver IdentityResolver, opts ...Option) *Provider {
	p := &Provider{
		auth:      auth,
		resolver:  resolver,
		logger:    zap.NewNop(),
		timeout:   defaultLookupTimeout,
		changed:   make(chan struct{}),
		observers: make(map[uint64]func(State)),
		baseCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start subscribes to auth changes and kicks off the first resolution without waiting for it.
func (p *Provider) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.baseCtx = context.WithoutCancel(ctx)
		p.mu.Unlock()

		unsubscribe := p.auth.OnChange(p.onAuthChange)

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			unsubscribe()
			return
		}
		p.unsubscribe = unsubscribe
		p.mu.Unlock()

		p.startRefresh(p.baseCtx)
	})
}

// State returns a snapshot of the current state.
func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := p.state
	st.CurrentUser = cloneRecord(st.CurrentUser)
	return st
}

// CurrentUser returns the cached staff record, or nil. It never blocks on I/O.
func (p *Provider) CurrentUser() *domain.StaffRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneRecord(p.state.CurrentUser)
}

// Loading reports whether a resolution is in flight.
func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Loading
}

// Refresh re-resolves the session and waits for that resolution. The resolution
// itself is detached from ctx: if ctx ends first Refresh returns ctx.Err() and the
// result is still applied when it arrives.
func (p *Provider) Refresh(ctx context.Context) error {
	done := p.startRefresh(WithFreshLookup(context.WithoutCancel(ctx), ""))
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Await blocks until a decision can be made or ctx ends, and returns the state at that point.
func (p *Provider) Await(ctx context.Context) State {
	for {
		p.mu.RLock()
		st := p.state
		changed := p.changed
		p.mu.RUnlock()

		if !st.Pending() || st.Phase == PhaseClosed {
			st.CurrentUser = cloneRecord(st.CurrentUser)
			return st
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return p.State()
		}
	}
}

// Subscribe registers fn for every state change, including the final closed state.
// fn runs synchronously on the writer's goroutine and must not call Close or Refresh.
func (p *Provider) Subscribe(fn func(State)) (unsubscribe func()) {
	p.obsMu.Lock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = fn
	p.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.obsMu.Lock()
			delete(p.observers, id)
			p.obsMu.Unlock()
		})
	}
}

// Close stops listening for auth changes and moves the state to closed. It is idempotent.
func (p *Provider) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		unsubscribe := p.unsubscribe
		p.unsubscribe = nil
		p.setStateLocked(State{Phase: PhaseClosed})
		p.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		p.notify()

		p.obsMu.Lock()
		p.observers = make(map[uint64]func(State))
		p.obsMu.Unlock()
	})
}

func (p *Provider) onAuthChange(ev ChangeEvent) {
	p.logger.Debug("auth change", zap.String("kind", string(ev.Kind)))
	p.mu.RLock()
	ctx := p.baseCtx
	p.mu.RUnlock()
	// the change may postdate any directory query already in flight
	p.startRefresh(WithFreshLookup(ctx, ev.ID))
}

func (p *Provider) startRefresh(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(done)
		return done
	}
	p.seq++
	seq := p.seq
	next := p.state
	next.Loading = true
	next.Phase = PhaseLoading
	p.setStateLocked(next)
	p.mu.Unlock()
	p.notify()

	go func() {
		defer close(done)
		lookupCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		user := p.resolve(lookupCtx)
		p.finish(seq, user)
	}()
	return done
}

func (p *Provider) resolve(ctx context.Context) *domain.StaffRecord {
	ident, err := p.auth.GetSession(ctx)
	if err != nil {
		p.logger.Warn("session lookup failed", zap.Error(fmt.Errorf("%w: %v", ErrAuthLookup, err)))
		return nil
	}
	if ident == nil || ident.Email == "" {
		return nil
	}
	return p.resolver.Resolve(ctx, ident.Email)
}

func (p *Provider) finish(seq uint64, user *domain.StaffRecord) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.record("discarded")
		return
	}
	if seq != p.seq {
		p.mu.Unlock()
		p.logger.Debug("stale resolution dropped", zap.Uint64("seq", seq))
		p.record("stale")
		return
	}
	next := State{CurrentUser: cloneRecord(user), Phase: PhaseUnresolved}
	if user != nil {
		next.Phase = PhaseResolved
	}
	p.setStateLocked(next)
	p.mu.Unlock()

	p.record(next.Phase.String())
	p.notify()
}

// setStateLocked must be called with mu held.
func (p *Provider) setStateLocked(next State) {
	next.Version = p.state.Version + 1
	p.state = next
	close(p.changed)
	p.changed = make(chan struct{})
}

// notify delivers the latest state to observers. Serializing on notifyMu and always
// reading the current state means observers never see a version go backwards.
func (p *Provider) notify() {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	st := p.State()
	p.obsMu.Lock()
	fns := make([]func(State), 0, len(p.observers))
	for _, fn := range p.observers {
		fns = append(fns, fn)
	}
	p.obsMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (p *Provider) record(outcome string) {
	if p.recorder != nil {
		p.recorder.RecordResolution(outcome)
	}
}
