package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/studio-ops/studio-erp/internal/domain"
)

// StaffDirectory queries persisted staff records.
type StaffDirectory interface {
	// FindActiveByEmail returns at most limit active records matching email.
	FindActiveByEmail(ctx context.Context, email string, limit int) ([]domain.StaffRecord, error)
}

// Resolver translates an authenticated email into a staff record.
// Concurrent lookups for the same email share one directory query, but a lookup marked
// with WithFreshLookup never joins a query that started before it.
type Resolver struct {
	directory StaffDirectory
	logger    *zap.Logger
	timeout   time.Duration
	group     singleflight.Group

	mu          sync.Mutex
	generations map[string]generation
}

type generation struct {
	n     uint64
	token string
}

type freshLookupKey struct{}

// WithFreshLookup marks ctx so the resolution reads the directory after this point.
// Lookups carrying the same non-empty token share one fresh query; an empty token
// always starts a new one.
func WithFreshLookup(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, freshLookupKey{}, token)
}

func freshLookup(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(freshLookupKey{}).(string)
	return token, ok
}

// NewResolver builds a Resolver over the directory.
func NewResolver(directory StaffDirectory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		directory:   directory,
		logger:      logger,
		timeout:     defaultLookupTimeout,
		generations: make(map[string]generation),
	}
}

// Invalidate makes every later lookup of email start a new directory query.
func (r *Resolver) Invalidate(email string) {
	key := domain.NormalizeEmail(email)
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.generations[key]
	r.generations[key] = generation{n: g.n + 1}
}

// flightKey scopes shared queries to the current generation of email.
func (r *Resolver) flightKey(ctx context.Context, email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.generations[email]
	if token, ok := freshLookup(ctx); ok && (token == "" || token != g.token) {
		g = generation{n: g.n + 1, token: token}
		r.generations[email] = g
	}
	return email + "#" + strconv.FormatUint(g.n, 10)
}

// Resolve returns the single active staff record for email, or nil. Lookup errors,
// misses and ambiguous matches all resolve to nil and are logged.
func (r *Resolver) Resolve(ctx context.Context, email string) *domain.StaffRecord {
	key := domain.NormalizeEmail(email)
	if key == "" {
		return nil
	}

	ch := r.group.DoChan(r.flightKey(ctx, key), func() (any, error) {
		// the shared query outlives any single waiter
		queryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		// two rows are enough to detect an ambiguous match
		return r.directory.FindActiveByEmail(queryCtx, key, 2)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		r.logger.Warn("staff lookup abandoned",
			zap.String("email", key),
			zap.Error(fmt.Errorf("%w: %v", ErrDirectoryLookup, ctx.Err())))
		return nil
	}

	if res.Err != nil {
		r.logger.Warn("staff lookup failed",
			zap.String("email", key),
			zap.Error(fmt.Errorf("%w: %v", ErrDirectoryLookup, res.Err)))
		return nil
	}

	records, _ := res.Val.([]domain.StaffRecord)
	switch len(records) {
	case 0:
		r.logger.Info("no active staff for identity", zap.String("email", key))
		return nil
	case 1:
	default:
		r.logger.Warn("ambiguous staff match", zap.String("email", key), zap.Int("matches", len(records)))
		return nil
	}

	rec := records[0]
	if !rec.IsActive {
		r.logger.Warn("directory returned inactive staff", zap.String("email", key), zap.Int64("staff_id", rec.ID))
		return nil
	}
	return &rec
}
