package access

import (
	"context"

	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/session"
)

// Session is the view handlers use: the caller's session state plus policy helpers.
// A Session without a provider is anonymous.
type Session struct {
	provider *session.Provider
	table    *Table
}

// NewSession binds a provider to the policy table. provider may be nil.
func NewSession(provider *session.Provider, table *Table) *Session {
	return &Session{provider: provider, table: table}
}

// Anonymous returns a session with no identity.
func Anonymous(table *Table) *Session {
	return &Session{table: table}
}

// Provider exposes the underlying provider, nil when anonymous.
func (s *Session) Provider() *session.Provider { return s.provider }

// State returns the current snapshot. Anonymous sessions are unresolved.
func (s *Session) State() session.State {
	if s.provider == nil {
		return session.State{Phase: session.PhaseUnresolved}
	}
	return s.provider.State()
}

// CurrentUser returns the resolved staff record or nil.
func (s *Session) CurrentUser() *domain.StaffRecord {
	if s.provider == nil {
		return nil
	}
	return s.provider.CurrentUser()
}

// Loading reports whether a resolution is in flight.
func (s *Session) Loading() bool {
	return s.provider != nil && s.provider.Loading()
}

// HasAccess applies the policy table to the current user.
func (s *Session) HasAccess(path string) bool {
	return CanAccess(s.table, s.CurrentUser(), path)
}

// IsRole reports whether the current user holds one of roles.
func (s *Session) IsRole(roles ...domain.StaffRole) bool {
	return IsRole(s.CurrentUser(), roles...)
}

// Refresh re-resolves the session and waits for the result.
func (s *Session) Refresh(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Refresh(ctx)
}
