package session

import (
	"context"
	"errors"

	"github.com/studio-ops/studio-erp/internal/domain"
)

var (
	// ErrAuthLookup classifies failures talking to the auth service.
	ErrAuthLookup = errors.New("auth lookup failure")
	// ErrDirectoryLookup classifies failures or misses in the staff directory.
	ErrDirectoryLookup = errors.New("directory lookup failure")
)

// Phase is the lifecycle position of a Provider.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLoading
	PhaseResolved
	PhaseUnresolved
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseResolved:
		return "resolved"
	case PhaseUnresolved:
		return "unresolved"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// State is a snapshot of a session. CurrentUser is nil when nobody is resolved.
// Version increases on every change so observers can drop stale snapshots.
type State struct {
	CurrentUser *domain.StaffRecord
	Loading     bool
	Phase       Phase
	Version     uint64
}

// Pending reports whether no access decision can be made yet.
func (s State) Pending() bool {
	return s.Loading || s.Phase == PhaseUninitialized
}

// ChangeKind names the auth service notification that triggered a refresh.
type ChangeKind string

const (
	ChangeSignedIn       ChangeKind = "signed_in"
	ChangeSignedOut      ChangeKind = "signed_out"
	ChangeTokenRefreshed ChangeKind = "token_refreshed"
	ChangeStaffUpdated   ChangeKind = "staff_changed"
)

// ChangeEvent is delivered by an AuthService to its subscribers.
type ChangeEvent struct {
	Kind ChangeKind
	// ID identifies the originating notification, when the auth service has one.
	ID string
}

// AuthService is the external source of the current session identity.
type AuthService interface {
	// GetSession returns the identity behind the session, or nil when there is none.
	GetSession(ctx context.Context) (*domain.Identity, error)
	// OnChange registers cb for sign-in, sign-out and refresh notifications.
	OnChange(cb func(ChangeEvent)) (unsubscribe func())
}

// IdentityResolver maps an authenticated email to an active staff record.
type IdentityResolver interface {
	Resolve(ctx context.Context, email string) *domain.StaffRecord
}

// Recorder receives resolution outcomes for metrics.
type Recorder interface {
	RecordResolution(outcome string)
}

func cloneRecord(rec *domain.StaffRecord) *domain.StaffRecord {
	if rec == nil {
		return nil
	}
	cp := *rec
	return &cp
}
