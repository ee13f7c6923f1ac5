package domain

import "time"

// Identity is the authenticated principal known to the auth service.
type Identity struct {
	SessionID string
	Email     string
}

// Session is the server-side record persisted for a signed-in staff member.
type Session struct {
	ID        string    `json:"id"`
	StaffID   int64     `json:"staff_id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
