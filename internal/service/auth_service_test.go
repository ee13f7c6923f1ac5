package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio-ops/studio-erp/internal/auth"
	"github.com/studio-ops/studio-erp/internal/config"
	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/events"
	apperrors "github.com/studio-ops/studio-erp/pkg/util/errorutil"
)

type authFixture struct {
	svc      *AuthService
	staff    *memStaffRepo
	sessions *memSessionStore
	events   []events.Event
	releaser *releaseRecorder
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{staff: newMemStaffRepo(), sessions: newMemSessionStore(), releaser: &releaseRecorder{}}
	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, et := range events.AuthEventTypes {
		dispatcher.Subscribe(et, func(_ context.Context, ev events.Event) error {
			f.events = append(f.events, ev)
			return nil
		})
	}
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "s", AccessTokenTTLMinutes: 30, BcryptCost: 4}}
	f.svc = NewAuthService(cfg, AuthDependencies{
		StaffRepo:    f.staff,
		SessionStore: f.sessions,
		Dispatcher:   dispatcher,
		Releaser:     f.releaser,
	})

	hash, err := auth.HashPassword("open sesame", 4)
	require.NoError(t, err)
	require.NoError(t, f.staff.Create(context.Background(), &domain.StaffRecord{
		Email: "dana@studio.test", StaffName: "Dana", PasswordHash: hash, Role: domain.StaffRoleFrontDesk, IsActive: true,
	}))
	return f
}

func statusOf(err error) int {
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return de.HTTPStatus
	}
	return 0
}

func TestAuthService_LoginCreatesSession(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Login(context.Background(), " DANA@studio.test", "open sesame")
	require.NoError(t, err)
	assert.Equal(t, domain.StaffRoleFrontDesk, res.Staff.Role)

	stored, err := f.sessions.Get(context.Background(), res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "dana@studio.test", stored.Email)

	claims, err := f.svc.TokenManager().ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, claims.SessionID)

	require.Len(t, f.events, 1)
	assert.Equal(t, events.EventSignedIn, f.events[0].Type)
	assert.Equal(t, res.Session.ID, f.events[0].SessionID)
}

func TestAuthService_LoginRejects(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), "dana@studio.test", "wrong password")
	assert.Equal(t, 401, statusOf(err))

	_, err = f.svc.Login(context.Background(), "nobody@studio.test", "open sesame")
	assert.Equal(t, 401, statusOf(err))

	staff, _ := f.staff.GetByEmail(context.Background(), "dana@studio.test")
	staff.IsActive = false
	require.NoError(t, f.staff.Update(context.Background(), staff))
	_, err = f.svc.Login(context.Background(), "dana@studio.test", "open sesame")
	assert.Equal(t, 401, statusOf(err))
	assert.Empty(t, f.events)
}

func TestAuthService_LogoutAndRefresh(t *testing.T) {
	f := newAuthFixture(t)
	res, err := f.svc.Login(context.Background(), "dana@studio.test", "open sesame")
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(context.Background(), res.Session.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.Session.ExpiresAt.Before(res.Session.ExpiresAt))

	require.NoError(t, f.svc.Logout(context.Background(), res.Session.ID))
	assert.Equal(t, []string{res.Session.ID}, f.releaser.released)

	_, err = f.svc.Refresh(context.Background(), res.Session.ID)
	assert.Equal(t, 401, statusOf(err))

	kinds := make([]events.EventType, 0, len(f.events))
	for _, ev := range f.events {
		kinds = append(kinds, ev.Type)
	}
	assert.Equal(t, []events.EventType{events.EventSignedIn, events.EventTokenRefreshed, events.EventSignedOut}, kinds)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, 1, "not it", "brand new pass")
	assert.Equal(t, 401, statusOf(err))

	err = f.svc.ChangePassword(ctx, 1, "open sesame", "short")
	assert.Equal(t, 400, statusOf(err))

	require.NoError(t, f.svc.ChangePassword(ctx, 1, "open sesame", "brand new pass"))
	require.NotEmpty(t, f.events)
	last := f.events[len(f.events)-1]
	assert.Equal(t, events.EventStaffChanged, last.Type)
	assert.Equal(t, "dana@studio.test", last.Email)
	assert.Empty(t, last.SessionID)

	_, err = f.svc.Login(ctx, "dana@studio.test", "brand new pass")
	assert.NoError(t, err)
}
