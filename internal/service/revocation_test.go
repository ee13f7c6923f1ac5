package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio-ops/studio-erp/internal/access"
	"github.com/studio-ops/studio-erp/internal/auth"
	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/events"
	"github.com/studio-ops/studio-erp/internal/session"
)

func nextSettled(t *testing.T, ch <-chan access.Decision) access.Decision {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case d, ok := <-ch:
			require.True(t, ok, "decision stream closed")
			if d.Outcome != access.OutcomeLoading {
				return d
			}
		case <-timeout:
			t.Fatal("no settled decision")
		}
	}
}

func TestStaffDeactivation_RevokesLiveSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo := newMemStaffRepo()
	store := newMemSessionStore()
	dispatcher := events.NewInMemoryDispatcher(nil)
	staffService := NewStaffService(repo, dispatcher, 4, nil)

	staff, err := staffService.CreateStaffMember(ctx, CreateStaffInput{
		Email: "gus@studio.test", StaffName: "Gus", Role: domain.StaffRoleSales, Password: "longenough",
	})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &domain.Session{
		ID: "gus-session", StaffID: staff.ID, Email: staff.Email, ExpiresAt: time.Now().Add(time.Hour),
	}))

	source := auth.NewSessionSource("gus-session", store, dispatcher, nil)
	provider := session.NewProvider(source, session.NewResolver(repo, nil))
	provider.Start(ctx)
	defer provider.Close()

	decisions := access.NewGate(access.DefaultTable()).Watch(ctx, provider, "/orders")
	first := nextSettled(t, decisions)
	require.Equal(t, access.OutcomeAllowed, first.Outcome)
	assert.Equal(t, staff.ID, first.User.ID)

	_, err = staffService.DeactivateStaffMember(ctx, staff.ID)
	require.NoError(t, err)

	revoked := nextSettled(t, decisions)
	assert.Equal(t, access.OutcomeDenied, revoked.Outcome)
	assert.Equal(t, access.ReasonNoUser, revoked.Reason)
	assert.Nil(t, provider.CurrentUser())
}

func TestStaffRoleChange_ReachesLiveSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo := newMemStaffRepo()
	store := newMemSessionStore()
	dispatcher := events.NewInMemoryDispatcher(nil)
	staffService := NewStaffService(repo, dispatcher, 4, nil)

	staff, err := staffService.CreateStaffMember(ctx, CreateStaffInput{
		Email: "ivy@studio.test", StaffName: "Ivy", Role: domain.StaffRoleSales, Password: "longenough",
	})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &domain.Session{
		ID: "ivy-session", StaffID: staff.ID, Email: staff.Email, ExpiresAt: time.Now().Add(time.Hour),
	}))

	provider := session.NewProvider(auth.NewSessionSource("ivy-session", store, dispatcher, nil), session.NewResolver(repo, nil))
	provider.Start(ctx)
	defer provider.Close()

	decisions := access.NewGate(access.DefaultTable()).Watch(ctx, provider, "/orders")
	require.Equal(t, access.OutcomeAllowed, nextSettled(t, decisions).Outcome)

	artist := domain.StaffRoleArtist
	_, err = staffService.UpdateStaffMember(ctx, staff.ID, UpdateStaffInput{Role: &artist})
	require.NoError(t, err)

	d := nextSettled(t, decisions)
	assert.Equal(t, access.OutcomeDenied, d.Outcome)
	assert.Equal(t, access.ReasonPolicy, d.Reason)
}
