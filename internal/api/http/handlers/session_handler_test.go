package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio-ops/studio-erp/internal/access"
	"github.com/studio-ops/studio-erp/internal/api/dto"
	"github.com/studio-ops/studio-erp/internal/auth"
	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/events"
	"github.com/studio-ops/studio-erp/internal/repository"
	"github.com/studio-ops/studio-erp/internal/session"
	apperrors "github.com/studio-ops/studio-erp/pkg/util/errorutil"
)

type mapStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func (m *mapStore) Save(_ context.Context, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = *sess
	return nil
}

func (m *mapStore) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &sess, nil
}

func (m *mapStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *mapStore) Touch(context.Context, string, time.Time) error { return nil }

type resolverFunc func(email string) *domain.StaffRecord

func (f resolverFunc) Resolve(_ context.Context, email string) *domain.StaffRecord { return f(email) }

type testProviders struct {
	mu        sync.Mutex
	store     *mapStore
	resolver  session.IdentityResolver
	providers map[string]*session.Provider
}

func (p *testProviders) Acquire(id string) *session.Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prov, ok := p.providers[id]; ok {
		return prov
	}
	prov := session.NewProvider(auth.NewSessionSource(id, p.store, events.NewInMemoryDispatcher(nil), nil), p.resolver)
	prov.Start(context.Background())
	p.providers[id] = prov
	return prov
}

var (
	sellerRecord = &domain.StaffRecord{ID: 11, Email: "sol@studio.test", StaffName: "Sol", Role: domain.StaffRoleSales, IsActive: true}
	artistRecord = &domain.StaffRecord{ID: 12, Email: "ari@studio.test", StaffName: "Ari", Role: domain.StaffRoleArtist, IsActive: true}
)

type sessionApp struct {
	app       *fiber.App
	tokens    *auth.TokenManager
	store     *mapStore
	providers *testProviders
}

func newSessionApp(t *testing.T) *sessionApp {
	t.Helper()
	store := &mapStore{sessions: make(map[string]domain.Session)}
	providers := &testProviders{
		store: store,
		resolver: resolverFunc(func(email string) *domain.StaffRecord {
			for _, r := range []*domain.StaffRecord{sellerRecord, artistRecord} {
				if r.Email == email {
					return r
				}
			}
			return nil
		}),
		providers: make(map[string]*session.Provider),
	}
	t.Cleanup(func() {
		for _, p := range providers.providers {
			p.Close()
		}
	})

	table := access.DefaultTable()
	tokens := auth.NewTokenManager("secret", time.Hour)
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code}})
	}})
	app.Use(auth.NewSessionMiddleware(tokens, providers, table, "", time.Second, nil).Handle)

	h := NewSessionHandler(table, nil)
	app.Get("/me", h.Me)
	app.Get("/me/access", h.Access)
	app.Get("/me/events", auth.RequireSignedIn(nil), h.Events)
	app.Get("/dashboard", auth.Guard(access.NewGate(table), nil), h.Dashboard)

	return &sessionApp{app: app, tokens: tokens, store: store, providers: providers}
}

func (s *sessionApp) token(t *testing.T, user *domain.StaffRecord) (string, string) {
	t.Helper()
	id := "sess-" + user.Email
	sess := &domain.Session{ID: id, StaffID: user.ID, Email: user.Email, IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.store.Save(context.Background(), sess))
	token, err := s.tokens.GenerateToken(sess, user.Role)
	require.NoError(t, err)
	return token, id
}

func (s *sessionApp) get(t *testing.T, path, token string, timeout int) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, timeout)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestSessionHandler_MeAnonymous(t *testing.T) {
	s := newSessionApp(t)

	status, body := s.get(t, "/me", "", 2000)
	require.Equal(t, fiber.StatusOK, status)

	var resp struct {
		Data dto.MeResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Nil(t, resp.Data.User)
	assert.Equal(t, "unresolved", resp.Data.Phase)
}

func TestSessionHandler_MeSignedIn(t *testing.T) {
	s := newSessionApp(t)
	token, _ := s.token(t, sellerRecord)

	status, body := s.get(t, "/me", token, 2000)
	require.Equal(t, fiber.StatusOK, status)

	var resp struct {
		Data dto.MeResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.Data.User)
	assert.Equal(t, sellerRecord.Email, resp.Data.User.Email)
	assert.Equal(t, "resolved", resp.Data.Phase)
}

func TestSessionHandler_Access(t *testing.T) {
	s := newSessionApp(t)
	token, _ := s.token(t, sellerRecord)

	tests := []struct {
		path    string
		allowed bool
	}{
		{"/orders", true},
		{"/orders/42", true},
		{"/ordersX", false},
		{"/settings", false},
	}
	for _, tt := range tests {
		status, body := s.get(t, "/me/access?path="+tt.path, token, 2000)
		require.Equal(t, fiber.StatusOK, status)
		var resp struct {
			Data dto.AccessResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, tt.allowed, resp.Data.Allowed, tt.path)
	}

	status, _ := s.get(t, "/me/access", token, 2000)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSessionHandler_DashboardSections(t *testing.T) {
	s := newSessionApp(t)
	token, _ := s.token(t, artistRecord)

	status, body := s.get(t, "/dashboard", token, 2000)
	require.Equal(t, fiber.StatusOK, status)

	var resp struct {
		Data dto.DashboardResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	keys := make([]string, 0, len(resp.Data.Sections))
	for _, sec := range resp.Data.Sections {
		keys = append(keys, sec.Key)
	}
	assert.Equal(t, []string{"dashboard", "schedule"}, keys)

	status, _ = s.get(t, "/dashboard", "", 2000)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestSessionHandler_EventsStreamEndsWithSession(t *testing.T) {
	s := newSessionApp(t)
	token, id := s.token(t, sellerRecord)
	prov := s.providers.Acquire(id)
	awaitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.False(t, prov.Await(awaitCtx).Pending())

	go func() {
		time.Sleep(100 * time.Millisecond)
		prov.Close()
	}()

	status, body := s.get(t, "/me/events?path=/orders", token, 5000)
	require.Equal(t, fiber.StatusOK, status)

	text := string(body)
	assert.Contains(t, text, `"outcome":"allowed"`)
	assert.Contains(t, text, `"reason":"closed"`)
	assert.Equal(t, 2, strings.Count(text, "event: decision"))
}
