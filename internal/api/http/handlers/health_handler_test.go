package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/studio-ops/studio-erp/internal/access"
	"github.com/studio-ops/studio-erp/internal/domain"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedCount int

func (n fixedCount) Len() int { return int(n) }

func healthy(context.Context) error { return nil }

func newHealthApp(h *HealthHandler) *fiber.App {
	app := newTestApp()
	app.Get("/health/live", h.Live)
	app.Get("/health/ready", h.Ready)
	return app
}

func TestHealthHandler_ReadyReportsPolicyAndSessions(t *testing.T) {
	table := access.DefaultTable()
	app := newHealthApp(NewHealthHandler("studio-erp", "test", pingFunc(healthy), pingFunc(healthy), table, fixedCount(3)))

	resp := doJSON(t, app, fiber.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.status)
	var out struct {
		Status       string `json:"status"`
		LiveSessions int    `json:"live_sessions"`
		Dependencies struct {
			Postgres     string `json:"postgres"`
			AccessPolicy struct {
				Roles int `json:"roles"`
			} `json:"access_policy"`
		} `json:"dependencies"`
	}
	resp.decode(t, &out)
	assert.Equal(t, "ready", out.Status)
	assert.Equal(t, 3, out.LiveSessions)
	assert.Equal(t, "ok", out.Dependencies.Postgres)
	assert.Equal(t, len(domain.AllRoles()), out.Dependencies.AccessPolicy.Roles)
}

func TestHealthHandler_NotReady(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	partial := access.NewTable(map[domain.StaffRole]access.Policy{domain.StaffRoleAdmin: access.AllPaths()})

	tests := []struct {
		name string
		h    *HealthHandler
	}{
		{"redis down", NewHealthHandler("s", "v", pingFunc(healthy), down, access.DefaultTable(), nil)},
		{"no postgres", NewHealthHandler("s", "v", nil, pingFunc(healthy), access.DefaultTable(), nil)},
		{"incomplete policy", NewHealthHandler("s", "v", pingFunc(healthy), pingFunc(healthy), partial, nil)},
		{"no policy", NewHealthHandler("s", "v", pingFunc(healthy), pingFunc(healthy), nil, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, newHealthApp(tt.h), fiber.MethodGet, "/health/ready", nil, nil)
			assert.Equal(t, fiber.StatusServiceUnavailable, resp.status)
		})
	}
}

func TestHealthHandler_LiveCountsSessions(t *testing.T) {
	app := newHealthApp(NewHealthHandler("studio-erp", "v1", nil, nil, nil, fixedCount(2)))

	resp := doJSON(t, app, fiber.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.status)
	var out map[string]any
	resp.decode(t, &out)
	assert.Equal(t, "alive", out["status"])
	assert.Equal(t, float64(2), out["live_sessions"])
}
