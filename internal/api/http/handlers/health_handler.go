package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/studio-ops/studio-erp/internal/access"
)

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports how many session providers are live.
type SessionCounter interface {
	Len() int
}

// HealthHandler answers liveness and readiness checks.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    Pinger
	redis       Pinger
	table       *access.Table
	sessions    SessionCounter
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres, redis Pinger, table *access.Table, sessions SessionCounter) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		postgres:    postgres,
		redis:       redis,
		table:       table,
		sessions:    sessions,
	}
}

// Live reports service liveness and the number of live sessions.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	}
	if h.sessions != nil {
		body["live_sessions"] = h.sessions.Len()
	}
	return c.JSON(body)
}

// Ready reports readiness: both stores answer and the access policy covers every role.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	check := func(name string, p Pinger) {
		if p == nil {
			depStatus[name] = "not configured"
			ready = false
			return
		}
		if err := p.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			return
		}
		depStatus[name] = "ok"
	}
	check("postgres", h.postgres)
	check("redis", h.redis)

	switch {
	case h.table == nil:
		depStatus["access_policy"] = "not loaded"
		ready = false
	default:
		if err := h.table.Validate(); err != nil {
			depStatus["access_policy"] = err.Error()
			ready = false
		} else {
			depStatus["access_policy"] = fiber.Map{"roles": len(h.table.Roles())}
		}
	}

	if ready {
		body := fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		}
		if h.sessions != nil {
			body["live_sessions"] = h.sessions.Len()
		}
		return c.JSON(body)
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
