package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/access"
	"github.com/studio-ops/studio-erp/internal/api/dto"
	"github.com/studio-ops/studio-erp/internal/auth"
)

const heartbeatInterval = 15 * time.Second

// DashboardSections is the navigation offered on the dashboard, filtered per user.
var DashboardSections = []dto.NavSection{
	{Key: "dashboard", Path: "/dashboard"},
	{Key: "orders", Path: "/orders"},
	{Key: "schedule", Path: "/schedule"},
	{Key: "customers", Path: "/customers"},
	{Key: "surveys", Path: "/surveys"},
	{Key: "reports", Path: "/reports"},
	{Key: "settings", Path: "/settings"},
}

// SessionHandler exposes the caller's session and access decisions.
type SessionHandler struct {
	table  *access.Table
	logger *zap.Logger
}

// NewSessionHandler constructs handler.
func NewSessionHandler(table *access.Table, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{table: table, logger: logger}
}

// Me handles GET /me. It never fails for anonymous callers.
func (h *SessionHandler) Me(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		sess = access.Anonymous(h.table)
	}
	st := sess.State()
	resp := dto.MeResponse{Loading: st.Loading, Phase: st.Phase.String()}
	if st.CurrentUser != nil {
		u := staffResponse(st.CurrentUser)
		resp.User = &u
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Access handles GET /me/access?path=.
func (h *SessionHandler) Access(c *fiber.Ctx) error {
	path, err := pathQuery(c)
	if err != nil {
		return err
	}
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		sess = access.Anonymous(h.table)
	}
	return c.JSON(fiber.Map{"data": dto.AccessResponse{Path: path, Allowed: sess.HasAccess(path)}})
}

// Dashboard handles GET /dashboard.
func (h *SessionHandler) Dashboard(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	sections := make([]dto.NavSection, 0, len(DashboardSections))
	for _, s := range DashboardSections {
		if access.CanAccess(h.table, user, s.Path) {
			sections = append(sections, s)
		}
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{User: staffResponse(user), Sections: sections}})
}

// Events handles GET /me/events?path=, streaming gate decisions for path as
// server-sent events until the client leaves or the session ends.
func (h *SessionHandler) Events(c *fiber.Ctx) error {
	path, err := pathQuery(c)
	if err != nil {
		return err
	}
	sess, ok := auth.SessionFromContext(c)
	if !ok || sess.Provider() == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	provider := sess.Provider()
	gate := access.NewGate(h.table)
	logger := h.logger

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		decisions := gate.Watch(ctx, provider, path)
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case d, open := <-decisions:
				if !open {
					return
				}
				if err := writeDecision(w, path, d); err != nil {
					logger.Debug("decision stream closed", zap.Error(err))
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func writeDecision(w *bufio.Writer, path string, d access.Decision) error {
	payload, err := json.Marshal(dto.DecisionEvent{Path: path, Outcome: d.Outcome.String(), Reason: d.Reason})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: decision\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func pathQuery(c *fiber.Ctx) (string, error) {
	path := c.Query("path")
	if path == "" || !strings.HasPrefix(path, "/") {
		return "", fiber.NewError(http.StatusBadRequest, "path must start with /")
	}
	return path, nil
}
