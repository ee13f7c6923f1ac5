package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/access"
	"github.com/studio-ops/studio-erp/internal/session"
)

const (
	sessionKey = "auth_session"
	claimsKey  = "auth_claims"
)

// ProviderSource hands out the live provider for a session ID.
type ProviderSource interface {
	Acquire(sessionID string) *session.Provider
}

// SessionMiddleware attaches the caller's access.Session to every request. A missing
// or invalid token yields an anonymous session rather than an error.
type SessionMiddleware struct {
	tokens     *TokenManager
	providers  ProviderSource
	table      *access.Table
	cookieName string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewSessionMiddleware constructs middleware. timeout bounds how long a request waits
// for a session's first resolution.
func NewSessionMiddleware(tokens *TokenManager, providers ProviderSource, table *access.Table, cookieName string, timeout time.Duration, logger *zap.Logger) *SessionMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{
		tokens:     tokens,
		providers:  providers,
		table:      table,
		cookieName: cookieName,
		timeout:    timeout,
		logger:     logger,
	}
}

// Handle resolves the session for the request.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	raw := m.extractToken(c)
	if raw == "" {
		c.Locals(sessionKey, access.Anonymous(m.table))
		return c.Next()
	}

	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		m.logger.Debug("rejected session token", zap.Error(err))
		c.Locals(sessionKey, access.Anonymous(m.table))
		return c.Next()
	}

	provider := m.providers.Acquire(claims.SessionID)
	if m.timeout > 0 {
		ctx, cancel := context.WithTimeout(c.UserContext(), m.timeout)
		provider.Await(ctx)
		cancel()
	}

	c.Locals(claimsKey, claims)
	c.Locals(sessionKey, access.NewSession(provider, m.table))
	return c.Next()
}

func (m *SessionMiddleware) extractToken(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if m.cookieName != "" {
		return c.Cookies(m.cookieName)
	}
	return ""
}

// SessionFromContext retrieves the request's session view.
func SessionFromContext(c *fiber.Ctx) (*access.Session, bool) {
	sess, ok := c.Locals(sessionKey).(*access.Session)
	return sess, ok && sess != nil
}

// ClaimsFromContext returns the verified token claims, if any.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	return claims, ok && claims != nil
}
