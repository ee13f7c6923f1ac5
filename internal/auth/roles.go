package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studio-ops/studio-erp/internal/access"
	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/session"
	apperrors "github.com/studio-ops/studio-erp/pkg/util/errorutil"
)

const (
	userKey     = "auth_user"
	decisionKey = "auth_decision"
)

// DecisionRecorder receives gate outcomes for metrics.
type DecisionRecorder interface {
	RecordDecision(outcome, reason string)
}

// Guard renders gate decisions for the request path. The wrapped handler runs only
// when the decision is Allowed.
func Guard(gate access.Gate, recorder DecisionRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return render(c, gate.Evaluate(requestState(c), c.Path()), recorder)
	}
}

// RequireRoles is Guard with a gate restricted to roles on top of the policy table.
func RequireRoles(table *access.Table, recorder DecisionRecorder, roles ...domain.StaffRole) fiber.Handler {
	return Guard(access.NewGate(table, roles...), recorder)
}

// RequireSignedIn admits any active staff member regardless of the policy table.
func RequireSignedIn(recorder DecisionRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return render(c, access.SignedIn(requestState(c)), recorder)
	}
}

// UserFromContext returns the staff record admitted by a guard.
func UserFromContext(c *fiber.Ctx) (*domain.StaffRecord, bool) {
	user, ok := c.Locals(userKey).(*domain.StaffRecord)
	return user, ok && user != nil
}

// DecisionFromContext returns the last gate decision rendered for the request.
func DecisionFromContext(c *fiber.Ctx) (access.Decision, bool) {
	d, ok := c.Locals(decisionKey).(access.Decision)
	return d, ok
}

func requestState(c *fiber.Ctx) session.State {
	if sess, ok := SessionFromContext(c); ok {
		return sess.State()
	}
	return session.State{Phase: session.PhaseUnresolved}
}

func render(c *fiber.Ctx, d access.Decision, recorder DecisionRecorder) error {
	if recorder != nil {
		recorder.RecordDecision(d.Outcome.String(), d.Reason)
	}
	c.Locals(decisionKey, d)

	switch d.Outcome {
	case access.OutcomeLoading:
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "loading"})
	case access.OutcomeDenied:
		switch d.Reason {
		case access.ReasonNoUser, access.ReasonClosed:
			return apperrors.NewUnauthorized("sign in required")
		default:
			return apperrors.NewForbidden("access denied")
		}
	}

	c.Locals(userKey, d.User)
	return c.Next()
}
