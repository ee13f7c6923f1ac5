package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/auth"
	"github.com/studio-ops/studio-erp/internal/observability"
	apperrors "github.com/studio-ops/studio-erp/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New())
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics, sessionFields))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// sessionFields describes who made the request and what the access gate decided.
func sessionFields(c *fiber.Ctx) []zap.Field {
	var fields []zap.Field
	if sess, ok := auth.SessionFromContext(c); ok {
		st := sess.State()
		fields = append(fields, zap.String("session_phase", st.Phase.String()))
		if st.CurrentUser != nil {
			fields = append(fields,
				zap.Int64("staff_id", st.CurrentUser.ID),
				zap.String("role", string(st.CurrentUser.Role)))
		}
	}
	if d, ok := auth.DecisionFromContext(c); ok {
		fields = append(fields, zap.String("access", d.Outcome.String()))
		if d.Reason != "" {
			fields = append(fields, zap.String("access_reason", d.Reason))
		}
	}
	return fields
}

func requestID(c *fiber.Ctx) string {
	rid, _ := c.Locals("requestid").(string)
	return rid
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("request_id", requestID(c)),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				}
				body := fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}
				if len(domainErr.Details) > 0 {
					body["details"] = domainErr.Details
				}
				if rid := requestID(c); rid != "" {
					body["request_id"] = rid
				}
				if domainErr.HTTPStatus >= 500 {
					fields := append([]zap.Field{zap.Error(domainErr), zap.String("path", c.Path())}, sessionFields(c)...)
					logger.Error("request failed", fields...)
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(fiber.Map{"error": body})
				err = nil
			}
		}()
		return c.Next()
	}
}
