package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/studio-ops/studio-erp/internal/access"
	"github.com/studio-ops/studio-erp/internal/api/http/handlers"
	"github.com/studio-ops/studio-erp/internal/auth"
	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Auth              *handlers.AuthHandler
	Staff             *handlers.StaffHandler
	Session           *handlers.SessionHandler
	Surveys           *handlers.SurveyHandler
	Line              *handlers.LineHandler
	SessionMiddleware *auth.SessionMiddleware
	Table             *access.Table
	Metrics           *observability.Metrics
	MetricsPath       string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		app.Get(cfg.MetricsPath, adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	// Unauthenticated surfaces: signature-checked webhook and the customer survey form.
	app.Post("/line/webhook", cfg.Line.Webhook)
	app.Post("/public/surveys", cfg.Surveys.Submit)

	sessioned := app.Group("", cfg.SessionMiddleware.Handle)
	signedIn := auth.RequireSignedIn(cfg.Metrics)
	policy := auth.Guard(access.NewGate(cfg.Table), cfg.Metrics)
	adminOnly := auth.RequireRoles(cfg.Table, cfg.Metrics, domain.StaffRoleAdmin)

	authGroup := sessioned.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/password/change", signedIn, cfg.Auth.ChangePassword)

	me := sessioned.Group("/me")
	me.Get("", cfg.Session.Me)
	me.Get("/access", cfg.Session.Access)
	me.Get("/events", signedIn, cfg.Session.Events)

	sessioned.Get("/dashboard", policy, cfg.Session.Dashboard)

	surveys := sessioned.Group("/surveys", policy)
	surveys.Get("", cfg.Surveys.List)
	surveys.Get("/summary", cfg.Surveys.Summary)

	sessioned.Post("/orders/notify", policy, cfg.Line.NotifyOrder)

	settings := sessioned.Group("/settings", adminOnly)
	settings.Get("/staff", cfg.Staff.ListStaff)
	settings.Post("/staff", cfg.Staff.CreateStaff)
	settings.Get("/staff/:id", cfg.Staff.GetStaff)
	settings.Patch("/staff/:id", cfg.Staff.UpdateStaff)
	settings.Post("/staff/:id/deactivate", cfg.Staff.DeactivateStaff)
	settings.Get("/line-groups", cfg.Line.ListGroups)
}
