package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Messages       *handlers.MessagesHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)
	authGroup.Post("/password/change",
		cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Post("/:id/assign",
		auth.RequireRole(domain.RoleAdmin), cfg.Tickets.Assign)
	tickets.Post("/:id/status",
		auth.RequireRole(domain.RoleEngineer, domain.RoleAdmin), cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/escalate",
		auth.RequireRole(domain.RoleAdmin), cfg.Tickets.Escalate)
	tickets.Get("/:id/logs", cfg.Tickets.Logs)
	tickets.Get("/:id/assignments", cfg.Tickets.Assignments)

	tickets.Post("/:id/messages", cfg.Messages.Post)
	tickets.Get("/:id/messages", cfg.Messages.List)
	tickets.Post("/:id/messages/read", cfg.Messages.MarkRead)

	app.Get("/dashboard/stats",
		cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Dashboard.Stats)

	app.Get("/engineers",
		cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin), cfg.Users.ListEngineers)
}
