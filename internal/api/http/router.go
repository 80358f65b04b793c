package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-portal/internal/api/http/handlers"
	"github.com/spec-kit/staff-portal/internal/auth"
	"github.com/spec-kit/staff-portal/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Verification   *handlers.VerificationHandler
	Staff          *handlers.StaffHandler
	Identity       *handlers.IdentityHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Auth.Login)

	verification := app.Group("/verification")
	verification.Post("/sessions", cfg.Verification.Start)
	verification.Get("/sessions/:id", cfg.Verification.Get)
	verification.Post("/sessions/:id/verify", cfg.Verification.Verify)
	verification.Get("/active", cfg.Verification.Active)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	staff.Get("/me", cfg.Staff.Me)

	manage := auth.RequirePermission(domain.PermissionManageStaff)
	staff.Get("/", manage, cfg.Staff.ListStaff)
	staff.Post("/", manage, cfg.Staff.CreateStaff)
	staff.Get("/:id", manage, cfg.Staff.GetStaff)
	staff.Patch("/:id", manage, cfg.Staff.UpdateStaff)
	staff.Delete("/:id", manage, cfg.Staff.DeleteStaff)
	staff.Post("/:id/reset-pin", manage, cfg.Staff.ResetPIN)

	identity := app.Group("/identity", cfg.AuthMiddleware.Handle, manage)
	identity.Get("/validate", cfg.Identity.Validate)
}
