package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-portal/internal/domain"
)

// RequirePermission ensures the staff principal holds every listed permission.
func RequirePermission(required ...domain.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Staff == nil {
			return fiber.NewError(http.StatusForbidden, "staff account required")
		}
		for _, perm := range required {
			if !principal.Staff.Permissions.Has(perm) {
				return fiber.NewError(http.StatusForbidden, "missing permission: "+string(perm))
			}
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal was loaded by AuthMiddleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
