package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-portal/internal/api/dto"
	"github.com/spec-kit/staff-portal/internal/service"
	apperrors "github.com/spec-kit/staff-portal/pkg/util/errorutil"
)

// LoginService is the login entry point.
type LoginService interface {
	Login(ctx context.Context, username, pin, address string) (service.LoginResult, error)
}

// AuthHandler exposes staff sign-in.
type AuthHandler struct {
	gate LoginService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(gate LoginService) *AuthHandler {
	return &AuthHandler{gate: gate}
}

// Login handles POST /auth/staff/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" || req.PIN == "" {
		return apperrors.NewValidationError("username and pin required", nil)
	}

	result, err := h.gate.Login(c.UserContext(), req.Username, req.PIN, c.IP())
	if err != nil {
		return err
	}
	if !result.Success {
		if result.RemainingMinutes > 0 {
			return apperrors.NewDomainError("ACCOUNT_LOCKED", result.Error, http.StatusTooManyRequests,
				map[string]any{"remaining_minutes": result.RemainingMinutes})
		}
		var details map[string]any
		if result.AttemptsRemaining > 0 {
			details = map[string]any{"attempts_remaining": result.AttemptsRemaining}
		}
		return apperrors.NewDomainError("INVALID_CREDENTIALS", result.Error, http.StatusUnauthorized, details)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": dto.NewStaffResponse(result.Staff),
			"auth":  dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		},
	})
}
