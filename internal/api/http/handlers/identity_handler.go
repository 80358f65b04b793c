package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-portal/internal/api/dto"
	"github.com/spec-kit/staff-portal/internal/identity"
	apperrors "github.com/spec-kit/staff-portal/pkg/util/errorutil"
)

// UsernameValidator checks a Roblox username.
type UsernameValidator interface {
	Validate(ctx context.Context, username string) identity.ValidationResult
}

// IdentityHandler lets administrators preview a username before creating staff.
type IdentityHandler struct {
	validator UsernameValidator
}

// NewIdentityHandler constructs handler.
func NewIdentityHandler(validator UsernameValidator) *IdentityHandler {
	return &IdentityHandler{validator: validator}
}

// Validate handles GET /identity/validate?username=.
func (h *IdentityHandler) Validate(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		return apperrors.NewValidationError("username required", nil)
	}
	res := h.validator.Validate(c.UserContext(), username)
	return c.JSON(fiber.Map{"data": dto.IdentityValidationResponse{
		Valid:     res.Valid,
		Profile:   res.Profile,
		AvatarURL: res.AvatarURL,
		Error:     res.Error,
	}})
}
