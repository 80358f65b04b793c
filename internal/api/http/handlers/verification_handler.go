package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-portal/internal/api/dto"
	"github.com/spec-kit/staff-portal/internal/domain"
	"github.com/spec-kit/staff-portal/internal/service"
	apperrors "github.com/spec-kit/staff-portal/pkg/util/errorutil"
)

// VerificationManager runs profile-code verification.
type VerificationManager interface {
	CreateSession(ctx context.Context, username string) (*service.SessionStart, error)
	GetByID(ctx context.Context, id string) (*domain.VerificationSession, error)
	GetActiveSession(ctx context.Context, username string) (*domain.VerificationSession, error)
	VerifySession(ctx context.Context, id string) (service.VerificationResult, error)
}

// VerificationHandler exposes verification endpoints.
type VerificationHandler struct {
	sessions VerificationManager
}

// NewVerificationHandler constructs handler.
func NewVerificationHandler(sessions VerificationManager) *VerificationHandler {
	return &VerificationHandler{sessions: sessions}
}

// Start handles POST /verification/sessions.
func (h *VerificationHandler) Start(c *fiber.Ctx) error {
	var req dto.StartVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" {
		return apperrors.NewValidationError("username required", nil)
	}

	start, err := h.sessions.CreateSession(c.UserContext(), req.Username)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"session":      dto.NewVerificationSessionResponse(start.Session),
			"instructions": start.Instructions,
		},
	})
}

// Get handles GET /verification/sessions/:id.
func (h *VerificationHandler) Get(c *fiber.Ctx) error {
	session, err := h.sessions.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewVerificationSessionResponse(session)})
}

// Active handles GET /verification/active?username=.
func (h *VerificationHandler) Active(c *fiber.Ctx) error {
	username := c.Query("username")
	if strings.TrimSpace(username) == "" {
		return apperrors.NewValidationError("username required", nil)
	}
	session, err := h.sessions.GetActiveSession(c.UserContext(), username)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewVerificationSessionResponse(session)})
}

// Verify handles POST /verification/sessions/:id/verify.
func (h *VerificationHandler) Verify(c *fiber.Ctx) error {
	result, err := h.sessions.VerifySession(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if !result.Success {
		if result.Error == service.ErrSessionNotFound {
			return apperrors.NewNotFound("verification session", map[string]any{"id": c.Params("id")})
		}
		return apperrors.NewDomainError("VERIFICATION_FAILED", result.Error, http.StatusBadRequest, nil)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"verified": true,
		"session":  dto.NewVerificationSessionResponse(result.Session),
	}})
}
