package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-portal/internal/api/dto"
	"github.com/spec-kit/staff-portal/internal/auth"
	"github.com/spec-kit/staff-portal/internal/domain"
	"github.com/spec-kit/staff-portal/internal/service"
	apperrors "github.com/spec-kit/staff-portal/pkg/util/errorutil"
)

// StaffManager is the credential store as seen by the admin endpoints.
type StaffManager interface {
	Create(ctx context.Context, input service.CreateStaffInput) (*service.CreatedStaff, error)
	ResetPIN(ctx context.Context, id, newPIN string) (*service.PINReset, error)
	GetByID(ctx context.Context, id string) (*domain.StaffAccount, error)
	GetAll(ctx context.Context, includeInactive bool) ([]domain.StaffAccount, error)
	Update(ctx context.Context, id string, input service.UpdateStaffInput) (*domain.StaffAccount, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// StaffHandler exposes staff account endpoints.
type StaffHandler struct {
	staff StaffManager
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staff StaffManager) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// Me handles GET /staff/me.
func (h *StaffHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(principal.Staff)})
}

// ListStaff handles GET /staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	list, err := h.staff.GetAll(c.UserContext(), parseBoolQuery(c, "include_inactive", false))
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, dto.NewStaffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateStaff handles POST /staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	var req dto.StaffCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" {
		return apperrors.NewValidationError("username required", nil)
	}
	created, err := h.staff.Create(c.UserContext(), service.CreateStaffInput{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Permissions: req.Permissions,
		PIN:         req.PIN,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.StaffWithPINResponse{
		Staff: dto.NewStaffResponse(created.Staff),
		PIN:   created.PIN,
	}})
}

// GetStaff handles GET /staff/:id.
func (h *StaffHandler) GetStaff(c *fiber.Ctx) error {
	staff, err := h.staff.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(staff)})
}

// UpdateStaff handles PATCH /staff/:id.
func (h *StaffHandler) UpdateStaff(c *fiber.Ctx) error {
	var req dto.StaffUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.staff.Update(c.UserContext(), c.Params("id"), service.UpdateStaffInput{
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Permissions: req.Permissions,
		Active:      req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(updated)})
}

// ResetPIN handles POST /staff/:id/reset-pin.
func (h *StaffHandler) ResetPIN(c *fiber.Ctx) error {
	var req dto.PINResetRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	reset, err := h.staff.ResetPIN(c.UserContext(), c.Params("id"), req.PIN)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StaffWithPINResponse{
		Staff: dto.NewStaffResponse(reset.Staff),
		PIN:   reset.PIN,
	}})
}

// DeleteStaff handles DELETE /staff/:id.
func (h *StaffHandler) DeleteStaff(c *fiber.Ctx) error {
	id := c.Params("id")
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.Staff != nil && principal.Staff.ID == id {
		return apperrors.NewForbidden("cannot delete your own account")
	}
	deleted, err := h.staff.Delete(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewNotFound("staff member", map[string]any{"id": id})
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseBoolQuery(c *fiber.Ctx, key string, defaultVal bool) bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
