package dto

import (
	"time"

	"github.com/spec-kit/staff-portal/internal/domain"
)

// StaffCreateRequest payload for POST /staff.
type StaffCreateRequest struct {
	Username    string                      `json:"username"`
	DisplayName string                      `json:"display_name"`
	Role        domain.StaffRole            `json:"role"`
	Permissions *domain.PermissionOverrides `json:"permissions"`
	PIN         string                      `json:"pin"`
}

// StaffUpdateRequest payload for PATCH /staff/:id. Omitted fields are kept.
type StaffUpdateRequest struct {
	DisplayName *string                     `json:"display_name"`
	Role        *domain.StaffRole           `json:"role"`
	Permissions *domain.PermissionOverrides `json:"permissions"`
	Active      *bool                       `json:"active"`
}

// PINResetRequest payload for POST /staff/:id/reset-pin.
type PINResetRequest struct {
	PIN string `json:"pin"`
}

// StaffResponse is the public view of a staff account. The PIN hash never leaves the service.
type StaffResponse struct {
	ID           string             `json:"id"`
	Username     string             `json:"username"`
	DisplayName  string             `json:"display_name"`
	ExternalID   *int64             `json:"roblox_id,omitempty"`
	AvatarURL    *string            `json:"avatar_url,omitempty"`
	Role         domain.StaffRole   `json:"role"`
	Permissions  domain.Permissions `json:"permissions"`
	Active       bool               `json:"active"`
	Verified     bool               `json:"verified"`
	LastActiveAt *time.Time         `json:"last_active_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// StaffWithPINResponse is returned exactly once when a PIN is issued.
type StaffWithPINResponse struct {
	Staff StaffResponse `json:"staff"`
	PIN   string        `json:"pin"`
}

// NewStaffResponse maps a domain account.
func NewStaffResponse(staff *domain.StaffAccount) StaffResponse {
	return StaffResponse{
		ID:           staff.ID,
		Username:     staff.Username,
		DisplayName:  staff.DisplayName,
		ExternalID:   staff.ExternalID,
		AvatarURL:    staff.AvatarURL,
		Role:         staff.Role,
		Permissions:  staff.Permissions,
		Active:       staff.Active,
		Verified:     staff.Verified,
		LastActiveAt: staff.LastActiveAt,
		CreatedAt:    staff.CreatedAt,
		UpdatedAt:    staff.UpdatedAt,
	}
}
