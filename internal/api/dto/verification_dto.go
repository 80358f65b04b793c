package dto

import (
	"time"

	"github.com/spec-kit/staff-portal/internal/domain"
	"github.com/spec-kit/staff-portal/internal/identity"
)

// StartVerificationRequest payload for POST /verification/sessions.
type StartVerificationRequest struct {
	Username string `json:"username"`
}

// VerificationSessionResponse is the public view of a session. The code is
// included because the caller has to paste it into their profile.
type VerificationSessionResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	ExternalID *int64    `json:"roblox_id,omitempty"`
	Code       string    `json:"code"`
	ExpiresAt  time.Time `json:"expires_at"`
	Completed  bool      `json:"completed"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewVerificationSessionResponse maps a domain session.
func NewVerificationSessionResponse(s *domain.VerificationSession) VerificationSessionResponse {
	return VerificationSessionResponse{
		ID:         s.ID,
		Username:   s.Username,
		ExternalID: s.ExternalID,
		Code:       s.Code,
		ExpiresAt:  s.ExpiresAt,
		Completed:  s.Completed,
		CreatedAt:  s.CreatedAt,
	}
}

// IdentityValidationResponse mirrors identity.ValidationResult.
type IdentityValidationResponse struct {
	Valid     bool              `json:"valid"`
	Profile   *identity.Profile `json:"profile,omitempty"`
	AvatarURL *string           `json:"avatar_url,omitempty"`
	Error     string            `json:"error,omitempty"`
}
