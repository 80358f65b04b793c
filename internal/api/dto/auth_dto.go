package dto

import "time"

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
