package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StaffAccount is a staff member who signs in to the dashboard with a PIN.
type StaffAccount struct {
	ID           string
	Username     string
	DisplayName  string
	ExternalID   *int64
	AvatarURL    *string
	PINHash      string
	Role         StaffRole
	Permissions  Permissions
	Active       bool
	Verified     bool
	LastActiveAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeUsername lowercases and trims a username so every lookup is case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidID reports whether id is a well-formed record id. Ids are UUIDs, and
// anything else can never match a stored row.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
