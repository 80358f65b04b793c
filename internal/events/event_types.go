package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/staff-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventStaffCreated   EventType = "staff_created"
	EventStaffPINReset  EventType = "staff_pin_reset"
	EventStaffVerified  EventType = "staff_verified"
	EventStaffDeleted   EventType = "staff_deleted"
	EventLoginLockedOut EventType = "login_locked_out"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Username  string      `json:"username"`
	StaffID   *string     `json:"staff_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, username string, staffID *string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  domain.NormalizeUsername(username),
		StaffID:   staffID,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// StaffCreatedPayload payload.
type StaffCreatedPayload struct {
	Role       domain.StaffRole `json:"role"`
	ExternalID *int64           `json:"external_id,omitempty"`
}

// StaffVerifiedPayload payload.
type StaffVerifiedPayload struct {
	SessionID  string `json:"session_id"`
	ExternalID int64  `json:"external_id"`
}

// LoginLockedOutPayload payload.
type LoginLockedOutPayload struct {
	IPAddress        string `json:"ip_address"`
	Reason           string `json:"reason"`
	RemainingMinutes int    `json:"remaining_minutes"`
}
