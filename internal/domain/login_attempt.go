package domain

import "time"

// LoginAttempt is an append-only record of one login call.
type LoginAttempt struct {
	ID            string
	Username      string
	IPAddress     string
	Success       bool
	FailureReason *string
	CreatedAt     time.Time
}
