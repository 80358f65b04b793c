package domain

import "time"

// VerificationSession tracks a pending proof that a user controls a Roblox account.
type VerificationSession struct {
	ID         string
	Username   string
	ExternalID *int64
	Code       string
	ExpiresAt  time.Time
	Completed  bool
	CreatedAt  time.Time
}

// ExpiredAt reports whether the session can no longer be completed at now.
// A session whose expiry equals now is already expired.
func (s *VerificationSession) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ActiveAt reports whether the session is neither completed nor expired.
func (s *VerificationSession) ActiveAt(now time.Time) bool {
	return !s.Completed && !s.ExpiredAt(now)
}
