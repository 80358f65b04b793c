package identity

import "time"

// Profile is the subset of a Roblox user record the portal relies on.
type Profile struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	DisplayName      string    `json:"displayName"`
	Description      string    `json:"description"`
	Created          time.Time `json:"created"`
	IsBanned         bool      `json:"isBanned"`
	HasVerifiedBadge bool      `json:"hasVerifiedBadge"`
}

// ValidationResult reports whether a username may be used for a staff account.
type ValidationResult struct {
	Valid     bool
	Profile   *Profile
	AvatarURL *string
	Error     string
}

const (
	ErrUsernameNotFound = "Username not found"
	ErrAccountBanned    = "Account is banned"
)

// outcome distinguishes why a lookup produced no profile. Callers only ever see
// found/not-found; the split feeds logs and metrics.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeNotFound
	outcomeTransient
)

func (o outcome) String() string {
	switch o {
	case outcomeOK:
		return "ok"
	case outcomeNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

type usernameLookupRequest struct {
	Usernames          []string `json:"usernames"`
	ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
}

type usernameLookupResponse struct {
	Data []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"data"`
}

type thumbnailResponse struct {
	Data []struct {
		TargetID int64  `json:"targetId"`
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}
