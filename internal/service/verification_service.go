package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-portal/internal/auth"
	"github.com/spec-kit/staff-portal/internal/config"
	"github.com/spec-kit/staff-portal/internal/domain"
	"github.com/spec-kit/staff-portal/internal/events"
	"github.com/spec-kit/staff-portal/internal/repository"
	apperrors "github.com/spec-kit/staff-portal/pkg/util/errorutil"
)

const (
	ErrSessionNotFound         = "Verification session not found"
	ErrSessionCompleted        = "Verification session already completed"
	ErrSessionExpired          = "Verification session has expired"
	ErrSessionMissingAccountID = "Verification session has no linked Roblox account"
)

// StaffVerifier is the slice of the credential store verification needs.
type StaffVerifier interface {
	GetByUsername(ctx context.Context, username string) (*domain.StaffAccount, error)
	MarkVerified(ctx context.Context, id string) error
}

// VerificationService runs the profile-code ownership check.
type VerificationService struct {
	sessions   repository.VerificationSessionRepository
	identity   IdentityLookup
	staff      StaffVerifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	codeLength int
	expiry     time.Duration
	now        func() time.Time
}

// VerificationDependencies encapsulates collaborators for verification.
type VerificationDependencies struct {
	SessionRepo repository.VerificationSessionRepository
	Identity    IdentityLookup
	Staff       StaffVerifier
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewVerificationService constructs the service.
func NewVerificationService(cfg config.Config, deps VerificationDependencies) *VerificationService {
	codeLength := cfg.Verification.CodeLength
	if codeLength <= 0 {
		codeLength = 6
	}
	expiry := cfg.Verification.Expiry()
	if expiry <= 0 {
		expiry = 10 * time.Minute
	}
	return &VerificationService{
		sessions:   deps.SessionRepo,
		identity:   deps.Identity,
		staff:      deps.Staff,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		codeLength: codeLength,
		expiry:     expiry,
		now:        clockOrDefault(deps.Now),
	}
}

// SessionStart is returned when a verification begins.
type SessionStart struct {
	Session      *domain.VerificationSession
	Instructions string
}

// VerificationResult is the outcome of a verify call.
type VerificationResult struct {
	Success bool
	Session *domain.VerificationSession
	Error   string
}

// CreateSession validates the username and replaces any earlier session for it.
func (s *VerificationService) CreateSession(ctx context.Context, username string) (*SessionStart, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", nil)
	}

	validation := s.identity.Validate(ctx, username)
	if !validation.Valid {
		return nil, apperrors.NewValidationError(validation.Error, map[string]any{"username": username})
	}

	code, err := auth.GenerateCode(auth.VerificationAlphabet, s.codeLength)
	if err != nil {
		return nil, err
	}

	now := s.now()
	externalID := validation.Profile.ID
	session := &domain.VerificationSession{
		Username:   username,
		ExternalID: &externalID,
		Code:       code,
		ExpiresAt:  now.Add(s.expiry),
		CreatedAt:  now,
	}
	if err := s.sessions.Replace(ctx, session); err != nil {
		return nil, fmt.Errorf("store verification session: %w", err)
	}

	s.logger.Debug("verification session created", zap.String("session_id", session.ID), zap.String("username", username))
	return &SessionStart{Session: session, Instructions: s.instructions(code)}, nil
}

func (s *VerificationService) instructions(code string) string {
	return fmt.Sprintf(
		"Add the code %s anywhere in your Roblox profile description, then confirm within %d minutes. You can remove it once verification succeeds.",
		code, int(s.expiry/time.Minute))
}

// GetByID fetches a session.
func (s *VerificationService) GetByID(ctx context.Context, id string) (*domain.VerificationSession, error) {
	if !domain.ValidID(id) {
		return nil, apperrors.NewNotFound("verification session", map[string]any{"id": id})
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("verification session", map[string]any{"id": id})
		}
		return nil, fmt.Errorf("lookup verification session: %w", err)
	}
	return session, nil
}

// GetActiveSession returns the newest incomplete, unexpired session for username.
func (s *VerificationService) GetActiveSession(ctx context.Context, username string) (*domain.VerificationSession, error) {
	username = domain.NormalizeUsername(username)
	session, err := s.sessions.GetActive(ctx, username, s.now())
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("active verification session", map[string]any{"username": username})
		}
		return nil, fmt.Errorf("lookup active verification session: %w", err)
	}
	return session, nil
}

// VerifySession checks the Roblox profile for the session code. Every branch is
// terminal for the call; a failed check leaves the session open for a retry.
func (s *VerificationService) VerifySession(ctx context.Context, id string) (VerificationResult, error) {
	if !domain.ValidID(id) {
		return VerificationResult{Error: ErrSessionNotFound}, nil
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return VerificationResult{Error: ErrSessionNotFound}, nil
		}
		return VerificationResult{}, fmt.Errorf("lookup verification session: %w", err)
	}

	now := s.now()
	switch {
	case session.Completed:
		return VerificationResult{Session: session, Error: ErrSessionCompleted}, nil
	case session.ExpiredAt(now):
		return VerificationResult{Session: session, Error: ErrSessionExpired}, nil
	case session.ExternalID == nil:
		return VerificationResult{Session: session, Error: ErrSessionMissingAccountID}, nil
	}

	if !s.identity.ConfirmCodePresent(ctx, *session.ExternalID, session.Code) {
		return VerificationResult{
			Session: session,
			Error:   fmt.Sprintf("Verification code not found. Make sure your Roblox profile description contains: %s", session.Code),
		}, nil
	}

	if err := s.sessions.MarkCompleted(ctx, session.ID); err != nil {
		return VerificationResult{}, fmt.Errorf("complete verification session: %w", err)
	}
	session.Completed = true

	var staffID *string
	if s.staff != nil {
		staff, err := s.staff.GetByUsername(ctx, session.Username)
		switch {
		case err == nil:
			if err := s.staff.MarkVerified(ctx, staff.ID); err != nil {
				return VerificationResult{}, err
			}
			staffID = &staff.ID
		case !apperrors.IsNotFound(err):
			return VerificationResult{}, err
		}
	}

	s.logger.Info("verification completed", zap.String("session_id", session.ID), zap.String("username", session.Username))
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventStaffVerified, session.Username, staffID, now,
		events.StaffVerifiedPayload{SessionID: session.ID, ExternalID: *session.ExternalID}))

	return VerificationResult{Success: true, Session: session}, nil
}

// CleanupExpiredSessions purges sessions whose expiry has passed, completed or not.
func (s *VerificationService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return removed, nil
}
