package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-portal/internal/config"
	"github.com/spec-kit/staff-portal/internal/domain"
	"github.com/spec-kit/staff-portal/internal/events"
	"github.com/spec-kit/staff-portal/internal/repository"
)

// ReasonAccountLocked is stored on attempts rejected by an active lockout.
const ReasonAccountLocked = "account locked"

// CredentialVerifier checks a username/PIN pair.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, pin string) (CredentialResult, error)
}

// TokenIssuer signs session tokens for authenticated staff.
type TokenIssuer interface {
	GenerateToken(staff *domain.StaffAccount) (string, time.Time, error)
}

// LoginGate applies account and address lockouts in front of the credential check.
type LoginGate struct {
	attempts      repository.LoginAttemptRepository
	credentials   CredentialVerifier
	tokens        TokenIssuer
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	maxAttempts   int
	window        time.Duration
	retentionDays int
	now           func() time.Time
}

// LoginGateDependencies encapsulates collaborators for the login gate.
type LoginGateDependencies struct {
	AttemptRepo repository.LoginAttemptRepository
	Credentials CredentialVerifier
	Tokens      TokenIssuer
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewLoginGate constructs the gate.
func NewLoginGate(cfg config.Config, deps LoginGateDependencies) *LoginGate {
	maxAttempts := cfg.Lockout.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	window := cfg.Lockout.Window()
	if window <= 0 {
		window = 15 * time.Minute
	}
	retention := cfg.Lockout.AttemptRetentionDays
	if retention <= 0 {
		retention = 30
	}
	return &LoginGate{
		attempts:      deps.AttemptRepo,
		credentials:   deps.Credentials,
		tokens:        deps.Tokens,
		dispatcher:    deps.Dispatcher,
		logger:        loggerOrNop(deps.Logger),
		maxAttempts:   maxAttempts,
		window:        window,
		retentionDays: retention,
		now:           clockOrDefault(deps.Now),
	}
}

// LockoutStatus reports whether a login may proceed.
type LockoutStatus struct {
	Locked           bool
	Reason           string
	RemainingMinutes int
}

// LoginResult is the outcome of a login call.
type LoginResult struct {
	Success           bool
	Staff             *domain.StaffAccount
	Token             string
	ExpiresAt         time.Time
	Error             string
	AttemptsRemaining int
	RemainingMinutes  int
}

// RecordAttempt appends one row to the attempt log.
func (g *LoginGate) RecordAttempt(ctx context.Context, username, address string, success bool, reason string) error {
	attempt := &domain.LoginAttempt{
		Username:  domain.NormalizeUsername(username),
		IPAddress: address,
		Success:   success,
		CreatedAt: g.now(),
	}
	if reason != "" {
		attempt.FailureReason = &reason
	}
	if err := g.attempts.Create(ctx, attempt); err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}
	return nil
}

// RecentFailures returns failed attempts for username inside window, newest first.
func (g *LoginGate) RecentFailures(ctx context.Context, username string, window time.Duration) ([]domain.LoginAttempt, error) {
	failures, err := g.attempts.FailuresByUsernameSince(ctx, domain.NormalizeUsername(username), g.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("count failures by username: %w", err)
	}
	return failures, nil
}

// RecentFailuresByAddress returns failed attempts from address inside window, newest first.
func (g *LoginGate) RecentFailuresByAddress(ctx context.Context, address string, window time.Duration) ([]domain.LoginAttempt, error) {
	failures, err := g.attempts.FailuresByAddressSince(ctx, address, g.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("count failures by address: %w", err)
	}
	return failures, nil
}

// IsLockedOut evaluates the account threshold first, then the address threshold
// of twice the account limit.
func (g *LoginGate) IsLockedOut(ctx context.Context, username, address string) (LockoutStatus, error) {
	byUser, err := g.RecentFailures(ctx, username, g.window)
	if err != nil {
		return LockoutStatus{}, err
	}
	if len(byUser) >= g.maxAttempts {
		remaining := g.remainingMinutes(byUser)
		return LockoutStatus{
			Locked:           true,
			Reason:           fmt.Sprintf("Account locked due to too many failed login attempts. Try again in %d minute(s)", remaining),
			RemainingMinutes: remaining,
		}, nil
	}

	if address == "" {
		return LockoutStatus{}, nil
	}
	byAddress, err := g.RecentFailuresByAddress(ctx, address, g.window)
	if err != nil {
		return LockoutStatus{}, err
	}
	if len(byAddress) >= 2*g.maxAttempts {
		remaining := g.remainingMinutes(byAddress)
		return LockoutStatus{
			Locked:           true,
			Reason:           fmt.Sprintf("Too many failed login attempts from this address. Try again in %d minute(s)", remaining),
			RemainingMinutes: remaining,
		}, nil
	}
	return LockoutStatus{}, nil
}

// remainingMinutes rounds up the time until the oldest failure leaves the window.
func (g *LoginGate) remainingMinutes(failures []domain.LoginAttempt) int {
	oldest := failures[len(failures)-1].CreatedAt
	left := oldest.Add(g.window).Sub(g.now())
	minutes := int(math.Ceil(left.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Login checks lockouts, verifies the PIN, records the attempt and issues a token.
// A locked-out call is itself recorded so hammering keeps the address counter growing.
func (g *LoginGate) Login(ctx context.Context, username, pin, address string) (LoginResult, error) {
	username = domain.NormalizeUsername(username)

	status, err := g.IsLockedOut(ctx, username, address)
	if err != nil {
		return LoginResult{}, err
	}
	if status.Locked {
		if err := g.RecordAttempt(ctx, username, address, false, ReasonAccountLocked); err != nil {
			return LoginResult{}, err
		}
		g.logger.Info("login rejected by lockout",
			zap.String("username", username),
			zap.String("ip", address),
			zap.Int("remaining_minutes", status.RemainingMinutes))
		publish(ctx, g.dispatcher, g.logger, events.NewEvent(events.EventLoginLockedOut, username, nil, g.now(),
			events.LoginLockedOutPayload{IPAddress: address, Reason: status.Reason, RemainingMinutes: status.RemainingMinutes}))
		return LoginResult{Error: status.Reason, RemainingMinutes: status.RemainingMinutes}, nil
	}

	cred, err := g.credentials.VerifyCredentials(ctx, username, pin)
	if err != nil {
		return LoginResult{}, err
	}
	if err := g.RecordAttempt(ctx, username, address, cred.Success, cred.Error); err != nil {
		return LoginResult{}, err
	}

	if !cred.Success {
		failures, err := g.RecentFailures(ctx, username, g.window)
		if err != nil {
			return LoginResult{}, err
		}
		result := LoginResult{Error: cred.Error}
		if left := g.maxAttempts - len(failures); left > 0 {
			result.AttemptsRemaining = left
			result.Error = fmt.Sprintf("%s (%d attempts remaining)", cred.Error, left)
		}
		g.logger.Debug("login failed", zap.String("username", username), zap.String("reason", cred.Error))
		return result, nil
	}

	token, expiresAt, err := g.tokens.GenerateToken(cred.Staff)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Success: true, Staff: cred.Staff, Token: token, ExpiresAt: expiresAt}, nil
}

// CleanupOldAttempts deletes attempts older than daysToKeep days.
func (g *LoginGate) CleanupOldAttempts(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		daysToKeep = g.retentionDays
	}
	cutoff := g.now().AddDate(0, 0, -daysToKeep)
	removed, err := g.attempts.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old login attempts: %w", err)
	}
	return removed, nil
}
