package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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
	ErrStaffNotFound      = "Staff member not found"
	ErrAccountDeactivated = "Account is deactivated"
	ErrInvalidPIN         = "Invalid PIN"
)

// CredentialService owns staff accounts and their PINs.
type CredentialService struct {
	staff      repository.StaffRepository
	identity   IdentityLookup
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	pinLength  int
	now        func() time.Time
}

// CredentialDependencies encapsulates collaborators for the credential store.
type CredentialDependencies struct {
	StaffRepo  repository.StaffRepository
	Identity   IdentityLookup
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewCredentialService constructs the service.
func NewCredentialService(cfg config.Config, deps CredentialDependencies) *CredentialService {
	pinLength := cfg.Auth.PINLength
	if pinLength <= 0 {
		pinLength = auth.DefaultPINLength
	}
	return &CredentialService{
		staff:      deps.StaffRepo,
		identity:   deps.Identity,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		bcryptCost: cfg.Auth.BcryptCost,
		pinLength:  pinLength,
		now:        clockOrDefault(deps.Now),
	}
}

// CreateStaffInput describes a new staff account.
type CreateStaffInput struct {
	Username    string
	DisplayName string
	Role        domain.StaffRole
	Permissions *domain.PermissionOverrides
	PIN         string
}

// CreatedStaff carries the plaintext PIN. It is never retrievable again.
type CreatedStaff struct {
	Staff *domain.StaffAccount
	PIN   string
}

// PINReset carries the replacement plaintext PIN.
type PINReset struct {
	Staff *domain.StaffAccount
	PIN   string
}

// UpdateStaffInput lists mutable fields; nil means keep.
type UpdateStaffInput struct {
	DisplayName *string
	Role        *domain.StaffRole
	Permissions *domain.PermissionOverrides
	Active      *bool
}

func (in UpdateStaffInput) empty() bool {
	return in.DisplayName == nil && in.Role == nil && in.Permissions == nil && in.Active == nil
}

// CredentialResult is the outcome of a PIN check.
type CredentialResult struct {
	Success bool
	Staff   *domain.StaffAccount
	Error   string
}

// Create validates the username against Roblox and stores a new account.
func (s *CredentialService) Create(ctx context.Context, input CreateStaffInput) (*CreatedStaff, error) {
	username := domain.NormalizeUsername(input.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", nil)
	}

	role := input.Role
	if role == "" {
		role = domain.DefaultStaffRole
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}

	pin := input.PIN
	if pin != "" && !auth.ValidPIN(pin) {
		return nil, apperrors.NewValidationError(pinRuleMessage, nil)
	}

	validation := s.identity.Validate(ctx, username)
	if !validation.Valid {
		return nil, apperrors.NewValidationError(validation.Error, map[string]any{"username": username})
	}

	if _, err := s.staff.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("staff member already exists", map[string]any{"username": username})
	} else if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("lookup staff by username: %w", err)
	}

	if pin == "" {
		generated, err := auth.GeneratePIN(s.pinLength)
		if err != nil {
			return nil, err
		}
		pin = generated
	}
	hash, err := auth.HashPIN(pin, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = validation.Profile.DisplayName
	}
	externalID := validation.Profile.ID

	staff := &domain.StaffAccount{
		Username:    username,
		DisplayName: displayName,
		ExternalID:  &externalID,
		AvatarURL:   validation.AvatarURL,
		PINHash:     hash,
		Role:        role,
		Permissions: domain.DefaultPermissions(role).Apply(input.Permissions),
		Active:      true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("staff member already exists", map[string]any{"username": username})
		}
		return nil, fmt.Errorf("create staff: %w", err)
	}

	s.logger.Info("staff created", zap.String("staff_id", staff.ID), zap.String("username", username), zap.String("role", string(role)))
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventStaffCreated, username, &staff.ID, s.now(),
		events.StaffCreatedPayload{Role: role, ExternalID: staff.ExternalID}))

	return &CreatedStaff{Staff: staff, PIN: pin}, nil
}

var pinRuleMessage = fmt.Sprintf("PIN must be %d to %d digits", auth.MinPINLength, auth.MaxPINLength)

// ResetPIN replaces the PIN of an account, generating one when newPIN is empty.
func (s *CredentialService) ResetPIN(ctx context.Context, id, newPIN string) (*PINReset, error) {
	if newPIN != "" && !auth.ValidPIN(newPIN) {
		return nil, apperrors.NewValidationError(pinRuleMessage, nil)
	}
	staff, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pin := newPIN
	if pin == "" {
		if pin, err = auth.GeneratePIN(s.pinLength); err != nil {
			return nil, err
		}
	}
	hash, err := auth.HashPIN(pin, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	staff.PINHash = hash
	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, fmt.Errorf("update staff pin: %w", err)
	}

	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventStaffPINReset, staff.Username, &staff.ID, s.now(), nil))
	return &PINReset{Staff: staff, PIN: pin}, nil
}

// VerifyCredentials checks a username/PIN pair. Policy failures are reported in
// the result; only storage failures are returned as errors.
func (s *CredentialService) VerifyCredentials(ctx context.Context, username, pin string) (CredentialResult, error) {
	staff, err := s.staff.GetByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return CredentialResult{Error: ErrStaffNotFound}, nil
		}
		return CredentialResult{}, fmt.Errorf("lookup staff by username: %w", err)
	}
	if !staff.Active {
		return CredentialResult{Error: ErrAccountDeactivated}, nil
	}
	if err := auth.ComparePIN(staff.PINHash, pin); err != nil {
		return CredentialResult{Error: ErrInvalidPIN}, nil
	}

	now := s.now()
	if err := s.staff.TouchLastActive(ctx, staff.ID, now); err != nil {
		return CredentialResult{}, fmt.Errorf("touch last active: %w", err)
	}
	staff.LastActiveAt = &now
	return CredentialResult{Success: true, Staff: staff}, nil
}

// MarkVerified flags the account as verified. Calling it again is a no-op.
func (s *CredentialService) MarkVerified(ctx context.Context, id string) error {
	if !domain.ValidID(id) {
		return apperrors.NewNotFound("staff member", map[string]any{"id": id})
	}
	if err := s.staff.SetVerified(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("staff member", map[string]any{"id": id})
		}
		return fmt.Errorf("mark staff verified: %w", err)
	}
	return nil
}

// GetByID fetches an account.
func (s *CredentialService) GetByID(ctx context.Context, id string) (*domain.StaffAccount, error) {
	if !domain.ValidID(id) {
		return nil, apperrors.NewNotFound("staff member", map[string]any{"id": id})
	}
	staff, err := s.staff.GetByID(ctx, id)
	return staffOrNotFound(staff, err, "id", id)
}

// GetByUsername fetches an account case-insensitively.
func (s *CredentialService) GetByUsername(ctx context.Context, username string) (*domain.StaffAccount, error) {
	username = domain.NormalizeUsername(username)
	staff, err := s.staff.GetByUsername(ctx, username)
	return staffOrNotFound(staff, err, "username", username)
}

// GetByExternalID fetches the account linked to a Roblox user id.
func (s *CredentialService) GetByExternalID(ctx context.Context, externalID int64) (*domain.StaffAccount, error) {
	staff, err := s.staff.GetByExternalID(ctx, externalID)
	return staffOrNotFound(staff, err, "external_id", externalID)
}

// GetAll lists accounts newest first.
func (s *CredentialService) GetAll(ctx context.Context, includeInactive bool) ([]domain.StaffAccount, error) {
	staff, err := s.staff.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

// Update merges the provided fields. A role change resets permissions to the
// new role's defaults before overrides are applied.
func (s *CredentialService) Update(ctx context.Context, id string, input UpdateStaffInput) (*domain.StaffAccount, error) {
	staff, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.empty() {
		return staff, nil
	}

	if input.DisplayName != nil {
		staff.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *input.Role})
		}
		if *input.Role != staff.Role {
			staff.Role = *input.Role
			staff.Permissions = domain.DefaultPermissions(staff.Role)
		}
	}
	staff.Permissions = staff.Permissions.Apply(input.Permissions)
	if input.Active != nil {
		staff.Active = *input.Active
	}

	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, fmt.Errorf("update staff: %w", err)
	}
	return staff, nil
}

// Delete removes an account, reporting whether it existed.
func (s *CredentialService) Delete(ctx context.Context, id string) (bool, error) {
	if !domain.ValidID(id) {
		return false, nil
	}
	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("lookup staff: %w", err)
	}
	deleted, err := s.staff.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete staff: %w", err)
	}
	if deleted {
		publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventStaffDeleted, staff.Username, &staff.ID, s.now(), nil))
	}
	return deleted, nil
}

func staffOrNotFound(staff *domain.StaffAccount, err error, key string, value any) (*domain.StaffAccount, error) {
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("staff member", map[string]any{key: value})
		}
		return nil, fmt.Errorf("lookup staff: %w", err)
	}
	return staff, nil
}
