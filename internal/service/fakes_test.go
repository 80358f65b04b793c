package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/staff-portal/internal/config"
	"github.com/spec-kit/staff-portal/internal/domain"
	"github.com/spec-kit/staff-portal/internal/identity"
	"github.com/spec-kit/staff-portal/internal/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() config.Config {
	return config.Config{
		Auth:         config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4, PINLength: 4},
		Lockout:      config.LockoutConfig{MaxAttempts: 5, WindowMinutes: 15, AttemptRetentionDays: 30},
		Verification: config.VerificationConfig{CodeLength: 6, ExpiryMinutes: 10},
	}
}

type memoryStaffRepo struct {
	mu     sync.Mutex
	seq    int
	byID   map[string]*domain.StaffAccount
	clock  *testClock
	failOn string
}

var _ repository.StaffRepository = (*memoryStaffRepo)(nil)

func newMemoryStaffRepo(clock *testClock) *memoryStaffRepo {
	return &memoryStaffRepo{byID: map[string]*domain.StaffAccount{}, clock: clock}
}

func (r *memoryStaffRepo) Create(_ context.Context, staff *domain.StaffAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.Username == staff.Username {
			return repository.ErrDuplicate
		}
	}
	r.seq++
	staff.ID = uuid.NewString()
	staff.CreatedAt = r.clock.Now().Add(time.Duration(r.seq) * time.Second)
	staff.UpdatedAt = staff.CreatedAt
	cp := *staff
	r.byID[staff.ID] = &cp
	return nil
}

func (r *memoryStaffRepo) Update(_ context.Context, staff *domain.StaffAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *staff
	r.byID[staff.ID] = &cp
	return nil
}

func (r *memoryStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffAccount, error) {
	if err := uuidColumn(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r *memoryStaffRepo) GetByUsername(_ context.Context, username string) (*domain.StaffAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == "GetByUsername" {
		return nil, context.DeadlineExceeded
	}
	for _, s := range r.byID {
		if s.Username == domain.NormalizeUsername(username) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryStaffRepo) GetByExternalID(_ context.Context, externalID int64) (*domain.StaffAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.ExternalID != nil && *s.ExternalID == externalID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryStaffRepo) List(_ context.Context, includeInactive bool) ([]domain.StaffAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StaffAccount
	for _, s := range r.byID {
		if !includeInactive && !s.Active {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryStaffRepo) SetVerified(_ context.Context, id string) error {
	if err := uuidColumn(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.Verified = true
	return nil
}

func (r *memoryStaffRepo) TouchLastActive(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.LastActiveAt = &at
	return nil
}

func (r *memoryStaffRepo) Delete(_ context.Context, id string) (bool, error) {
	if err := uuidColumn(id); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

type memorySessionRepo struct {
	mu         sync.Mutex
	seq        int
	byUsername map[string]*domain.VerificationSession
}

var _ repository.VerificationSessionRepository = (*memorySessionRepo)(nil)

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{byUsername: map[string]*domain.VerificationSession{}}
}

func (r *memorySessionRepo) Replace(_ context.Context, session *domain.VerificationSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	session.ID = uuid.NewString()
	session.Username = domain.NormalizeUsername(session.Username)
	session.Completed = false
	cp := *session
	r.byUsername[session.Username] = &cp
	return nil
}

func (r *memorySessionRepo) GetByID(_ context.Context, id string) (*domain.VerificationSession, error) {
	if err := uuidColumn(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byUsername {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memorySessionRepo) GetActive(_ context.Context, username string, now time.Time) (*domain.VerificationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUsername[domain.NormalizeUsername(username)]
	if !ok || !s.ActiveAt(now) {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r *memorySessionRepo) MarkCompleted(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byUsername {
		if s.ID == id {
			s.Completed = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memorySessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for name, s := range r.byUsername {
		if !now.Before(s.ExpiresAt) {
			delete(r.byUsername, name)
			removed++
		}
	}
	return removed, nil
}

func (r *memorySessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUsername)
}

type memoryAttemptRepo struct {
	mu       sync.Mutex
	seq      int
	attempts []domain.LoginAttempt
}

var _ repository.LoginAttemptRepository = (*memoryAttemptRepo)(nil)

func (r *memoryAttemptRepo) Create(_ context.Context, attempt *domain.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	attempt.ID = uuid.NewString()
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *memoryAttemptRepo) failures(match func(domain.LoginAttempt) bool, since time.Time) []domain.LoginAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LoginAttempt
	for i := len(r.attempts) - 1; i >= 0; i-- {
		a := r.attempts[i]
		if !a.Success && !a.CreatedAt.Before(since) && match(a) {
			out = append(out, a)
		}
	}
	return out
}

func (r *memoryAttemptRepo) FailuresByUsernameSince(_ context.Context, username string, since time.Time) ([]domain.LoginAttempt, error) {
	return r.failures(func(a domain.LoginAttempt) bool { return a.Username == username }, since), nil
}

func (r *memoryAttemptRepo) FailuresByAddressSince(_ context.Context, address string, since time.Time) ([]domain.LoginAttempt, error) {
	return r.failures(func(a domain.LoginAttempt) bool { return a.IPAddress == address }, since), nil
}

func (r *memoryAttemptRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attempts[:0]
	var removed int64
	for _, a := range r.attempts {
		if a.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept
	return removed, nil
}

func (r *memoryAttemptRepo) all() []domain.LoginAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LoginAttempt(nil), r.attempts...)
}

// fakeIdentity stands in for the Roblox client.
type fakeIdentity struct {
	mu           sync.Mutex
	profiles     map[string]*identity.Profile
	banned       map[string]bool
	descriptions map[int64]string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		profiles:     map[string]*identity.Profile{},
		banned:       map[string]bool{},
		descriptions: map[int64]string{},
	}
}

func (f *fakeIdentity) add(name string, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[strings.ToLower(name)] = &identity.Profile{ID: id, Name: name, DisplayName: name}
}

func (f *fakeIdentity) setDescription(id int64, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.descriptions[id] = description
}

func (f *fakeIdentity) Validate(_ context.Context, username string) identity.ValidationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[strings.ToLower(username)]
	if !ok {
		return identity.ValidationResult{Error: identity.ErrUsernameNotFound}
	}
	if f.banned[strings.ToLower(username)] {
		return identity.ValidationResult{Profile: p, Error: identity.ErrAccountBanned}
	}
	avatar := "https://cdn.example/avatar.png"
	return identity.ValidationResult{Valid: true, Profile: p, AvatarURL: &avatar}
}

func (f *fakeIdentity) ConfirmCodePresent(_ context.Context, externalID int64, code string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Contains(f.descriptions[externalID], code)
}

type fakeTokens struct{}

func (fakeTokens) GenerateToken(staff *domain.StaffAccount) (string, time.Time, error) {
	return "token-" + staff.ID, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), nil
}

// uuidColumn mirrors Postgres rejecting a malformed value for a uuid column.
func uuidColumn(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}
	}
	return nil
}
