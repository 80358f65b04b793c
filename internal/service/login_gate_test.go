package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/staff-portal/internal/events"
)

func seedStaff(t *testing.T, h *harness, pin string) {
	t.Helper()
	if _, err := h.credentials.Create(context.Background(), CreateStaffInput{Username: "TestUser", PIN: pin}); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestLoginSuccessAndWrongPIN(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.credentials.Create(ctx, CreateStaffInput{Username: "TestUser"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := h.gate.Login(ctx, "TestUser", created.PIN, "10.0.0.1")
	if err != nil || !res.Success {
		t.Fatalf("expected success, got %+v, %v", res, err)
	}
	if res.Token == "" || res.Staff == nil {
		t.Error("successful login should issue a token")
	}

	wrong := "1000"
	if created.PIN == wrong {
		wrong = "1001"
	}
	res, err = h.gate.Login(ctx, "testuser", wrong, "10.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Success || !strings.HasPrefix(res.Error, ErrInvalidPIN) {
		t.Fatalf("expected invalid PIN, got %+v", res)
	}
	if res.AttemptsRemaining != 4 || !strings.Contains(res.Error, "(4 attempts remaining)") {
		t.Errorf("expected 4 attempts remaining, got %+v", res)
	}

	attempts := h.attemptRepo.all()
	if len(attempts) != 2 || !attempts[0].Success || attempts[1].Success {
		t.Fatalf("expected one success then one failure, got %+v", attempts)
	}
	if attempts[1].FailureReason == nil || *attempts[1].FailureReason != ErrInvalidPIN {
		t.Errorf("failure reason should be recorded, got %v", attempts[1].FailureReason)
	}
}

func TestLoginLocksAfterMaxFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedStaff(t, h, "2468")

	for i := 1; i <= 5; i++ {
		res, err := h.gate.Login(ctx, "TestUser", "0000", "10.0.0.1")
		if err != nil {
			t.Fatalf("Login #%d: %v", i, err)
		}
		if res.Success {
			t.Fatalf("attempt %d should fail", i)
		}
		if i == 5 && strings.Contains(res.Error, "remaining") {
			t.Errorf("no remaining count once the threshold is reached: %q", res.Error)
		}
		h.clock.Advance(time.Minute)
	}

	res, err := h.gate.Login(ctx, "TestUser", "2468", "10.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Success {
		t.Fatal("correct PIN must be rejected while locked")
	}
	if !strings.Contains(res.Error, "locked") || res.RemainingMinutes <= 0 {
		t.Errorf("expected lockout message with minutes, got %+v", res)
	}
	// Oldest failure was 5 minutes ago, so 10 minutes remain.
	if res.RemainingMinutes != 10 {
		t.Errorf("expected 10 remaining minutes, got %d", res.RemainingMinutes)
	}

	attempts := h.attemptRepo.all()
	last := attempts[len(attempts)-1]
	if last.Success || last.FailureReason == nil || *last.FailureReason != ReasonAccountLocked {
		t.Errorf("locked attempt should be recorded as failure, got %+v", last)
	}
	if h.countEvents(events.EventLoginLockedOut) != 1 {
		t.Error("expected login_locked_out event")
	}
}

func TestLockoutExpiresWithWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedStaff(t, h, "2468")

	for i := 0; i < 5; i++ {
		_, _ = h.gate.Login(ctx, "TestUser", "0000", "10.0.0.1")
	}
	status, _ := h.gate.IsLockedOut(ctx, "testuser", "10.0.0.1")
	if !status.Locked || status.RemainingMinutes != 15 {
		t.Fatalf("expected fresh 15 minute lock, got %+v", status)
	}

	h.clock.Advance(15*time.Minute + time.Second)
	res, err := h.gate.Login(ctx, "TestUser", "2468", "10.0.0.1")
	if err != nil || !res.Success {
		t.Fatalf("login should succeed after the window, got %+v, %v", res, err)
	}
}

func TestRemainingMinutesRoundsUp(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = h.gate.RecordAttempt(ctx, "testuser", "10.0.0.9", false, ErrInvalidPIN)
	}
	h.clock.Advance(90 * time.Second)

	status, err := h.gate.IsLockedOut(ctx, "TestUser", "10.0.0.9")
	if err != nil {
		t.Fatalf("IsLockedOut: %v", err)
	}
	if status.RemainingMinutes != 14 {
		t.Errorf("13.5 minutes should round up to 14, got %d", status.RemainingMinutes)
	}
}

func TestAddressLockoutUsesDoubleThreshold(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		_ = h.gate.RecordAttempt(ctx, "user"+string(rune('a'+i)), "10.0.0.7", false, ErrStaffNotFound)
	}
	status, _ := h.gate.IsLockedOut(ctx, "someone", "10.0.0.7")
	if status.Locked {
		t.Fatalf("9 address failures should not lock, got %+v", status)
	}

	_ = h.gate.RecordAttempt(ctx, "userz", "10.0.0.7", false, ErrStaffNotFound)
	status, _ = h.gate.IsLockedOut(ctx, "someone", "10.0.0.7")
	if !status.Locked || !strings.Contains(status.Reason, "address") {
		t.Fatalf("10 address failures should lock, got %+v", status)
	}

	other, _ := h.gate.IsLockedOut(ctx, "someone", "10.0.0.8")
	if other.Locked {
		t.Error("other addresses must not be affected")
	}
}

func TestAccountLockTakesPrecedence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = h.gate.RecordAttempt(ctx, "testuser", "10.0.0.1", false, ErrInvalidPIN)
	}
	status, _ := h.gate.IsLockedOut(ctx, "testuser", "10.0.0.1")
	if !status.Locked || !strings.HasPrefix(status.Reason, "Account locked") {
		t.Errorf("account reason should win, got %+v", status)
	}
}

func TestRecentFailuresNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_ = h.gate.RecordAttempt(ctx, "TestUser", "1.1.1.1", false, "first")
	h.clock.Advance(time.Minute)
	_ = h.gate.RecordAttempt(ctx, "testuser", "1.1.1.1", true, "")
	h.clock.Advance(time.Minute)
	_ = h.gate.RecordAttempt(ctx, "testuser", "1.1.1.1", false, "second")

	failures, err := h.gate.RecentFailures(ctx, "TESTUSER", 15*time.Minute)
	if err != nil {
		t.Fatalf("RecentFailures: %v", err)
	}
	if len(failures) != 2 || *failures[0].FailureReason != "second" {
		t.Errorf("expected two failures newest first, got %+v", failures)
	}

	narrow, _ := h.gate.RecentFailuresByAddress(ctx, "1.1.1.1", 30*time.Second)
	if len(narrow) != 1 {
		t.Errorf("expected one failure in a 30s window, got %d", len(narrow))
	}
}

func TestCleanupOldAttempts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_ = h.gate.RecordAttempt(ctx, "testuser", "1.1.1.1", false, "old")
	h.clock.Advance(31 * 24 * time.Hour)
	_ = h.gate.RecordAttempt(ctx, "testuser", "1.1.1.1", false, "new")

	removed, err := h.gate.CleanupOldAttempts(ctx, 0)
	if err != nil {
		t.Fatalf("CleanupOldAttempts: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected one removal, got %d", removed)
	}
	if remaining := h.attemptRepo.all(); len(remaining) != 1 || *remaining[0].FailureReason != "new" {
		t.Errorf("unexpected remaining attempts %+v", remaining)
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedStaff(t, h, "2468")
	staff, _ := h.credentials.GetByUsername(ctx, "testuser")
	off := false
	_, _ = h.credentials.Update(ctx, staff.ID, UpdateStaffInput{Active: &off})

	res, _ := h.gate.Login(ctx, "testuser", "2468", "")
	if res.Success || !strings.HasPrefix(res.Error, ErrAccountDeactivated) {
		t.Errorf("expected deactivated error, got %+v", res)
	}
}

func TestAccountLockoutThreshold(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = h.gate.RecordAttempt(ctx, "testuser", "10.0.1."+string(rune('1'+i)), false, ErrInvalidPIN)
	}
	status, err := h.gate.IsLockedOut(ctx, "TestUser", "10.0.2.1")
	if err != nil {
		t.Fatalf("IsLockedOut: %v", err)
	}
	if status.Locked {
		t.Fatalf("4 account failures should not lock, got %+v", status)
	}

	_ = h.gate.RecordAttempt(ctx, "testuser", "10.0.1.9", false, ErrInvalidPIN)
	status, _ = h.gate.IsLockedOut(ctx, "TestUser", "10.0.2.1")
	if !status.Locked || !strings.HasPrefix(status.Reason, "Account locked") || status.RemainingMinutes != 15 {
		t.Fatalf("5 account failures should lock for 15 minutes, got %+v", status)
	}

	other, _ := h.gate.IsLockedOut(ctx, "someoneelse", "10.0.2.1")
	if other.Locked {
		t.Error("other accounts must not be affected")
	}
}
