package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-portal/internal/events"
	"github.com/spec-kit/staff-portal/internal/identity"
)

// IdentityLookup is the part of the Roblox client the services depend on.
type IdentityLookup interface {
	Validate(ctx context.Context, username string) identity.ValidationResult
	ConfirmCodePresent(ctx context.Context, externalID int64, code string) bool
}

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// publish fans an event out without letting subscriber failures fail the caller.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
