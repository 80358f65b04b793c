package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionCleaner purges expired verification sessions.
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// AttemptCleaner purges aged login attempts.
type AttemptCleaner interface {
	CleanupOldAttempts(ctx context.Context, daysToKeep int) (int64, error)
}

// CleanupWorker periodically removes expired sessions and old login attempts.
type CleanupWorker struct {
	sessions      SessionCleaner
	attempts      AttemptCleaner
	interval      time.Duration
	retentionDays int
	logger        *zap.Logger
}

// NewCleanupWorker builds the worker. A non-positive interval defaults to one hour.
func NewCleanupWorker(sessions SessionCleaner, attempts AttemptCleaner, interval time.Duration, retentionDays int, logger *zap.Logger) *CleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupWorker{
		sessions:      sessions,
		attempts:      attempts,
		interval:      interval,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Start runs one sweep immediately and then one per interval until ctx is cancelled.
func (w *CleanupWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *CleanupWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("cleanup worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Failures are logged and retried next tick.
func (w *CleanupWorker) RunOnce(ctx context.Context) {
	if w.sessions != nil {
		removed, err := w.sessions.CleanupExpiredSessions(ctx)
		if err != nil {
			w.logger.Warn("session cleanup failed", zap.Error(err))
		} else if removed > 0 {
			w.logger.Info("expired verification sessions removed", zap.Int64("count", removed))
		}
	}
	if w.attempts != nil {
		removed, err := w.attempts.CleanupOldAttempts(ctx, w.retentionDays)
		if err != nil {
			w.logger.Warn("login attempt cleanup failed", zap.Error(err))
		} else if removed > 0 {
			w.logger.Info("old login attempts removed", zap.Int64("count", removed))
		}
	}
}
