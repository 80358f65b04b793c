package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-portal/internal/events"
)

// forwardTimeout bounds a single broker publish.
const forwardTimeout = 5 * time.Second

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewNotificationService creates the service. publisher may be nil, in which
// case events are only logged.
func NewNotificationService(dispatcher events.Dispatcher, publisher events.Publisher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     loggerOrNop(logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventStaffCreated, n.handleStaffEvent)
	n.dispatcher.Subscribe(events.EventStaffPINReset, n.handleStaffEvent)
	n.dispatcher.Subscribe(events.EventStaffVerified, n.handleStaffEvent)
	n.dispatcher.Subscribe(events.EventStaffDeleted, n.handleStaffEvent)
	n.dispatcher.Subscribe(events.EventLoginLockedOut, n.handleLockout)
}

func (n *NotificationService) handleStaffEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("username", event.Username), zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) handleLockout(ctx context.Context, event events.Event) error {
	n.logger.Warn("login lockout", zap.String("username", event.Username), zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	if n.publisher == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Warn("forward event failed", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	return nil
}
