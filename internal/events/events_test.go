package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestDispatcherInvokesAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventStaffVerified, func(_ context.Context, e Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventStaffVerified, func(_ context.Context, e Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventStaffDeleted, func(_ context.Context, e Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventStaffVerified, "TestUser", nil, time.Now(), nil))
	if err == nil {
		t.Error("handler failure should be reported")
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("unexpected handler calls: %v", calls)
	}
}

func TestNewEventNormalizesUsername(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	e := NewEvent(EventLoginLockedOut, "TestUser", nil, at, LoginLockedOutPayload{IPAddress: "10.0.0.1", RemainingMinutes: 3})
	if e.ID == "" {
		t.Error("event id should be set")
	}
	if e.Username != "testuser" {
		t.Errorf("expected normalized username, got %q", e.Username)
	}
	if e.Timestamp.Location() != time.UTC {
		t.Error("timestamp should be UTC")
	}

	body, err := encodeEvent(e)
	if err != nil {
		t.Fatalf("encodeEvent: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != string(EventLoginLockedOut) {
		t.Errorf("unexpected type %v", decoded["type"])
	}
}

func TestNewAMQPPublisherDisabledWithoutURL(t *testing.T) {
	if NewAMQPPublisher("", "q") != nil {
		t.Error("empty url should disable publishing")
	}
	var p *AMQPPublisher
	if err := p.Publish(context.Background(), Event{}); err == nil {
		t.Error("nil publisher should refuse to publish")
	}
}

func TestDispatcherStampsBareEvents(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got Event
	d.Subscribe(EventStaffDeleted, func(_ context.Context, e Event) error {
		got = e
		return nil
	})
	if err := d.Publish(context.Background(), Event{Type: EventStaffDeleted, Username: "x"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.ID == "" || got.Timestamp.IsZero() {
		t.Errorf("event should be stamped, got %+v", got)
	}
}

func TestAMQPPublishGivesUpOnStalledDial(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	p := &AMQPPublisher{url: "amqp://broker", queue: "q", dial: func(string) (*amqp.Connection, error) {
		<-release
		return nil, errors.New("dial released")
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Publish(ctx, NewEvent(EventLoginLockedOut, "x", nil, time.Now(), nil))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("publish should return with ctx, took %s", elapsed)
	}
}

func TestAMQPPublishReportsDialFailure(t *testing.T) {
	p := &AMQPPublisher{url: "amqp://broker", queue: "q", dial: func(string) (*amqp.Connection, error) {
		return nil, errors.New("connection refused")
	}}
	err := p.Publish(context.Background(), NewEvent(EventStaffCreated, "x", nil, time.Now(), nil))
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected dial error, got %v", err)
	}
}
