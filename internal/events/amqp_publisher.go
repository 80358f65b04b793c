package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher forwards events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// DefaultDialTimeout bounds the TCP connect to the broker.
const DefaultDialTimeout = 3 * time.Second

// AMQPPublisher publishes events as persistent JSON messages on a durable queue.
// A connection is dialed per publish; event volume is a handful per login burst.
type AMQPPublisher struct {
	url   string
	queue string
	dial  func(url string) (*amqp.Connection, error)
}

func dialWithTimeout(timeout time.Duration) func(url string) (*amqp.Connection, error) {
	return func(url string) (*amqp.Connection, error) {
		return amqp.DialConfig(url, amqp.Config{
			Dial:   amqp.DefaultDial(timeout),
			Locale: "en_US",
		})
	}
}

// NewAMQPPublisher returns nil when url is empty so callers can skip publishing.
func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	if url == "" {
		return nil
	}
	if queue == "" {
		queue = "staff.events"
	}
	return &AMQPPublisher{url: url, queue: queue, dial: dialWithTimeout(DefaultDialTimeout)}
}

// Publish marshals event and sends it to the configured queue.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil {
		return errors.New("amqp publisher not configured")
	}

	body, err := encodeEvent(event)
	if err != nil {
		return err
	}

	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// connect dials in the background so a stalled broker cannot hold the caller
// past ctx. A connection that arrives after ctx is done is closed.
func (p *AMQPPublisher) connect(ctx context.Context) (*amqp.Connection, error) {
	type dialed struct {
		conn *amqp.Connection
		err  error
	}
	done := make(chan dialed, 1)
	go func() {
		conn, err := p.dial(p.url)
		done <- dialed{conn: conn, err: err}
	}()

	select {
	case d := <-done:
		if d.err != nil {
			return nil, fmt.Errorf("amqp dial: %w", d.err)
		}
		return d.conn, nil
	case <-ctx.Done():
		go func() {
			if d := <-done; d.conn != nil {
				_ = d.conn.Close()
			}
		}()
		return nil, fmt.Errorf("amqp dial: %w", ctx.Err())
	}
}

func encodeEvent(event Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return body, nil
}
