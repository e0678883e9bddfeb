package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrNotConnected = errors.New("not connected to RabbitMQ")
)

// EventHandler receives events decoded from the exchange
type EventHandler func(ctx context.Context, event domain.Event)

// EventConsumer binds a private queue to the fanout exchange so this
// instance sees every event.
type EventConsumer struct {
	conn       *Connection
	handler    EventHandler
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewEventConsumer creates an event consumer
func NewEventConsumer(conn *Connection, handler EventHandler) *EventConsumer {
	return &EventConsumer{
		conn:    conn,
		handler: handler,
	}
}

// Start binds the queue and begins consuming
func (c *EventConsumer) Start(ctx context.Context) error {
	msgs, err := c.bind()
	if err != nil {
		return err
	}

	ctx, c.cancelFunc = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.consume(ctx, msgs)

	slog.Info("started event consumer", "exchange", c.conn.Exchange())
	return nil
}

// bind declares an exclusive server-named queue on the current channel
func (c *EventConsumer) bind() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil || ch.IsClosed() {
		return nil, ErrNotConnected
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare event queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", c.conn.Exchange(), false, nil); err != nil {
		return nil, fmt.Errorf("bind event queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		true,  // auto-ack (events are best-effort)
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume event queue: %w", err)
	}
	return msgs, nil
}

func (c *EventConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				msgs, ok = c.rebind(ctx)
				if !ok {
					return
				}
				continue
			}

			event, err := decodeEvent(msg.Body)
			if err != nil {
				slog.Error("failed to decode event", "error", err)
				continue
			}
			c.handler(ctx, event)
		}
	}
}

// rebind waits for the connection to come back and binds a new queue
func (c *EventConsumer) rebind(ctx context.Context) (<-chan amqp.Delivery, bool) {
	for i := range maxReconnectAttempts + 1 {
		if c.conn.isClosed() {
			return nil, false
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(backoff(i)):
		}

		msgs, err := c.bind()
		if err == nil {
			slog.Info("event consumer rebound", "attempts", i+1)
			return msgs, true
		}
		slog.Warn("event consumer rebind failed", "error", err, "attempt", i+1)
	}

	slog.Error("event consumer giving up after reconnect failures")
	return nil, false
}

// Stop stops the consumer
func (c *EventConsumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("event consumer stopped")
}
