package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Awhitter/spanish1/internal/domain"
)

// Producer publishes exercise events to the exchange
type Producer struct {
	conn *Connection
}

// NewProducer creates a new event producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// PublishEvent publishes one exercise event
func (p *Producer) PublishEvent(ctx context.Context, event domain.Event) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("publish event: %w", ErrNotConnected)
	}

	if err := p.conn.PublishJSON(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.Debug("published event",
		"event_id", event.ID,
		"kind", event.Kind,
		"exercise_id", event.ExerciseID,
	)

	return nil
}
