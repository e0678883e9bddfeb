package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// Publisher sends an event to other instances
type Publisher interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}

// ResilientConfig tunes the retry and circuit breaker around remote publishes
type ResilientConfig struct {
	MaxAttempts      int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	FailureThreshold int // consecutive failures before the breaker opens
	OpenTimeout      time.Duration
}

// DefaultResilientConfig returns defaults suited to a local broker
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		MaxAttempts:      3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         2 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// ResilientPublisher wraps a Publisher with fortify retry and circuit breaker
type ResilientPublisher struct {
	publisher      Publisher
	circuitBreaker circuitbreaker.CircuitBreaker[struct{}]
	retrier        retry.Retry[struct{}]
}

// NewResilientPublisher wraps publisher
func NewResilientPublisher(publisher Publisher, cfg ResilientConfig) *ResilientPublisher {
	def := DefaultResilientConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}

	rp := &ResilientPublisher{publisher: publisher}

	rp.circuitBreaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.FailureThreshold
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			slog.Warn("broadcast circuit breaker state change",
				"from", from.String(),
				"to", to.String())
		},
	})

	rp.retrier = retry.New[struct{}](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
	})

	return rp
}

// PublishEvent publishes through the breaker, retrying transient failures
func (p *ResilientPublisher) PublishEvent(ctx context.Context, event domain.Event) error {
	_, err := p.circuitBreaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return p.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.publisher.PublishEvent(ctx, event)
		})
	})
	return err
}
