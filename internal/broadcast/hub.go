// Package broadcast fans exercise mutations out to every open quiz session.
// Delivery is best-effort and at-most-once: each subscriber owns a bounded
// buffer and events for a subscriber whose buffer is full are dropped.
package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Awhitter/spanish1/internal/domain"
)

// DefaultBufferSize is the per-subscriber queue length
const DefaultBufferSize = 16

var (
	ErrClosed = errors.New("broadcaster closed")
)

// Handler receives events on the subscriber's own goroutine
type Handler func(ctx context.Context, event domain.Event)

// Broadcaster publishes store mutations and delivers them to subscribers
type Broadcaster interface {
	Publish(ctx context.Context, event domain.Event) error
	Subscribe(handler Handler, kinds ...domain.EventKind) *Subscription
}

// Ensure implementations satisfy Broadcaster
var (
	_ Broadcaster = (*Hub)(nil)
	_ Broadcaster = (*Bridge)(nil)
)

// Hub is the in-process broadcaster
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	closed  bool
	dropped atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub. A non-positive buffer uses DefaultBufferSize.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish queues event for every interested subscriber without blocking
func (h *Hub) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrClosed
	}

	for _, sub := range h.subs {
		if !sub.wants(event.Kind) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			h.dropped.Add(1)
			slog.Warn("dropping event for slow subscriber",
				"subscription", sub.id,
				"kind", event.Kind,
				"event_id", event.ID,
			)
		}
	}
	return nil
}

// Subscribe registers handler for the given kinds, or for every kind when
// none are given.
func (h *Hub) Subscribe(handler Handler, kinds ...domain.EventKind) *Subscription {
	sub := &Subscription{
		kinds:  slices.Clone(kinds),
		events: make(chan domain.Event, h.buffer),
		hub:    h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.events)
		sub.once.Do(func() {})
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.wg.Add(1)
	h.mu.Unlock()

	go h.deliver(sub, handler)
	return sub
}

func (h *Hub) deliver(sub *Subscription, handler Handler) {
	defer h.wg.Done()
	for event := range sub.events {
		handler(h.ctx, event)
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.events)
	}
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were discarded because a buffer was full
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close stops delivery and waits for subscriber goroutines to drain
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.events)
	}
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
	return nil
}

// Subscription is a handle returned by Subscribe
type Subscription struct {
	id     uint64
	kinds  []domain.EventKind
	events chan domain.Event
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) wants(kind domain.EventKind) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, kind)
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}
