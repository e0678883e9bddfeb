package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// collector records delivered events
type collector struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *collector) handle(_ context.Context, event domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func sampleEvent() domain.Event {
	return domain.NewExerciseCreatedEvent(domain.Exercise{ID: "sky", Prompt: "Complete: El cielo es _______."})
}

func TestHub_DeliversToEverySubscriber(t *testing.T) {
	hub := NewHub(0)
	t.Cleanup(func() { hub.Close() })

	a, b := &collector{}, &collector{}
	hub.Subscribe(a.handle)
	hub.Subscribe(b.handle)

	if err := hub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	waitFor(t, "both subscribers", func() bool { return a.count() == 1 && b.count() == 1 })
}

func TestHub_KindFilter(t *testing.T) {
	hub := NewHub(0)
	t.Cleanup(func() { hub.Close() })

	deletes := &collector{}
	all := &collector{}
	hub.Subscribe(deletes.handle, domain.EventExerciseDeleted)
	hub.Subscribe(all.handle)

	ctx := context.Background()
	hub.Publish(ctx, sampleEvent())
	hub.Publish(ctx, domain.NewExerciseDeletedEvent(domain.Exercise{ID: "sky"}))

	waitFor(t, "unfiltered subscriber", func() bool { return all.count() == 2 })
	waitFor(t, "filtered subscriber", func() bool { return deletes.count() == 1 })

	deletes.mu.Lock()
	defer deletes.mu.Unlock()
	if deletes.events[0].Kind != domain.EventExerciseDeleted {
		t.Errorf("filtered subscriber got %q", deletes.events[0].Kind)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(0)
	t.Cleanup(func() { hub.Close() })

	c := &collector{}
	sub := hub.Subscribe(c.handle)
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	if hub.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", hub.Subscribers())
	}
	hub.Publish(context.Background(), sampleEvent())
	time.Sleep(20 * time.Millisecond)
	if c.count() != 0 {
		t.Errorf("unsubscribed handler received %d events", c.count())
	}

	var nilSub *Subscription
	nilSub.Unsubscribe()
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub(1)
	t.Cleanup(func() { hub.Close() })

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	hub.Subscribe(func(context.Context, domain.Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	ctx := context.Background()
	hub.Publish(ctx, sampleEvent()) // picked up by the handler
	<-started
	hub.Publish(ctx, sampleEvent()) // fills the buffer
	if err := hub.Publish(ctx, sampleEvent()); err != nil {
		t.Fatalf("Publish() on a full buffer should not fail: %v", err)
	}

	if hub.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", hub.Dropped())
	}
	close(release)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(0)
	c := &collector{}
	hub.Subscribe(c.handle)

	if err := hub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := hub.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := hub.Publish(context.Background(), sampleEvent()); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrClosed", err)
	}

	sub := hub.Subscribe(c.handle)
	sub.Unsubscribe()
}

func TestHub_CanceledContext(t *testing.T) {
	hub := NewHub(0)
	t.Cleanup(func() { hub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := hub.Publish(ctx, sampleEvent()); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() error = %v, want context.Canceled", err)
	}
}
