package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
)

const remotePublishTimeout = 10 * time.Second

// Bridge extends a Hub across instances. Local subscribers are served by the
// hub; every local publish is also sent to the remote publisher, and remote
// events from other nodes are replayed into the hub.
type Bridge struct {
	hub    *Hub
	remote Publisher
	nodeID string
	wg     sync.WaitGroup
}

// NewBridge joins hub to remote. nodeID tags outgoing events so this node can
// recognise its own echoes.
func NewBridge(hub *Hub, remote Publisher, nodeID string) *Bridge {
	return &Bridge{
		hub:    hub,
		remote: remote,
		nodeID: nodeID,
	}
}

// NodeID returns the origin tag of this instance
func (b *Bridge) NodeID() string {
	return b.nodeID
}

// Publish delivers locally and forwards to the remote publisher in the
// background. Remote failures are logged only.
func (b *Bridge) Publish(ctx context.Context, event domain.Event) error {
	if event.Origin == "" {
		event.Origin = b.nodeID
	}

	if err := b.hub.Publish(ctx, event); err != nil {
		return err
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), remotePublishTimeout)
		defer cancel()

		if err := b.remote.PublishEvent(ctx, event); err != nil {
			slog.Warn("remote publish failed, event delivered locally only",
				"event_id", event.ID,
				"kind", event.Kind,
				"error", err,
			)
		}
	}()
	return nil
}

// Subscribe registers a local subscriber
func (b *Bridge) Subscribe(handler Handler, kinds ...domain.EventKind) *Subscription {
	return b.hub.Subscribe(handler, kinds...)
}

// HandleRemote replays an event received from the exchange. Events that
// originated here were already delivered and are ignored.
func (b *Bridge) HandleRemote(ctx context.Context, event domain.Event) {
	if event.Origin == b.nodeID {
		return
	}
	if err := b.hub.Publish(ctx, event); err != nil {
		slog.Debug("dropping remote event", "event_id", event.ID, "error", err)
	}
}

// Wait blocks until in-flight remote publishes finish
func (b *Bridge) Wait() {
	b.wg.Wait()
}
