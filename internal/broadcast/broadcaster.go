// Package broadcast fans order snapshots out to real-time subscribers.
//
// Publishing is fire-and-forget: Publish never blocks the caller and delivery
// failures are logged and counted, never returned. Subscribers that miss an
// update reconcile by reading the full snapshot again.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/splitorder/internal/metrics"
	"github.com/mmynk/splitorder/internal/models"
)

const (
	// EventOrderUpdated is the envelope type for a committed order change.
	EventOrderUpdated = "order.updated"

	// EventOrderSnapshot is the envelope type of the full state sent on connect.
	EventOrderSnapshot = "order.snapshot"

	// ChannelPrefix prefixes every per-group channel name.
	ChannelPrefix = "order-"

	deliverTimeout = 5 * time.Second
)

// ErrStopped is returned by Start when the broadcaster was already stopped.
var ErrStopped = errors.New("broadcaster stopped")

// Channel returns the pub/sub channel for a group.
func Channel(groupID string) string {
	return ChannelPrefix + groupID
}

// Envelope is the wire frame pushed to subscribers.
type Envelope struct {
	Type        string          `json:"type"`
	Channel     string          `json:"channel"`
	GroupID     string          `json:"group_id"`
	Snapshot    models.Snapshot `json:"snapshot"`
	PublishedAt time.Time       `json:"published_at"`
}

// Transport delivers one encoded envelope to its subscribers.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, env Envelope, payload []byte) error
}

// Broadcaster queues envelopes and hands them to every transport from a
// single dispatcher goroutine, so updates leave in the order they were
// published.
type Broadcaster struct {
	logger     *slog.Logger
	transports []Transport
	queue      chan Envelope
	now        func() time.Time

	mu      sync.RWMutex
	started bool
	stopped bool
	done    chan struct{}
}

// New creates a Broadcaster with a queue of queueSize envelopes.
// A nil logger uses slog.Default().
func New(logger *slog.Logger, queueSize int, transports ...Transport) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Broadcaster{
		logger:     logger,
		transports: transports,
		queue:      make(chan Envelope, queueSize),
		now:        time.Now,
		done:       make(chan struct{}),
	}
}

// Start launches the dispatcher. It returns immediately. Deliveries inherit
// ctx's values but not its cancellation: the dispatcher runs until Stop
// drains the queue. Calling Start twice is a no-op.
func (b *Broadcaster) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return ErrStopped
	}
	if b.started {
		return nil
	}
	b.started = true

	go b.dispatch(context.WithoutCancel(ctx))
	return nil
}

// Publish enqueues the snapshot for the group's channel.
// A full queue or a stopped broadcaster drops the update.
func (b *Broadcaster) Publish(groupID string, snapshot models.Snapshot) {
	env := Envelope{
		Type:        EventOrderUpdated,
		Channel:     Channel(groupID),
		GroupID:     groupID,
		Snapshot:    snapshot,
		PublishedAt: b.now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		b.logger.Debug("Broadcaster stopped, dropping update", "group_id", groupID)
		return
	}

	select {
	case b.queue <- env:
	default:
		metrics.BroadcastDropped.WithLabelValues("queue").Inc()
		b.logger.Warn("Broadcast queue full, dropping update",
			"group_id", groupID,
			"version", snapshot.Version,
		)
	}
}

// Stop refuses further publishes and waits for the queue to drain, or for
// ctx to expire.
func (b *Broadcaster) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	started := b.started
	close(b.queue)
	b.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broadcaster) dispatch(ctx context.Context) {
	defer close(b.done)

	for env := range b.queue {
		b.deliver(ctx, env)
	}
}

func (b *Broadcaster) deliver(ctx context.Context, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		b.logger.Error("Failed to encode order update", "group_id", env.GroupID, "error", err)
		return
	}

	for _, t := range b.transports {
		deliverCtx, cancel := context.WithTimeout(ctx, deliverTimeout)
		err := t.Deliver(deliverCtx, env, payload)
		cancel()
		if err != nil {
			metrics.BroadcastFailures.WithLabelValues(t.Name()).Inc()
			b.logger.Warn("Failed to deliver order update",
				"transport", t.Name(),
				"group_id", env.GroupID,
				"version", env.Snapshot.Version,
				"error", err,
			)
		}
	}
}
