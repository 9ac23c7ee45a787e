package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/splitorder/internal/models"
)

// recordingTransport remembers every envelope it is handed.
type recordingTransport struct {
	mu   sync.Mutex
	envs []Envelope
	err  error
}

func (r *recordingTransport) Name() string { return "recording" }

func (r *recordingTransport) Deliver(ctx context.Context, env Envelope, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return r.err
}

func (r *recordingTransport) received() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.envs...)
}

func snapshotAt(groupID string, version int64) models.Snapshot {
	return models.Snapshot{GroupID: groupID, Status: models.StatusPending, Version: version}
}

func TestBroadcaster_PreservesPublishOrder(t *testing.T) {
	rec := &recordingTransport{}
	b := New(nil, 64, rec)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for v := int64(1); v <= 20; v++ {
		b.Publish("g1", snapshotAt("g1", v))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	envs := rec.received()
	if len(envs) != 20 {
		t.Fatalf("got %d envelopes, want 20", len(envs))
	}
	for i, env := range envs {
		if env.Snapshot.Version != int64(i+1) {
			t.Errorf("envelope %d has version %d", i, env.Snapshot.Version)
		}
		if env.Channel != "order-g1" || env.Type != EventOrderUpdated || env.GroupID != "g1" {
			t.Errorf("unexpected envelope header: %+v", env)
		}
	}
}

func TestBroadcaster_FailingTransportDoesNotBlockOthers(t *testing.T) {
	failing := &recordingTransport{err: errors.New("down")}
	rec := &recordingTransport{}
	b := New(nil, 8, failing, rec)
	b.Start(context.Background())

	b.Publish("g1", snapshotAt("g1", 1))
	b.Publish("g2", snapshotAt("g2", 1))
	b.Stop(context.Background())

	if got := len(rec.received()); got != 2 {
		t.Errorf("healthy transport got %d envelopes, want 2", got)
	}
	if got := len(failing.received()); got != 2 {
		t.Errorf("failing transport was tried %d times, want 2", got)
	}
}

func TestBroadcaster_FullQueueDrops(t *testing.T) {
	rec := &recordingTransport{}
	b := New(nil, 2, rec)

	// Not started yet, so nothing drains the queue.
	done := make(chan struct{})
	go func() {
		for v := int64(1); v <= 5; v++ {
			b.Publish("g1", snapshotAt("g1", v))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}

	b.Start(context.Background())
	b.Stop(context.Background())

	envs := rec.received()
	if len(envs) != 2 {
		t.Fatalf("got %d envelopes, want 2", len(envs))
	}
	if envs[0].Snapshot.Version != 1 || envs[1].Snapshot.Version != 2 {
		t.Errorf("expected the first two updates, got versions %d and %d",
			envs[0].Snapshot.Version, envs[1].Snapshot.Version)
	}
}

func TestBroadcaster_Lifecycle(t *testing.T) {
	t.Run("publish after stop is ignored", func(t *testing.T) {
		rec := &recordingTransport{}
		b := New(nil, 4, rec)
		b.Start(context.Background())
		b.Stop(context.Background())

		b.Publish("g1", snapshotAt("g1", 1))
		if got := len(rec.received()); got != 0 {
			t.Errorf("got %d envelopes after stop", got)
		}
	})

	t.Run("start after stop fails", func(t *testing.T) {
		b := New(nil, 4)
		b.Stop(context.Background())
		if err := b.Start(context.Background()); !errors.Is(err, ErrStopped) {
			t.Errorf("expected ErrStopped, got %v", err)
		}
	})

	t.Run("stop twice", func(t *testing.T) {
		b := New(nil, 4)
		b.Start(context.Background())
		if err := b.Stop(context.Background()); err != nil {
			t.Fatalf("first Stop failed: %v", err)
		}
		if err := b.Stop(context.Background()); err != nil {
			t.Errorf("second Stop failed: %v", err)
		}
	})
}

// gatedTransport blocks every delivery until release is closed.
type gatedTransport struct {
	recordingTransport
	release chan struct{}
}

func (g *gatedTransport) Deliver(ctx context.Context, env Envelope, payload []byte) error {
	<-g.release
	return g.recordingTransport.Deliver(ctx, env, payload)
}

func TestBroadcaster_StopDrainsAfterStartContextCancelled(t *testing.T) {
	gate := &gatedTransport{release: make(chan struct{})}
	b := New(nil, 16, gate)

	startCtx, cancelStart := context.WithCancel(context.Background())
	if err := b.Start(startCtx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for v := int64(1); v <= 5; v++ {
		b.Publish("g1", snapshotAt("g1", v))
	}

	// Shutdown signal arrives while updates are still queued.
	cancelStart()
	close(gate.release)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	envs := gate.received()
	if len(envs) != 5 {
		t.Fatalf("got %d envelopes, want all 5 queued updates", len(envs))
	}
	if envs[4].Snapshot.Version != 5 {
		t.Errorf("last envelope has version %d, want 5", envs[4].Snapshot.Version)
	}
}

func TestBroadcaster_HubReceivesEncodedEnvelope(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe(Channel("g1"))
	defer sub.Close()

	b := New(nil, 4, hub)
	b.Start(context.Background())
	b.Publish("g1", snapshotAt("g1", 7))
	b.Stop(context.Background())

	select {
	case payload := <-sub.C:
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if env.Snapshot.Version != 7 || env.Channel != "order-g1" {
			t.Errorf("unexpected envelope: %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hub frame")
	}
}
