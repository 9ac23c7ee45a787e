package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisTransportAndRelay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hub := NewHub(4)
	sub := hub.Subscribe(Channel("g1"))
	defer sub.Close()

	relay := NewRedisRelay(client, hub, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- relay.Run(ctx) }()

	select {
	case <-relay.Ready():
	case err := <-errCh:
		t.Fatalf("relay exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for relay subscription")
	}

	transport := NewRedisTransport(client)
	env := Envelope{Type: EventOrderUpdated, Channel: Channel("g1"), GroupID: "g1"}
	if err := transport.Deliver(context.Background(), env, []byte(`{"n":1}`)); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	select {
	case payload := <-sub.C:
		if string(payload) != `{"n":1}` {
			t.Errorf("got %s", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for relayed frame")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("relay returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRedisTransport_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	err := NewRedisTransport(client).Deliver(context.Background(), Envelope{Channel: "order-g"}, []byte("x"))
	if err == nil {
		t.Error("expected error from closed server")
	}
}
