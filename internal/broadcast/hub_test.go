package broadcast

import (
	"context"
	"testing"
)

func TestHub(t *testing.T) {
	t.Run("delivers only to the matching channel", func(t *testing.T) {
		hub := NewHub(4)
		a := hub.Subscribe("order-a")
		b := hub.Subscribe("order-b")
		defer a.Close()
		defer b.Close()

		hub.Broadcast("order-a", []byte("hello"))

		if got := string(<-a.C); got != "hello" {
			t.Errorf("got %q, want hello", got)
		}
		if len(b.C) != 0 {
			t.Error("subscriber on another channel received a frame")
		}
	})

	t.Run("slow subscriber drops frames", func(t *testing.T) {
		hub := NewHub(2)
		sub := hub.Subscribe("order-a")
		defer sub.Close()

		for _, p := range []string{"1", "2", "3"} {
			hub.Broadcast("order-a", []byte(p))
		}

		if got := string(<-sub.C); got != "1" {
			t.Errorf("first frame = %q, want 1", got)
		}
		if got := string(<-sub.C); got != "2" {
			t.Errorf("second frame = %q, want 2", got)
		}
		if len(sub.C) != 0 {
			t.Error("expected third frame to be dropped")
		}
	})

	t.Run("close unregisters and closes channel", func(t *testing.T) {
		hub := NewHub(1)
		sub := hub.Subscribe("order-a")
		if hub.Subscribers("order-a") != 1 {
			t.Fatalf("Subscribers = %d, want 1", hub.Subscribers("order-a"))
		}

		sub.Close()
		sub.Close()

		if hub.Subscribers("order-a") != 0 {
			t.Errorf("Subscribers = %d after close, want 0", hub.Subscribers("order-a"))
		}
		if _, ok := <-sub.C; ok {
			t.Error("expected closed channel")
		}

		// Broadcasting after close must not panic.
		hub.Broadcast("order-a", []byte("late"))
	})

	t.Run("deliver uses envelope channel", func(t *testing.T) {
		hub := NewHub(1)
		sub := hub.Subscribe("order-x")
		defer sub.Close()

		if err := hub.Deliver(context.Background(), Envelope{Channel: "order-x"}, []byte("p")); err != nil {
			t.Fatalf("Deliver failed: %v", err)
		}
		if got := string(<-sub.C); got != "p" {
			t.Errorf("got %q, want p", got)
		}
	})
}
