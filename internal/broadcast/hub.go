package broadcast

import (
	"context"
	"sync"

	"github.com/mmynk/splitorder/internal/metrics"
)

// Hub is the in-process transport. It keeps the live subscribers of every
// channel and copies each payload to them.
type Hub struct {
	mu     sync.Mutex
	buffer int
	subs   map[string]map[*Subscription]struct{}
}

// Subscription receives the payloads published on one channel.
type Subscription struct {
	// C yields encoded envelopes. It is closed by Close.
	C <-chan []byte

	ch      chan []byte
	channel string
	hub     *Hub
}

// NewHub creates a Hub whose subscribers buffer up to buffer frames.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber on channel.
func (h *Hub) Subscribe(channel string) *Subscription {
	ch := make(chan []byte, h.buffer)
	sub := &Subscription{C: ch, ch: ch, channel: channel, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.subs[channel]
	if !ok {
		room = make(map[*Subscription]struct{})
		h.subs[channel] = room
	}
	room[sub] = struct{}{}
	return sub
}

// Close unregisters the subscription and closes C. It is safe to call twice.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.subs[s.channel]
	if !ok {
		return
	}
	if _, ok := room[s]; !ok {
		return
	}
	delete(room, s)
	if len(room) == 0 {
		delete(h.subs, s.channel)
	}
	close(s.ch)
}

// Subscribers returns the number of live subscribers on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[channel])
}

// Broadcast copies payload to every subscriber of channel. A subscriber whose
// buffer is full misses the frame.
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[channel] {
		select {
		case sub.ch <- payload:
		default:
			metrics.BroadcastDropped.WithLabelValues("subscriber").Inc()
		}
	}
}

// Name implements Transport.
func (h *Hub) Name() string { return "hub" }

// Deliver implements Transport.
func (h *Hub) Deliver(ctx context.Context, env Envelope, payload []byte) error {
	h.Broadcast(env.Channel, payload)
	return nil
}
