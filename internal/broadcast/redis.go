package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisTransport publishes envelopes on the group's Redis channel so every
// service instance can forward them to its own subscribers.
type RedisTransport struct {
	client redis.UniversalClient
}

// NewRedisTransport creates a transport on an existing client.
func NewRedisTransport(client redis.UniversalClient) *RedisTransport {
	return &RedisTransport{client: client}
}

// Name implements Transport.
func (t *RedisTransport) Name() string { return "redis" }

// Deliver implements Transport.
func (t *RedisTransport) Deliver(ctx context.Context, env Envelope, payload []byte) error {
	if err := t.client.Publish(ctx, env.Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", env.Channel, err)
	}
	return nil
}

// RedisRelay pattern-subscribes to every order channel and re-broadcasts
// incoming payloads into a local Hub.
type RedisRelay struct {
	client redis.UniversalClient
	hub    *Hub
	logger *slog.Logger
	ready  chan struct{}
}

// NewRedisRelay creates a relay into hub. A nil logger uses slog.Default().
func NewRedisRelay(client redis.UniversalClient, hub *Hub, logger *slog.Logger) *RedisRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRelay{
		client: client,
		hub:    hub,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the pattern subscription is confirmed.
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run relays messages until ctx is cancelled or the subscription fails.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer pubsub.Close()

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to order channels: %w", err)
	}
	close(r.ready)
	r.logger.Info("Relaying order updates from redis", "pattern", ChannelPrefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.hub.Broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}
