package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTransport appends envelopes to a topic for downstream consumers.
// Messages are keyed by channel so one group's updates stay in one partition.
type KafkaTransport struct {
	writer messageWriter
	topic  string
}

// NewKafkaTransport creates a transport writing to topic on brokers.
func NewKafkaTransport(brokers []string, topic string) *KafkaTransport {
	return &KafkaTransport{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

// Name implements Transport.
func (t *KafkaTransport) Name() string { return "kafka" }

// Deliver implements Transport.
func (t *KafkaTransport) Deliver(ctx context.Context, env Envelope, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(env.Channel),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(env.Type)},
		},
	}
	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write to %s: %w", t.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
