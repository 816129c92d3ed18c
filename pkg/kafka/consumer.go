package kafka

import (
	"context"
	"errors"
	"log"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of a consumer group and commits each message once its
// handler has run.
type Consumer struct {
	r messageReader
}

// NewConsumer joins group on topic.
func NewConsumer(brokers []string, topic, group string) *Consumer {
	return &Consumer{r: kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	})}
}

// Run delivers messages to handler until ctx is done. A handler error is logged and the
// message is committed anyway; poison messages must not stall the partition.
func (c *Consumer) Run(ctx context.Context, handler func(ctx context.Context, value []byte) error) error {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if err := handler(ctx, m.Value); err != nil {
			log.Printf("kafka: handle offset %d of %s: %v", m.Offset, m.Topic, err)
		}
		if err := c.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Close leaves the group.
func (c *Consumer) Close() error {
	return c.r.Close()
}
