package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"aether/pkg/kafka"
	"aether/pkg/rabbitmq"

	kafkago "github.com/segmentio/kafka-go"
)

// Nop discards events.
type Nop struct{}

func (Nop) Publish(ctx context.Context, env Envelope) error {
	log.Printf("event %s (%s) not published: no broker configured", env.EventType, env.CorrelationID)
	return nil
}

func (Nop) Close() error { return nil }

// RabbitMQPublisher publishes envelopes to the order queue.
type RabbitMQPublisher struct {
	client *rabbitmq.Client
}

// NewRabbitMQPublisher wraps an open client.
func NewRabbitMQPublisher(client *rabbitmq.Client) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return p.client.Publish(ctx, env.EventID, body, map[string]string{"event_type": env.EventType})
}

func (p *RabbitMQPublisher) Close() error {
	return p.client.Close()
}

// KafkaPublisher publishes envelopes keyed by correlation id so an order's events stay
// on one partition.
type KafkaPublisher struct {
	producer *kafka.Producer
}

// NewKafkaPublisher wraps a started producer.
func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return p.producer.Publish(ctx, []byte(env.CorrelationID), body,
		kafkago.Header{Key: "event_type", Value: []byte(env.EventType)})
}

func (p *KafkaPublisher) Close() error {
	p.producer.Close()
	p.producer.WaitClosed()
	return nil
}
