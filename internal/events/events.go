// Package events publishes order lifecycle events to a broker and handles them on
// the consuming side.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	OrderCreated  = "order.created"
	OrderPaid     = "order.paid"
	PaymentFailed = "payment.failed"
)

// Envelope wraps every event payload.
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	EventVersion  int             `json:"eventVersion"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlationId,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// OrderLine is the item snapshot carried in order events.
type OrderLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Size      string  `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OrderPayload describes an order at the time of the event.
type OrderPayload struct {
	OrderID        string      `json:"orderId"`
	UserID         string      `json:"userId"`
	CustomerName   string      `json:"customerName"`
	CustomerEmail  string      `json:"customerEmail"`
	Provider       string      `json:"provider"`
	Status         string      `json:"status"`
	GatewayOrderID string      `json:"gatewayOrderId,omitempty"`
	PaymentID      string      `json:"paymentId,omitempty"`
	Total          float64     `json:"total"`
	Currency       string      `json:"currency"`
	Items          []OrderLine `json:"items"`
}

// PaymentFailedPayload is reported by the client when the gateway declines a payment.
type PaymentFailedPayload struct {
	OrderID        string `json:"orderId,omitempty"`
	GatewayOrderID string `json:"gatewayOrderId,omitempty"`
	PaymentID      string `json:"paymentId,omitempty"`
	Code           string `json:"code,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// NewEnvelope marshals payload into a version 1 envelope.
func NewEnvelope(producer, eventType, correlationID string, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Decode unmarshals the envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}

// Publisher sends events to a broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}
