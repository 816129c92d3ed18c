// Package payment creates gateway orders and verifies the signatures the gateway
// attaches to payment callbacks.
package payment

import (
	"context"
	"fmt"
	"strings"

	"aether/internal/apperr"

	razorpay "github.com/razorpay/razorpay-go"
)

// GatewayOrder is the provider-side object a client pays against.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status,omitempty"`
}

// Gateway creates payment orders at a provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error)
	// KeyID is the publishable key handed to the checkout widget.
	KeyID() string
}

// RazorpayGateway creates orders through the Razorpay REST API.
type RazorpayGateway struct {
	client *razorpay.Client
	keyID  string
}

// NewRazorpayGateway returns a gateway for the given key pair. Both keys are required.
func NewRazorpayGateway(keyID, keySecret string) (*RazorpayGateway, error) {
	keyID, keySecret = strings.TrimSpace(keyID), strings.TrimSpace(keySecret)
	if keyID == "" || keySecret == "" {
		return nil, apperr.ErrGatewayNotConfigured
	}
	return &RazorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
		keyID:  keyID,
	}, nil
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

// CreateOrder creates a Razorpay order for amountMinor (paise for INR).
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	noteData := make(map[string]interface{}, len(notes))
	for k, v := range notes {
		noteData[k] = v
	}
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
		"notes":    noteData,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create: %v: %w", err, apperr.ErrGateway)
	}
	return decodeOrder(body)
}

func decodeOrder(body map[string]interface{}) (*GatewayOrder, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order response missing id: %w", apperr.ErrGateway)
	}
	order := &GatewayOrder{ID: id}
	switch amount := body["amount"].(type) {
	case float64:
		order.Amount = int64(amount)
	case int64:
		order.Amount = amount
	case int:
		order.Amount = int64(amount)
	}
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)
	order.Status, _ = body["status"].(string)
	return order, nil
}
