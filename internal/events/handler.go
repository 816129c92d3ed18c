package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"aether/internal/mail"
	"aether/internal/models"
)

// MailHandler sends order confirmations for paid online orders and for new COD orders.
type MailHandler struct {
	mailer mail.Mailer
}

// NewMailHandler returns a handler that delivers through mailer.
func NewMailHandler(mailer mail.Mailer) *MailHandler {
	return &MailHandler{mailer: mailer}
}

// HandleMessage decodes a raw envelope and handles it.
func (h *MailHandler) HandleMessage(ctx context.Context, body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// A malformed message will never succeed; drop it.
		log.Printf("events: dropping undecodable message: %v", err)
		return nil
	}
	return h.Handle(ctx, env)
}

// Handle reacts to one event. Unknown event types are ignored.
func (h *MailHandler) Handle(ctx context.Context, env Envelope) error {
	switch env.EventType {
	case OrderPaid, OrderCreated:
	default:
		return nil
	}
	order, err := Decode[OrderPayload](env)
	if err != nil {
		log.Printf("events: %v", err)
		return nil
	}
	if env.EventType == OrderCreated && order.Provider != models.ProviderCOD {
		// Online orders are confirmed once paid.
		return nil
	}
	if order.CustomerEmail == "" {
		return nil
	}

	lines := make([]mail.OrderLine, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, mail.OrderLine{Name: it.Name, Size: it.Size, Quantity: it.Quantity, Price: it.Price})
	}
	msg, err := mail.OrderConfirmation(order.CustomerName, order.CustomerEmail, order.OrderID, order.Provider, order.Currency, order.Total, lines)
	if err != nil {
		return err
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("order %s confirmation: %w", order.OrderID, err)
	}
	log.Printf("events: sent %s confirmation for order %s", env.EventType, order.OrderID)
	return nil
}
