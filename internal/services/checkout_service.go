package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"aether/internal/apperr"
	"aether/internal/events"
	"aether/internal/models"
	"aether/internal/payment"
	"aether/internal/pricing"
	"aether/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// CheckoutInput is the order-intent payload. When Items is empty the user's server
// cart is checked out.
type CheckoutInput struct {
	Items    []ItemInput     `json:"items"`
	Shipping models.Shipping `json:"shipping"`
}

// GatewayCheckout is returned when an online payment is started.
type GatewayCheckout struct {
	GatewayOrder *payment.GatewayOrder `json:"razorpayOrder"`
	Order        *models.Order         `json:"dbOrder"`
	Key          string                `json:"key"`
}

// VerifyInput is the gateway callback forwarded by the client.
type VerifyInput struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
	OrderID        string `json:"dbOrderId"`
}

// FailureInput is a gateway-reported payment failure forwarded by the client.
type FailureInput struct {
	OrderID        string `json:"dbOrderId"`
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Code           string `json:"code"`
	Reason         string `json:"reason"`
}

// GatewayStatus describes whether online payments are available.
type GatewayStatus struct {
	Configured bool   `json:"razorpayConfigured"`
	Key        string `json:"key"`
}

// CheckoutService turns carts into orders and settles their payment.
type CheckoutService struct {
	orders    repositories.OrderRepository
	carts     repositories.CartRepository
	products  *ProductService
	gateway   payment.Gateway
	signer    *payment.Signer
	publisher events.Publisher
	rules     pricing.Rules
	currency  string
	producer  string
	validate  *validator.Validate
	now       func() time.Time
}

// CheckoutConfig collects the collaborators of a CheckoutService. Gateway and Signer
// may be nil when no gateway keys are configured; online checkout then reports
// apperr.ErrGatewayNotConfigured while COD keeps working.
type CheckoutConfig struct {
	Orders    repositories.OrderRepository
	Carts     repositories.CartRepository
	Products  *ProductService
	Gateway   payment.Gateway
	Signer    *payment.Signer
	Publisher events.Publisher
	Rules     pricing.Rules
	Currency  string
	Producer  string
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(cfg CheckoutConfig) *CheckoutService {
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.Producer == "" {
		cfg.Producer = "aether-api"
	}
	return &CheckoutService{
		orders:    cfg.Orders,
		carts:     cfg.Carts,
		products:  cfg.Products,
		gateway:   cfg.Gateway,
		signer:    cfg.Signer,
		publisher: cfg.Publisher,
		rules:     cfg.Rules,
		currency:  cfg.Currency,
		producer:  cfg.Producer,
		validate:  models.NewValidator(),
		now:       time.Now,
	}
}

// GatewayStatus reports whether online payments can be taken.
func (s *CheckoutService) GatewayStatus() GatewayStatus {
	if s.gateway == nil || s.signer == nil {
		return GatewayStatus{}
	}
	return GatewayStatus{Configured: true, Key: s.gateway.KeyID()}
}

// CreateGatewayOrder prices the cart, creates a gateway order for the total and
// persists a pending order referencing it. Each call creates a new order.
func (s *CheckoutService) CreateGatewayOrder(ctx context.Context, user *models.User, in CheckoutInput) (*GatewayCheckout, error) {
	if s.gateway == nil || s.signer == nil {
		return nil, apperr.ErrGatewayNotConfigured
	}
	order, err := s.prepare(ctx, user, in, models.ProviderRazorpay)
	if err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("aether_%d", s.now().UnixMilli())
	gwOrder, err := s.gateway.CreateOrder(ctx, pricing.MinorUnits(order.Total), order.Currency, receipt, map[string]string{
		"userId": user.ID,
		"email":  order.Shipping.Email,
	})
	if err != nil {
		return nil, err
	}
	order.GatewayOrderID = gwOrder.ID

	if err := s.orders.Create(ctx, order); err != nil {
		// The gateway order is left unpaid and expires on the provider side.
		return nil, fmt.Errorf("failed to save order for gateway order %s: %w", gwOrder.ID, err)
	}
	s.publish(ctx, events.OrderCreated, order)
	log.Printf("Gateway order %s created for order %s (%d %s)", gwOrder.ID, order.ID, gwOrder.Amount, gwOrder.Currency)

	return &GatewayCheckout{GatewayOrder: gwOrder, Order: order, Key: s.gateway.KeyID()}, nil
}

// CreateCODOrder persists a cash-on-delivery order. It stays pending; nothing in the
// checkout flow marks it paid.
func (s *CheckoutService) CreateCODOrder(ctx context.Context, user *models.User, in CheckoutInput) (*models.Order, error) {
	order, err := s.prepare(ctx, user, in, models.ProviderCOD)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create COD order: %w", err)
	}
	s.publish(ctx, events.OrderCreated, order)
	log.Printf("COD order %s created for user %s", order.ID, user.ID)
	return order, nil
}

// VerifyPayment checks the gateway signature and marks the order paid. A mismatch
// leaves the order untouched. Replaying a valid callback is harmless.
func (s *CheckoutService) VerifyPayment(ctx context.Context, in VerifyInput) (*models.Order, error) {
	if in.GatewayOrderID == "" || in.PaymentID == "" || in.Signature == "" || in.OrderID == "" {
		return nil, apperr.New(apperr.ErrValidation, "Missing verification data")
	}
	if s.signer == nil {
		return nil, apperr.ErrGatewayNotConfigured
	}
	if !s.signer.Verify(in.GatewayOrderID, in.PaymentID, in.Signature) {
		log.Printf("Signature mismatch for gateway order %s", in.GatewayOrderID)
		return nil, apperr.New(apperr.ErrSignatureMismatch, "Signature mismatch")
	}

	order, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.New(apperr.ErrNotFound, "Order not found")
		}
		return nil, err
	}
	if order.GatewayOrderID != in.GatewayOrderID {
		return nil, apperr.New(apperr.ErrValidation, "Payment does not belong to this order")
	}
	if !models.CanTransition(order.PaymentStatus, models.PaymentPaid) {
		return nil, apperr.New(apperr.ErrConflict, fmt.Sprintf("Order is %s and cannot be paid", order.PaymentStatus))
	}

	alreadyPaid := order.PaymentStatus == models.PaymentPaid
	order.PaymentStatus = models.PaymentPaid
	order.PaymentID = in.PaymentID
	order.Signature = in.Signature
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to mark order %s paid: %w", order.ID, err)
	}
	if !alreadyPaid {
		s.publish(ctx, events.OrderPaid, order)
	}
	log.Printf("Payment %s verified for order %s", in.PaymentID, order.ID)
	return order, nil
}

// ReportFailure records a client-reported gateway failure. The order is not changed.
func (s *CheckoutService) ReportFailure(ctx context.Context, in FailureInput) error {
	if in.OrderID == "" && in.GatewayOrderID == "" {
		return apperr.New(apperr.ErrValidation, "Order reference required")
	}
	log.Printf("Payment failed: order=%s gateway_order=%s payment=%s code=%s reason=%s",
		in.OrderID, in.GatewayOrderID, in.PaymentID, in.Code, in.Reason)

	correlation := in.OrderID
	if correlation == "" {
		correlation = in.GatewayOrderID
	}
	env, err := events.NewEnvelope(s.producer, events.PaymentFailed, correlation, events.PaymentFailedPayload{
		OrderID:        in.OrderID,
		GatewayOrderID: in.GatewayOrderID,
		PaymentID:      in.PaymentID,
		Code:           in.Code,
		Reason:         in.Reason,
	})
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		log.Printf("Failed to publish %s for %s: %v", events.PaymentFailed, correlation, err)
	}
	return nil
}

// MyOrders lists the user's orders, newest first.
func (s *CheckoutService) MyOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// prepare snapshots the requested lines from the catalog and prices them. Client-sent
// prices are never trusted.
func (s *CheckoutService) prepare(ctx context.Context, user *models.User, in CheckoutInput, provider string) (*models.Order, error) {
	items := in.Items
	if len(items) == 0 && s.carts != nil {
		cart, err := s.carts.GetByUser(ctx, user.ID)
		if err != nil && !apperr.IsNotFound(err) {
			return nil, err
		}
		if cart != nil {
			for _, it := range cart.Items {
				items = append(items, ItemInput{ProductID: it.ProductID, Quantity: it.Quantity, Size: it.Size})
			}
		}
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.ErrValidation, "Cart is empty")
	}

	shipping := in.Shipping
	shipping.Email = strings.ToLower(strings.TrimSpace(shipping.Email))
	if strings.TrimSpace(shipping.Name) == "" {
		shipping.Name = user.Name
	}
	if shipping.Email == "" {
		shipping.Email = user.Email
	}
	if err := s.validate.Struct(shipping); err != nil {
		return nil, apperr.New(apperr.ErrValidation, "Shipping details are incomplete")
	}

	lines := make([]models.OrderItem, 0, len(items))
	priced := make([]pricing.Line, 0, len(items))
	for _, raw := range items {
		it, err := normalizeItem(raw)
		if err != nil {
			return nil, err
		}
		p, err := s.products.Get(ctx, it.ProductID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.New(apperr.ErrValidation, fmt.Sprintf("Product %s is no longer available", it.ProductID))
			}
			return nil, err
		}
		if p.Stock < it.Quantity {
			return nil, apperr.New(apperr.ErrValidation, fmt.Sprintf("Insufficient stock for %s (requested: %d, available: %d)", p.Name, it.Quantity, p.Stock))
		}
		lines = append(lines, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Image:     p.Thumbnail,
		})
		priced = append(priced, pricing.Line{Price: p.Price, Quantity: it.Quantity})
	}
	summary := s.rules.Compute(priced)

	return &models.Order{
		UserID:          user.ID,
		Items:           lines,
		Shipping:        shipping,
		PaymentProvider: provider,
		PaymentStatus:   models.PaymentPending,
		Subtotal:        summary.Subtotal,
		ShippingFee:     summary.Shipping,
		Tax:             summary.Tax,
		Total:           summary.Total,
		Currency:        s.currency,
	}, nil
}

// publish emits an order event. Broker failures are logged; the order is already saved.
func (s *CheckoutService) publish(ctx context.Context, eventType string, order *models.Order) {
	payload := events.OrderPayload{
		OrderID:        order.ID,
		UserID:         order.UserID,
		CustomerName:   order.Shipping.Name,
		CustomerEmail:  order.Shipping.Email,
		Provider:       order.PaymentProvider,
		Status:         string(order.PaymentStatus),
		GatewayOrderID: order.GatewayOrderID,
		PaymentID:      order.PaymentID,
		Total:          order.Total,
		Currency:       order.Currency,
		Items:          make([]events.OrderLine, 0, len(order.Items)),
	}
	for _, it := range order.Items {
		payload.Items = append(payload.Items, events.OrderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	env, err := events.NewEnvelope(s.producer, eventType, order.ID, payload)
	if err != nil {
		log.Printf("Failed to build %s event for order %s: %v", eventType, order.ID, err)
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		log.Printf("Failed to publish %s for order %s: %v", eventType, order.ID, err)
	}
}
