package handlers

import (
	"log"

	"aether/internal/middleware"
	"aether/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles checkout and payment verification.
type PaymentHandler struct {
	service *services.CheckoutService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.CheckoutService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers the payment routes. Verification is public because the
// gateway callback carries its own proof in the signature.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	paymentRoutes := router.Group("/payments")
	paymentRoutes.Get("/test", h.HandleTest)
	paymentRoutes.Post("/razorpay/order", auth, h.CreateGatewayOrder)
	paymentRoutes.Post("/razorpay/verify", h.VerifyPayment)
	paymentRoutes.Post("/razorpay/failure", auth, h.ReportFailure)
	paymentRoutes.Post("/cod/order", auth, h.CreateCODOrder)
	paymentRoutes.Get("/my-orders", auth, h.MyOrders)
}

// HandleTest reports whether the gateway is configured.
func (h *PaymentHandler) HandleTest(c *fiber.Ctx) error {
	status := h.service.GatewayStatus()
	var key interface{}
	if status.Key != "" {
		key = status.Key
	}
	return c.JSON(fiber.Map{
		"message":            "Payments API is live",
		"razorpayConfigured": status.Configured,
		"key":                key,
	})
}

// CreateGatewayOrder prices the cart and opens a gateway order for it.
func (h *PaymentHandler) CreateGatewayOrder(c *fiber.Ctx) error {
	// Shipping defaults are filled from the account before validation
	var req services.CheckoutInput
	if ok, err := parse(c, &req); !ok {
		return err
	}
	res, err := h.service.CreateGatewayOrder(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		log.Printf("Order creation error: %v", err)
		return respondError(c, err, "Payment order creation failed")
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"razorpayOrder": res.GatewayOrder,
		"dbOrder":       res.Order,
		"key":           res.Key,
	})
}

// CreateCODOrder places a cash-on-delivery order.
func (h *PaymentHandler) CreateCODOrder(c *fiber.Ctx) error {
	// Shipping defaults are filled from the account before validation
	var req services.CheckoutInput
	if ok, err := parse(c, &req); !ok {
		return err
	}
	order, err := h.service.CreateCODOrder(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		log.Printf("COD order creation error: %v", err)
		return respondError(c, err, "COD order creation failed")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "order": order})
}

// VerifyPayment checks the gateway signature and marks the order paid.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	var req services.VerifyInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	order, err := h.service.VerifyPayment(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Payment verification failed")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Payment verified", "order": order})
}

// ReportFailure records a payment failure reported by the gateway UI.
func (h *PaymentHandler) ReportFailure(c *fiber.Ctx) error {
	var req services.FailureInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := h.service.ReportFailure(c.UserContext(), req); err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Payment failure recorded"})
}

// MyOrders lists the authenticated user's orders.
func (h *PaymentHandler) MyOrders(c *fiber.Ctx) error {
	orders, err := h.service.MyOrders(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return respondError(c, err, "Failed to fetch orders")
	}
	return c.JSON(fiber.Map{"success": true, "orders": orders})
}
