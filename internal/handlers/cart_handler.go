package handlers

import (
	"aether/internal/middleware"
	"aether/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the authenticated user's cart.
type CartHandler struct {
	service *services.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{service: service}
}

// RegisterRoutes registers the cart routes. Every route requires a user.
func (h *CartHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	cartRoutes := router.Group("/cart", auth)
	cartRoutes.Get("/", h.GetCart)
	cartRoutes.Post("/", h.AddItem)
	cartRoutes.Delete("/", h.ClearCart)
	cartRoutes.Post("/merge", h.MergeCart)
	cartRoutes.Put("/item/:id", h.UpdateItem)
	cartRoutes.Delete("/item/:id", h.RemoveItem)
}

// GetCart returns the cart with its pricing summary.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	cart, err := h.service.Get(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(cart)
}

// AddItem adds a product line, or increments the matching one.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req services.ItemInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	cart, err := h.service.AddItem(c.UserContext(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.Status(fiber.StatusCreated).JSON(cart)
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// UpdateItem sets the quantity of a line.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	var req quantityRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	cart, err := h.service.UpdateItem(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"), req.Quantity)
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(cart)
}

// RemoveItem drops a line.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	cart, err := h.service.RemoveItem(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"))
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(cart)
}

// ClearCart empties the cart.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	cart, err := h.service.Clear(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(cart)
}

type mergeCartRequest struct {
	Items []services.ItemInput `json:"items"`
}

// MergeCart folds anonymous-session lines into the cart.
func (h *CartHandler) MergeCart(c *fiber.Ctx) error {
	var req mergeCartRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	cart, err := h.service.Merge(c.UserContext(), middleware.CurrentUser(c).ID, req.Items)
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(cart)
}
