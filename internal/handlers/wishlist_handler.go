package handlers

import (
	"aether/internal/middleware"
	"aether/internal/services"

	"github.com/gofiber/fiber/v2"
)

// WishlistHandler handles HTTP requests for the authenticated user's wishlist.
type WishlistHandler struct {
	service *services.WishlistService
}

// NewWishlistHandler creates a new WishlistHandler.
func NewWishlistHandler(service *services.WishlistService) *WishlistHandler {
	return &WishlistHandler{service: service}
}

// RegisterRoutes registers the wishlist routes. Every route requires a user.
func (h *WishlistHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	wishlistRoutes := router.Group("/wishlist", auth)
	wishlistRoutes.Get("/", h.GetWishlist)
	wishlistRoutes.Post("/merge", h.MergeWishlist)
	wishlistRoutes.Post("/:productId", h.AddProduct)
	wishlistRoutes.Delete("/:productId", h.RemoveProduct)
}

// GetWishlist returns the saved products.
func (h *WishlistHandler) GetWishlist(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(w)
}

// AddProduct saves a product.
func (h *WishlistHandler) AddProduct(c *fiber.Ctx) error {
	w, err := h.service.Add(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("productId"))
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.Status(fiber.StatusCreated).JSON(w)
}

// RemoveProduct unsaves a product.
func (h *WishlistHandler) RemoveProduct(c *fiber.Ctx) error {
	w, err := h.service.Remove(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("productId"))
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(w)
}

type mergeWishlistRequest struct {
	Products []string `json:"products"`
}

// MergeWishlist adds anonymous-session products to the wishlist.
func (h *WishlistHandler) MergeWishlist(c *fiber.Ctx) error {
	var req mergeWishlistRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	w, err := h.service.Merge(c.UserContext(), middleware.CurrentUser(c).ID, req.Products)
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(w)
}
