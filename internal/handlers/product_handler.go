package handlers

import (
	"log"

	"aether/internal/middleware"
	"aether/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the catalog and its reviews.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// RegisterRoutes registers the product routes. Reads are public, reviews need a user
// and writes need an admin.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.ListProducts)
	productRoutes.Get("/slug/:slug", h.GetProductBySlug)
	productRoutes.Get("/:id", h.GetProduct)
	productRoutes.Get("/:id/reviews", h.ListReviews)
	productRoutes.Post("/:id/reviews", auth, h.AddReview)

	admin := middleware.AdminOnly()
	productRoutes.Post("/", auth, admin, h.CreateProduct)
	productRoutes.Put("/:id", auth, admin, h.UpdateProduct)
	productRoutes.Delete("/:id", auth, admin, h.DeleteProduct)
}

// ListProducts returns a page of products.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), services.ListQuery{
		Category: c.Query("category"),
		Exclude:  c.Query("exclude"),
		Page:     c.QueryInt("page", services.DefaultPage),
		Limit:    c.QueryInt("limit", services.DefaultLimit),
	})
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return respondError(c, err, "Server error")
	}
	return c.JSON(page)
}

// GetProduct returns a product by id.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(product)
}

// GetProductBySlug returns a product by slug.
func (h *ProductHandler) GetProductBySlug(c *fiber.Ctx) error {
	product, err := h.service.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(product)
}

// CreateProduct adds a product to the catalog.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req services.ProductInput
	if ok, err := parse(c, &req); !ok {
		return err
	}
	product, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		log.Printf("Error creating product: %v", err)
		return respondError(c, err, "Invalid data")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// UpdateProduct applies a partial update to a product.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	var req services.ProductUpdate
	if ok, err := parse(c, &req); !ok {
		return err
	}
	product, err := h.service.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		log.Printf("Error updating product %s: %v", c.Params("id"), err)
		return respondError(c, err, "Update failed")
	}
	return c.JSON(product)
}

// DeleteProduct removes a product.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		log.Printf("Error deleting product %s: %v", c.Params("id"), err)
		return respondError(c, err, "Delete failed")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product deleted"})
}

// ListReviews returns the reviews of a product.
func (h *ProductHandler) ListReviews(c *fiber.Ctx) error {
	reviews, err := h.service.Reviews(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.JSON(reviews)
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

// AddReview records the authenticated user's review of a product.
func (h *ProductHandler) AddReview(c *fiber.Ctx) error {
	var req reviewRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	review, err := h.service.AddReview(c.UserContext(), c.Params("id"), middleware.CurrentUser(c), services.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return respondError(c, err, "Server error")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Review added", "review": review})
}
