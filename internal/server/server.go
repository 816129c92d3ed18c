// Package server assembles the fiber application from its services.
package server

import (
	"context"
	"strings"
	"time"

	"aether/internal/handlers"
	"aether/internal/middleware"
	"aether/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Check reports the health of one backing dependency.
type Check func(ctx context.Context) error

// Deps are the services exposed over HTTP.
type Deps struct {
	Auth      *services.AuthService
	Products  *services.ProductService
	Carts     *services.CartService
	Wishlists *services.WishlistService
	Checkout  *services.CheckoutService
	Contact   *services.ContactService

	// AllowedOrigins are the storefront origins allowed by CORS.
	AllowedOrigins []string
	// Checks are reported by /health, keyed by dependency name.
	Checks map[string]Check
	// Quiet disables the request logger.
	Quiet bool
}

// New returns the fiber app with every route registered under /api.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "aether-api",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{"success": false, "message": message})
		},
	})

	app.Use(recover.New())
	if !d.Quiet {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(d.AllowedOrigins, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: len(d.AllowedOrigins) > 0,
	}))

	auth := middleware.AuthRequired(d.Auth)
	api := app.Group("/api")
	handlers.NewAuthHandler(d.Auth).RegisterRoutes(api, auth)
	handlers.NewProductHandler(d.Products).RegisterRoutes(api, auth)
	handlers.NewCartHandler(d.Carts).RegisterRoutes(api, auth)
	handlers.NewWishlistHandler(d.Wishlists).RegisterRoutes(api, auth)
	handlers.NewPaymentHandler(d.Checkout).RegisterRoutes(api, auth)
	handlers.NewContactHandler(d.Contact).RegisterRoutes(api)

	app.Get("/health", health(d.Checks))

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Route not found"})
	})
	return app
}

func health(checks map[string]Check) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := "healthy"
		code := fiber.StatusOK
		deps := fiber.Map{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
				continue
			}
			deps[name] = "connected"
		}
		return c.Status(code).JSON(fiber.Map{
			"status":       status,
			"time":         time.Now().Format(time.RFC3339),
			"dependencies": deps,
		})
	}
}
