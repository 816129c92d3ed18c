package middleware

import (
	"errors"
	"log"
	"strings"

	"aether/internal/apperr"
	"aether/internal/models"
	"aether/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthRequired.
const (
	UserKey   = "user"
	UserIDKey = "user_id"
	TokenKey  = "token"
)

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// AuthRequired is a Fiber middleware to check for a valid JWT token. The account the
// token was issued to is loaded on every request, so deleted users and revoked admin
// rights take effect immediately.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "No token provided")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return unauthorized(c, "Token missing")
		}

		user, err := authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			var appErr *apperr.Error
			switch {
			case errors.As(err, &appErr):
				return unauthorized(c, appErr.Message)
			case apperr.Status(err) == fiber.StatusUnauthorized:
				return unauthorized(c, "Not authorized, invalid or expired token")
			default:
				return unauthorized(c, "Authorization failed")
			}
		}

		// Store the user in Fiber context for subsequent handlers
		c.Locals(UserKey, user)
		c.Locals(UserIDKey, user.ID)
		c.Locals(TokenKey, tokenString)

		return c.Next()
	}
}

// AdminOnly rejects authenticated users without the admin flag. It must run after
// AuthRequired.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Access denied, admin only",
			})
		}
		return c.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(UserKey).(*models.User)
	return user
}
