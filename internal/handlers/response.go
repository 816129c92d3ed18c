package handlers

import (
	"log"

	"aether/internal/apperr"
	"aether/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = models.NewValidator()

// respondError writes err as a {success:false, message} body. Server-side failures
// are logged and reported with fallback instead of their own text.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	status := apperr.Status(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("%s %s: %s: %v", c.Method(), c.Path(), fallback, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": apperr.Message(err, fallback),
	})
}

// parse decodes the body into dst. When it returns false the error response has
// already been written.
func parse(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		log.Printf("Error parsing request body for %s: %v", c.Path(), err)
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	return true, nil
}

// bind is parse followed by struct validation of dst.
func bind(c *fiber.Ctx, dst interface{}) (bool, error) {
	if ok, err := parse(c, dst); !ok {
		return false, err
	}
	if err := validate.Struct(dst); err != nil {
		if _, ok := err.(validator.ValidationErrors); !ok {
			return false, respondError(c, err, "Invalid request body")
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"errors":  models.ValidationMessages(err),
		})
	}
	return true, nil
}
