package handlers

import (
	"aether/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ContactHandler relays the public contact form.
type ContactHandler struct {
	service *services.ContactService
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(service *services.ContactService) *ContactHandler {
	return &ContactHandler{service: service}
}

// RegisterRoutes registers the contact route.
func (h *ContactHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/contact", h.Submit)
}

// Submit mails a contact form submission.
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req services.ContactInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := h.service.Submit(c.UserContext(), req); err != nil {
		return respondError(c, err, "Failed to send message.")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Message sent successfully and confirmation email delivered!",
	})
}
