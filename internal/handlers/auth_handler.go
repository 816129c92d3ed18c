package handlers

import (
	"log"
	"strings"
	"time"

	"aether/internal/middleware"
	"aether/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Get("/test", h.HandleTest)
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/profile", auth, h.HandleProfile)
	authRoutes.Post("/check-user", h.HandleCheckUser)
	authRoutes.Post("/forgot-password", h.HandleForgotPassword)
	authRoutes.Post("/reset-password/:token", h.HandleResetPassword)
}

// HandleTest reports that the auth API is reachable.
func (h *AuthHandler) HandleTest(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Auth API is working!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	res, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		log.Printf("Error registering user: %v", err)
		return respondError(c, err, "Server error during registration")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
		"user":    res.User,
		"token":   res.Token,
	})
}

// LoginRequest represents the request body for login. Login may hold a username or an
// email; the email and username fields are accepted as aliases.
type LoginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) identifier() string {
	for _, v := range []string{r.Login, r.Email, r.Username} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	res, err := h.authService.Login(c.UserContext(), req.identifier(), req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.identifier(), err)
		return respondError(c, err, "Server error during login")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"user":    res.User,
		"token":   res.Token,
	})
}

// HandleLogout acknowledges a logout. Tokens are stateless and simply dropped by the client.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "message": "Logged out successfully"})
}

// HandleProfile returns the authenticated user.
func (h *AuthHandler) HandleProfile(c *fiber.Ctx) error {
	user, err := h.authService.Profile(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return respondError(c, err, "Server error fetching profile")
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

type checkUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// HandleCheckUser reports whether an account exists for an email or username.
func (h *AuthHandler) HandleCheckUser(c *fiber.Ctx) error {
	var req checkUserRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	user, err := h.authService.CheckUser(c.UserContext(), req.Email, req.Username)
	if err != nil {
		return respondError(c, err, "Server error")
	}
	if user == nil {
		return c.JSON(fiber.Map{"success": true, "exists": false, "user": nil})
	}
	return c.JSON(fiber.Map{"success": true, "exists": true, "user": user.Public()})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// HandleForgotPassword mails a reset link. The response is the same whether or not the
// email belongs to an account.
func (h *AuthHandler) HandleForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := h.authService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return respondError(c, err, "Could not send reset email")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "If an account exists for that email, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// HandleResetPassword sets a new password using the token from the reset link.
func (h *AuthHandler) HandleResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := h.authService.ResetPassword(c.UserContext(), c.Params("token"), req.Password); err != nil {
		return respondError(c, err, "Server error resetting password")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Password has been reset"})
}
