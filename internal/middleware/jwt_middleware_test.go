package middleware_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"testing"

	"aether/internal/middleware"
	"aether/internal/repositories"
	"aether/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func setup(t *testing.T) (*fiber.App, *services.AuthService, *repositories.MemoryUserRepository) {
	t.Helper()
	users := repositories.NewMemoryUserRepository()
	auth := services.NewAuthService(users, "test_secret")

	app := fiber.New()
	app.Get("/me", middleware.AuthRequired(auth), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": middleware.CurrentUser(c).ID, "user_id": c.Locals(middleware.UserIDKey)})
	})
	app.Get("/admin", middleware.AuthRequired(auth), middleware.AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app, auth, users
}

func register(t *testing.T, auth *services.AuthService, username string) string {
	t.Helper()
	res, err := auth.Register(context.Background(), services.RegisterInput{
		Name: "Test", Username: username, Email: username + "@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	return res.Token
}

func call(t *testing.T, app *fiber.App, path, header string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body
}

func TestAuthRequired(t *testing.T) {
	app, auth, _ := setup(t)
	token := register(t, auth, "ana")

	status, body := call(t, app, "/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No token provided", body["message"])

	status, _ = call(t, app, "/me", "Token "+token)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = call(t, app, "/me", "Bearer not.a.token")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Not authorized, invalid or expired token", body["message"])

	other := services.NewAuthService(repositories.NewMemoryUserRepository(), "other_secret")
	forged := register(t, other, "ana")
	status, _ = call(t, app, "/me", "Bearer "+forged)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = call(t, app, "/me", "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, body["id"], body["user_id"])
}

func TestAuthRequiredRejectsDeletedUser(t *testing.T) {
	app, _, _ := setup(t)
	ghost := services.NewAuthService(repositories.NewMemoryUserRepository(), "test_secret")
	token := register(t, ghost, "ghost")

	status, body := call(t, app, "/me", "Bearer "+token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "User not found", body["message"])
}

func TestAdminOnly(t *testing.T) {
	app, auth, users := setup(t)
	token := register(t, auth, "bo")

	status, body := call(t, app, "/admin", "Bearer "+token)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Access denied, admin only", body["message"])

	// Admin status is read from the stored account, so promoting works without a new token
	user, err := users.GetByUsername(context.Background(), "bo")
	require.NoError(t, err)
	user.IsAdmin = true
	require.NoError(t, users.Update(context.Background(), user))

	status, _ = call(t, app, "/admin", "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, status)
}
