package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"aether/internal/apperr"
	"aether/internal/mail"
	"aether/internal/models"
	"aether/internal/payment"
	"aether/internal/pricing"
	"aether/internal/repositories"
	"aether/internal/server"
	"aether/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeySecret = "test_key_secret"

type testApp struct {
	app     *fiber.App
	auth    *services.AuthService
	repos   *repositories.Set
	signer  *payment.Signer
	mailer  *mail.LogMailer
	gateway *payment.FakeGateway
}

// setupApp sets up a Fiber app for testing with an isolated in-memory SQLite database
// and all handlers/services.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	db, err := repositories.OpenGORM("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	repos := repositories.NewGORMSet(db)

	mailer := &mail.LogMailer{InboxAddr: "shop@aether.test"}
	signer := payment.NewSigner(testKeySecret)
	authService := services.NewAuthService(repos.Users, "test_jwt_secret",
		services.WithPasswordReset(mailer, "http://localhost:3000", time.Hour))
	productService := services.NewProductService(repos.Products, nil)
	gateway := &payment.FakeGateway{Key: "rzp_test_key"}

	app := server.New(server.Deps{
		Auth:      authService,
		Products:  productService,
		Carts:     services.NewCartService(repos.Carts, productService, pricing.DefaultRules),
		Wishlists: services.NewWishlistService(repos.Wishlists, productService),
		Checkout: services.NewCheckoutService(services.CheckoutConfig{
			Orders:   repos.Orders,
			Carts:    repos.Carts,
			Products: productService,
			Gateway:  gateway,
			Signer:   signer,
			Rules:    pricing.DefaultRules,
		}),
		Contact: services.NewContactService(mailer),
		Quiet:   true,
	})
	return &testApp{app: app, auth: authService, repos: repos, signer: signer, mailer: mailer, gateway: gateway}
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (a *testApp) register(t *testing.T, username string) string {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Test " + username,
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	return body["token"].(string)
}

func (a *testApp) registerAdmin(t *testing.T, username string) string {
	t.Helper()
	token := a.register(t, username)
	user, err := a.repos.Users.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	user.IsAdmin = true
	require.NoError(t, a.repos.Users.Update(context.Background(), user))
	return token
}

func (a *testApp) seedProduct(t *testing.T, token, name string, price float64) map[string]interface{} {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/api/products", token, map[string]interface{}{
		"name":      name,
		"category":  "leather jacket",
		"price":     price,
		"images":    []string{"/images/" + name + ".jpg"},
		"thumbnail": "/images/" + name + ".jpg",
		"sizes":     []string{"S", "M", "L"},
		"stock":     10,
	})
	require.Equal(t, http.StatusCreated, status, body)
	return body
}

func shippingBody() map[string]string {
	return map[string]string{
		"phone":   "9999999999",
		"address": "1 Main St",
		"city":    "Pune",
		"pincode": "411001",
	}
}

func TestAuthRegisterAndLogin(t *testing.T) {
	a := setupApp(t)
	a.register(t, "testuser")

	// Duplicate registration
	status, body := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Other", "username": "testuser", "email": "other@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Username already taken", body["message"])

	status, body = a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Short", "username": "short", "email": "short@example.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Password must be at least 6 characters", body["message"])

	// Login by username
	status, body = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"login": "testuser", "password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	token := body["token"].(string)
	assert.NotEmpty(t, token)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "testuser", user["username"])
	assert.NotContains(t, user, "password")

	claims, err := a.auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "testuser", claims["username"])
	assert.Contains(t, claims, "user_id")

	// Login by email is case-insensitive
	status, _ = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "TestUser@Example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusOK, status)

	status, body = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"login": "testuser", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", body["message"])

	status, body = a.do(t, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	profile := body["user"].(map[string]interface{})
	assert.Equal(t, "testuser@example.com", profile["email"])
	assert.NotContains(t, profile, "password")

	status, _ = a.do(t, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = a.do(t, http.MethodPost, "/api/auth/check-user", "", map[string]string{"username": "testuser"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["exists"])
	status, body = a.do(t, http.MethodPost, "/api/auth/check-user", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["exists"])

	status, body = a.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out successfully", body["message"])
}

func TestPasswordResetEndpoints(t *testing.T) {
	a := setupApp(t)
	a.register(t, "forgetful")

	status, body := a.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, a.mailer.Sent())

	status, _ = a.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "forgetful@example.com"})
	require.Equal(t, http.StatusOK, status)
	sent := a.mailer.Sent()
	require.Len(t, sent, 1)
	const prefix = "Reset your password: http://localhost:3000/reset-password/"
	require.True(t, strings.HasPrefix(sent[0].Text, prefix))
	token := strings.TrimPrefix(sent[0].Text, prefix)

	status, body = a.do(t, http.MethodPost, "/api/auth/reset-password/bogus", "", map[string]string{"password": "brandnew1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid or expired reset token", body["message"])

	status, _ = a.do(t, http.MethodPost, "/api/auth/reset-password/"+token, "", map[string]string{"password": "brandnew1"})
	require.Equal(t, http.StatusOK, status)

	// The token is single use
	status, _ = a.do(t, http.MethodPost, "/api/auth/reset-password/"+token, "", map[string]string{"password": "another1"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "forgetful", "password": "brandnew1"})
	assert.Equal(t, http.StatusOK, status)
}

func TestProductEndpoints(t *testing.T) {
	a := setupApp(t)
	admin := a.registerAdmin(t, "admin")
	shopper := a.register(t, "shopper")

	newProduct := map[string]interface{}{
		"name": "Vintage Biker", "category": "leather jacket", "price": 2500,
		"images": []string{"/a.jpg"}, "thumbnail": "/a.jpg",
	}

	// Writes need a token and the admin flag
	status, _ := a.do(t, http.MethodPost, "/api/products", "", newProduct)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, body := a.do(t, http.MethodPost, "/api/products", shopper, newProduct)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Access denied, admin only", body["message"])

	status, created := a.do(t, http.MethodPost, "/api/products", admin, newProduct)
	require.Equal(t, http.StatusCreated, status)
	id := created["_id"].(string)
	assert.Equal(t, "vintage-biker", created["slug"])
	assert.Equal(t, "Aether", created["brand"])

	status, dup := a.do(t, http.MethodPost, "/api/products", admin, newProduct)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "vintage-biker-1", dup["slug"])

	status, body = a.do(t, http.MethodPost, "/api/products", admin, map[string]interface{}{"name": "No price"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])

	// Reads are public
	status, body = a.do(t, http.MethodGet, "/api/products?category=Leather%20Jacket&limit=1&page=2", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(2), body["pages"])
	assert.Len(t, body["products"], 1)

	status, body = a.do(t, http.MethodGet, "/api/products/slug/vintage-biker", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body["_id"])

	status, body = a.do(t, http.MethodPut, "/api/products/"+id, admin, map[string]interface{}{"name": "Moto Jacket", "price": 2700})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "moto-jacket", body["slug"])
	assert.Equal(t, float64(2700), body["price"])

	status, _ = a.do(t, http.MethodPut, "/api/products/"+id, shopper, map[string]interface{}{"price": 1})
	assert.Equal(t, http.StatusForbidden, status)

	// Reviews
	review := map[string]interface{}{"rating": 4, "comment": "Lovely leather"}
	status, _ = a.do(t, http.MethodPost, "/api/products/"+id+"/reviews", "", review)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, body = a.do(t, http.MethodPost, "/api/products/"+id+"/reviews", shopper, review)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Review added", body["message"])
	status, body = a.do(t, http.MethodPost, "/api/products/"+id+"/reviews", shopper, review)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "You have already reviewed this product", body["message"])
	status, body = a.do(t, http.MethodPost, "/api/products/"+id+"/reviews", admin, map[string]interface{}{"rating": 9, "comment": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["message"])

	status, body = a.do(t, http.MethodGet, "/api/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["numReviews"])
	assert.Equal(t, float64(4), body["rating"])

	status, body = a.do(t, http.MethodDelete, "/api/products/"+id, admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Product deleted", body["message"])

	status, body = a.do(t, http.MethodGet, "/api/products/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Product not found", body["message"])
}

func TestCartEndpoints(t *testing.T) {
	a := setupApp(t)
	admin := a.registerAdmin(t, "admin")
	shopper := a.register(t, "shopper")
	jacket := a.seedProduct(t, admin, "Jacket", 1000)
	tote := a.seedProduct(t, admin, "Tote", 300)

	status, _ := a.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := a.do(t, http.MethodGet, "/api/cart", shopper, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["items"])

	line := map[string]interface{}{"productId": jacket["_id"], "quantity": 1, "size": "M"}
	status, _ = a.do(t, http.MethodPost, "/api/cart", shopper, line)
	require.Equal(t, http.StatusCreated, status)
	status, body = a.do(t, http.MethodPost, "/api/cart", shopper, line)
	require.Equal(t, http.StatusCreated, status)

	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, float64(2), first["quantity"])
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, float64(2000), summary["subtotal"])
	assert.Equal(t, float64(0), summary["shipping"])
	assert.Equal(t, float64(360), summary["tax"])
	assert.Equal(t, float64(2360), summary["total"])

	itemID := first["_id"].(string)
	status, body = a.do(t, http.MethodPut, "/api/cart/item/"+itemID, shopper, map[string]int{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, status)
	status, body = a.do(t, http.MethodPut, "/api/cart/item/"+itemID, shopper, map[string]int{"quantity": 1})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(49), body["summary"].(map[string]interface{})["shipping"])
	status, body = a.do(t, http.MethodPut, "/api/cart/item/unknown", shopper, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Item not found", body["message"])

	status, body = a.do(t, http.MethodPost, "/api/cart/merge", shopper, map[string]interface{}{
		"items": []map[string]interface{}{{"productId": tote["_id"], "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 2)

	status, body = a.do(t, http.MethodDelete, "/api/cart/item/"+itemID, shopper, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)

	status, body = a.do(t, http.MethodDelete, "/api/cart", shopper, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["items"])

	status, body = a.do(t, http.MethodPost, "/api/cart", shopper, map[string]interface{}{"productId": "missing"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Product not found", body["message"])
}

func TestWishlistEndpoints(t *testing.T) {
	a := setupApp(t)
	admin := a.registerAdmin(t, "admin")
	shopper := a.register(t, "shopper")
	jacket := a.seedProduct(t, admin, "Jacket", 1000)
	id := jacket["_id"].(string)

	status, body := a.do(t, http.MethodDelete, "/api/wishlist/"+id, shopper, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Wishlist not found", body["message"])

	status, _ = a.do(t, http.MethodPost, "/api/wishlist/"+id, shopper, nil)
	require.Equal(t, http.StatusCreated, status)
	status, body = a.do(t, http.MethodPost, "/api/wishlist/"+id, shopper, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Len(t, body["products"], 1)

	status, body = a.do(t, http.MethodGet, "/api/wishlist", shopper, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["products"], 1)

	status, body = a.do(t, http.MethodDelete, "/api/wishlist/"+id, shopper, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["products"])
}

func TestPaymentEndpoints(t *testing.T) {
	a := setupApp(t)
	admin := a.registerAdmin(t, "admin")
	shopper := a.register(t, "shopper")
	jacket := a.seedProduct(t, admin, "Jacket", 1000)

	status, body := a.do(t, http.MethodGet, "/api/payments/test", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["razorpayConfigured"])
	assert.Equal(t, "rzp_test_key", body["key"])

	checkout := map[string]interface{}{
		"items":    []map[string]interface{}{{"productId": jacket["_id"], "quantity": 2}},
		"shipping": shippingBody(),
	}
	status, _ = a.do(t, http.MethodPost, "/api/payments/razorpay/order", "", checkout)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = a.do(t, http.MethodPost, "/api/payments/razorpay/order", shopper, checkout)
	require.Equal(t, http.StatusOK, status, body)
	gwOrder := body["razorpayOrder"].(map[string]interface{})
	dbOrder := body["dbOrder"].(map[string]interface{})
	assert.Equal(t, float64(236000), gwOrder["amount"])
	assert.Equal(t, "pending", dbOrder["paymentStatus"])

	gatewayOrderID := gwOrder["id"].(string)
	orderID := dbOrder["_id"].(string)

	// A tampered signature is rejected and the order stays pending
	tampered := payment.NewSigner("not_the_secret").Sign(gatewayOrderID, "pay_123")
	status, body = a.do(t, http.MethodPost, "/api/payments/razorpay/verify", "", map[string]string{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": "pay_123",
		"razorpay_signature":  tampered,
		"dbOrderId":           orderID,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Signature mismatch", body["message"])

	stored, err := a.repos.Orders.GetByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)

	status, body = a.do(t, http.MethodPost, "/api/payments/razorpay/verify", "", map[string]string{"razorpay_order_id": gatewayOrderID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing verification data", body["message"])

	// The genuine signature settles it, and a replay is harmless
	valid := map[string]string{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": "pay_123",
		"razorpay_signature":  a.signer.Sign(gatewayOrderID, "pay_123"),
		"dbOrderId":           orderID,
	}
	for i := 0; i < 2; i++ {
		status, body = a.do(t, http.MethodPost, "/api/payments/razorpay/verify", "", valid)
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, "paid", body["order"].(map[string]interface{})["paymentStatus"])
	}

	status, body = a.do(t, http.MethodPost, "/api/payments/cod/order", shopper, checkout)
	require.Equal(t, http.StatusCreated, status, body)
	cod := body["order"].(map[string]interface{})
	assert.Equal(t, "cod", cod["paymentProvider"])
	assert.Equal(t, "pending", cod["paymentStatus"])

	status, body = a.do(t, http.MethodPost, "/api/payments/razorpay/failure", shopper, map[string]string{
		"dbOrderId": orderID, "code": "BAD_REQUEST_ERROR", "reason": "payment_failed",
	})
	assert.Equal(t, http.StatusOK, status)

	status, body = a.do(t, http.MethodGet, "/api/payments/my-orders", shopper, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["orders"], 2)

	status, body = a.do(t, http.MethodGet, "/api/payments/my-orders", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["orders"])
}

func TestGatewayFailureIsLoggedOnce(t *testing.T) {
	a := setupApp(t)
	admin := a.registerAdmin(t, "admin")
	shopper := a.register(t, "shopper")
	jacket := a.seedProduct(t, admin, "Jacket", 1000)
	a.gateway.Err = fmt.Errorf("razorpay: %w", apperr.ErrGateway)

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(io.Discard)

	status, body := a.do(t, http.MethodPost, "/api/payments/razorpay/order", shopper, map[string]interface{}{
		"items":    []map[string]interface{}{{"productId": jacket["_id"], "quantity": 1}},
		"shipping": shippingBody(),
	})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, 1, strings.Count(logs.String(), "Order creation error"))

	user, err := a.repos.Users.GetByUsername(context.Background(), "shopper")
	require.NoError(t, err)
	orders, err := a.repos.Orders.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestContactEndpoint(t *testing.T) {
	a := setupApp(t)

	status, body := a.do(t, http.MethodPost, "/api/contact", "", map[string]string{"name": "Ana"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "All fields are required.", body["message"])

	status, body = a.do(t, http.MethodPost, "/api/contact", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "message": "Do you ship abroad?",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Len(t, a.mailer.Sent(), 2)
}

func TestUnknownRoute(t *testing.T) {
	a := setupApp(t)
	status, body := a.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Route not found", body["message"])
}
