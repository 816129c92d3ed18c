// Package storefront is an HTTP client for the storefront API. Credentials travel
// with each call as a Session; the client itself holds no auth state.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// DefaultTimeout bounds a request when the caller's context has no deadline.
const DefaultTimeout = 10 * time.Second

// Session carries the bearer token of a signed-in user.
type Session struct {
	Token string
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront: %d %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == fiber.StatusUnauthorized
}

// User is the account returned at login.
type User struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

// ProductRef is the catalog data joined onto a cart line.
type ProductRef struct {
	ID        string  `json:"_id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Price     float64 `json:"price"`
	Thumbnail string  `json:"thumbnail"`
	Stock     int     `json:"stock"`
}

// CartLine is one server-side cart line.
type CartLine struct {
	ID        string      `json:"_id"`
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	Size      string      `json:"size"`
	Product   *ProductRef `json:"product"`
	Available bool        `json:"available"`
}

// Summary is the server's pricing of a cart.
type Summary struct {
	Subtotal   float64 `json:"subtotal"`
	Shipping   float64 `json:"shipping"`
	Tax        float64 `json:"tax"`
	Total      float64 `json:"total"`
	TotalItems int     `json:"totalItems"`
}

// Cart is the authoritative cart of a user.
type Cart struct {
	Items   []CartLine `json:"items"`
	Summary Summary    `json:"summary"`
}

// Wishlist is the authoritative wishlist of a user.
type Wishlist struct {
	Products []ProductRef `json:"products"`
}

// ItemInput adds or merges a cart line.
type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

// Client talks to one storefront API.
type Client struct {
	baseURL string
	http    *fiber.Client
	timeout time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout used when ctx has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New returns a client for the API rooted at baseURL, e.g. http://localhost:5000/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &fiber.Client{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one request. A nil session sends no Authorization header.
func (c *Client) do(ctx context.Context, method, path string, s *Session, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var agent *fiber.Agent
	target := c.baseURL + path
	switch method {
	case fiber.MethodGet:
		agent = c.http.Get(target)
	case fiber.MethodPost:
		agent = c.http.Post(target)
	case fiber.MethodPut:
		agent = c.http.Put(target)
	case fiber.MethodDelete:
		agent = c.http.Delete(target)
	default:
		return fmt.Errorf("storefront: unsupported method %s", method)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	agent.Timeout(timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if s != nil && s.Token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+s.Token)
	}
	if body != nil {
		agent.JSON(body)
	}

	var envelope struct {
		Message string `json:"message"`
	}
	code, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("storefront: %s %s: %w", method, path, errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Message == "" {
			envelope.Message = utils.StatusMessage(code)
		}
		return &APIError{Status: code, Message: envelope.Message}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("storefront: decode %s %s: %w", method, path, err)
	}
	return nil
}

// Login signs in with a username or email and returns the session for later calls.
func (c *Client) Login(ctx context.Context, login, password string) (*Session, *User, error) {
	var res struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	err := c.do(ctx, fiber.MethodPost, "/auth/login", nil, map[string]string{"login": login, "password": password}, &res)
	if err != nil {
		return nil, nil, err
	}
	return &Session{Token: res.Token}, &res.User, nil
}

func (c *Client) cart(ctx context.Context, method, path string, s Session, body interface{}) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, method, path, &s, body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) wishlist(ctx context.Context, method, path string, s Session, body interface{}) (*Wishlist, error) {
	var w Wishlist
	if err := c.do(ctx, method, path, &s, body, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Cart returns the user's cart.
func (c *Client) Cart(ctx context.Context, s Session) (*Cart, error) {
	return c.cart(ctx, fiber.MethodGet, "/cart", s, nil)
}

// AddToCart adds a line or increments the matching one.
func (c *Client) AddToCart(ctx context.Context, s Session, item ItemInput) (*Cart, error) {
	return c.cart(ctx, fiber.MethodPost, "/cart", s, item)
}

// UpdateCartItem sets the quantity of a line.
func (c *Client) UpdateCartItem(ctx context.Context, s Session, lineID string, quantity int) (*Cart, error) {
	return c.cart(ctx, fiber.MethodPut, "/cart/item/"+url.PathEscape(lineID), s, map[string]int{"quantity": quantity})
}

// RemoveCartItem drops a line.
func (c *Client) RemoveCartItem(ctx context.Context, s Session, lineID string) (*Cart, error) {
	return c.cart(ctx, fiber.MethodDelete, "/cart/item/"+url.PathEscape(lineID), s, nil)
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context, s Session) (*Cart, error) {
	return c.cart(ctx, fiber.MethodDelete, "/cart", s, nil)
}

// MergeCart folds anonymous lines into the user's cart.
func (c *Client) MergeCart(ctx context.Context, s Session, items []ItemInput) (*Cart, error) {
	return c.cart(ctx, fiber.MethodPost, "/cart/merge", s, map[string]interface{}{"items": items})
}

// Wishlist returns the user's wishlist.
func (c *Client) Wishlist(ctx context.Context, s Session) (*Wishlist, error) {
	return c.wishlist(ctx, fiber.MethodGet, "/wishlist", s, nil)
}

// AddToWishlist saves a product.
func (c *Client) AddToWishlist(ctx context.Context, s Session, productID string) (*Wishlist, error) {
	return c.wishlist(ctx, fiber.MethodPost, "/wishlist/"+url.PathEscape(productID), s, nil)
}

// RemoveFromWishlist unsaves a product.
func (c *Client) RemoveFromWishlist(ctx context.Context, s Session, productID string) (*Wishlist, error) {
	return c.wishlist(ctx, fiber.MethodDelete, "/wishlist/"+url.PathEscape(productID), s, nil)
}

// MergeWishlist adds anonymous product ids to the user's wishlist.
func (c *Client) MergeWishlist(ctx context.Context, s Session, productIDs []string) (*Wishlist, error) {
	return c.wishlist(ctx, fiber.MethodPost, "/wishlist/merge", s, map[string]interface{}{"products": productIDs})
}
