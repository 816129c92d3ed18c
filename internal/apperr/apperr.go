// Package apperr defines the error kinds shared by repositories, services and handlers,
// and how each kind maps onto an HTTP status code.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned for missing, invalid or expired credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when an authenticated caller lacks the admin role.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when an entity does not exist. Messages read naturally
	// when wrapped as fmt.Errorf("product with ID %s %w", id, ErrNotFound).
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for duplicate email, username, slug or review.
	ErrConflict = errors.New("already exists")

	// ErrSignatureMismatch is returned when a payment callback signature does not verify.
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrGateway wraps failures reported by the payment gateway.
	ErrGateway = errors.New("payment gateway error")

	// ErrGatewayNotConfigured is returned when gateway keys are absent.
	ErrGatewayNotConfigured = errors.New("payment gateway not configured")
)

// Status returns the HTTP status code for err.
// Duplicates map to 400, matching the storefront's historical responses.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict), errors.Is(err, ErrSignatureMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Error pairs a user-facing message with one of the sentinel kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind whose message is shown to clients as is.
func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Message returns the text to show a client for err. Server-side failures are replaced
// by fallback so internal details never leak.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if Status(err) >= http.StatusInternalServerError && !errors.Is(err, ErrGatewayNotConfigured) {
		return fallback
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if errors.Is(err, ErrGatewayNotConfigured) {
		return "Payment gateway not configured"
	}
	return err.Error()
}
