package repositories

import (
	"context"

	"aether/internal/models"
)

// CartRepository defines the interface for cart data access. Save inserts or replaces
// the user's cart document; there is at most one cart per user.
type CartRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
}

// WishlistRepository defines the interface for wishlist data access.
type WishlistRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.Wishlist, error)
	Save(ctx context.Context, wishlist *models.Wishlist) error
}
