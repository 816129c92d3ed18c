package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aether/internal/apperr"
	"aether/internal/models"

	"github.com/google/uuid"
)

// MemoryCartRepository is an in-memory implementation of CartRepository.
type MemoryCartRepository struct {
	carts map[string]models.Cart // keyed by user id
	mu    sync.RWMutex
}

// NewMemoryCartRepository creates a new instance of MemoryCartRepository.
func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{carts: make(map[string]models.Cart)}
}

func (r *MemoryCartRepository) GetByUser(ctx context.Context, userID string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart for user %s %w", userID, apperr.ErrNotFound)
	}
	c := cloneCart(cart)
	return &c, nil
}

func (r *MemoryCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart.ID == "" {
		cart.ID = uuid.New().String()
		cart.CreatedAt = time.Now()
	}
	cart.UpdatedAt = time.Now()
	r.carts[cart.UserID] = cloneCart(*cart)
	return nil
}

// MemoryWishlistRepository is an in-memory implementation of WishlistRepository.
type MemoryWishlistRepository struct {
	wishlists map[string]models.Wishlist // keyed by user id
	mu        sync.RWMutex
}

// NewMemoryWishlistRepository creates a new instance of MemoryWishlistRepository.
func NewMemoryWishlistRepository() *MemoryWishlistRepository {
	return &MemoryWishlistRepository{wishlists: make(map[string]models.Wishlist)}
}

func (r *MemoryWishlistRepository) GetByUser(ctx context.Context, userID string) (*models.Wishlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.wishlists[userID]
	if !ok {
		return nil, fmt.Errorf("wishlist for user %s %w", userID, apperr.ErrNotFound)
	}
	c := cloneWishlist(w)
	return &c, nil
}

func (r *MemoryWishlistRepository) Save(ctx context.Context, wishlist *models.Wishlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wishlist.ID == "" {
		wishlist.ID = uuid.New().String()
		wishlist.CreatedAt = time.Now()
	}
	wishlist.UpdatedAt = time.Now()
	r.wishlists[wishlist.UserID] = cloneWishlist(*wishlist)
	return nil
}
