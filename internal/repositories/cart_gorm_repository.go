package repositories

import (
	"context"
	"errors"
	"fmt"

	"aether/internal/apperr"
	"aether/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository. Line items are
// stored as a JSON column so a cart stays a single row, like its document counterpart.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

func (r *GORMCartRepository) GetByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).First(&cart, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart for user %s %w", userID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

func (r *GORMCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	tx := r.db.WithContext(ctx)
	var err error
	if cart.ID == "" {
		cart.ID = uuid.New().String()
		err = tx.Create(cart).Error
	} else {
		err = tx.Save(cart).Error
	}
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// GORMWishlistRepository is a GORM implementation of WishlistRepository.
type GORMWishlistRepository struct {
	db *gorm.DB
}

// NewGORMWishlistRepository creates a new instance of GORMWishlistRepository.
func NewGORMWishlistRepository(db *gorm.DB) *GORMWishlistRepository {
	return &GORMWishlistRepository{db: db}
}

func (r *GORMWishlistRepository) GetByUser(ctx context.Context, userID string) (*models.Wishlist, error) {
	var w models.Wishlist
	if err := r.db.WithContext(ctx).First(&w, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("wishlist for user %s %w", userID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get wishlist for user %s: %w", userID, err)
	}
	return &w, nil
}

func (r *GORMWishlistRepository) Save(ctx context.Context, wishlist *models.Wishlist) error {
	if wishlist.ProductIDs == nil {
		wishlist.ProductIDs = []string{}
	}
	tx := r.db.WithContext(ctx)
	var err error
	if wishlist.ID == "" {
		wishlist.ID = uuid.New().String()
		err = tx.Create(wishlist).Error
	} else {
		err = tx.Save(wishlist).Error
	}
	if err != nil {
		return fmt.Errorf("failed to save wishlist: %w", err)
	}
	return nil
}
