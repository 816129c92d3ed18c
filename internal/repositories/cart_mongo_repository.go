package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aether/internal/apperr"
	"aether/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCartRepository keeps one cart document per user.
type MongoCartRepository struct {
	coll *mongo.Collection
}

// NewMongoCartRepository creates a new instance of MongoCartRepository.
func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{coll: db.Collection(cartsCollection)}
}

func (r *MongoCartRepository) GetByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&cart); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("cart for user %s %w", userID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

func (r *MongoCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	now := time.Now()
	if cart.ID == "" {
		cart.ID = uuid.New().String()
		cart.CreatedAt = now
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	cart.UpdatedAt = now
	_, err := r.coll.ReplaceOne(ctx, bson.M{"user": cart.UserID}, cart, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// MongoWishlistRepository keeps one wishlist document per user.
type MongoWishlistRepository struct {
	coll *mongo.Collection
}

// NewMongoWishlistRepository creates a new instance of MongoWishlistRepository.
func NewMongoWishlistRepository(db *mongo.Database) *MongoWishlistRepository {
	return &MongoWishlistRepository{coll: db.Collection(wishlistsCollection)}
}

func (r *MongoWishlistRepository) GetByUser(ctx context.Context, userID string) (*models.Wishlist, error) {
	var w models.Wishlist
	if err := r.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("wishlist for user %s %w", userID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get wishlist for user %s: %w", userID, err)
	}
	return &w, nil
}

func (r *MongoWishlistRepository) Save(ctx context.Context, wishlist *models.Wishlist) error {
	now := time.Now()
	if wishlist.ID == "" {
		wishlist.ID = uuid.New().String()
		wishlist.CreatedAt = now
	}
	if wishlist.ProductIDs == nil {
		wishlist.ProductIDs = []string{}
	}
	wishlist.UpdatedAt = now
	_, err := r.coll.ReplaceOne(ctx, bson.M{"user": wishlist.UserID}, wishlist, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save wishlist: %w", err)
	}
	return nil
}
