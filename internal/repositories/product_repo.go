package repositories

import (
	"context"

	"aether/internal/models"
)

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Category string // case-insensitive exact match; empty means any
	Exclude  string // product id to leave out
	Offset   int
	Limit    int // zero means no limit
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}
