package repositories

import (
	"context"
	"fmt"

	"aether/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Set bundles one implementation of every repository.
type Set struct {
	Users     UserRepository
	Products  ProductRepository
	Carts     CartRepository
	Wishlists WishlistRepository
	Orders    OrderRepository
}

// NewMemorySet returns repositories backed by process memory.
func NewMemorySet() *Set {
	return &Set{
		Users:     NewMemoryUserRepository(),
		Products:  NewMemoryProductRepository(),
		Carts:     NewMemoryCartRepository(),
		Wishlists: NewMemoryWishlistRepository(),
		Orders:    NewMemoryOrderRepository(),
	}
}

// NewGORMSet returns repositories backed by a relational database.
func NewGORMSet(db *gorm.DB) *Set {
	return &Set{
		Users:     NewGORMUserRepository(db),
		Products:  NewGORMProductRepository(db),
		Carts:     NewGORMCartRepository(db),
		Wishlists: NewGORMWishlistRepository(db),
		Orders:    NewGORMOrderRepository(db),
	}
}

// NewMongoSet returns repositories backed by a MongoDB database.
func NewMongoSet(db *mongo.Database) *Set {
	return &Set{
		Users:     NewMongoUserRepository(db),
		Products:  NewMongoProductRepository(db),
		Carts:     NewMongoCartRepository(db),
		Wishlists: NewMongoWishlistRepository(db),
		Orders:    NewMongoOrderRepository(db),
	}
}

// OpenGORM opens a relational database for the given driver name and migrates the schema.
func OpenGORM(driver, dsn string, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	cfg := &gorm.Config{TranslateError: true}
	if !debug {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates the tables for every model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Cart{}, &models.Wishlist{}, &models.Order{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// OpenMongoSet connects the document store, ensures indexes and returns its repositories.
func OpenMongoSet(ctx context.Context, client *mongo.Client, database string) (*Set, error) {
	db := client.Database(database)
	if err := EnsureMongoIndexes(ctx, db); err != nil {
		return nil, err
	}
	return NewMongoSet(db), nil
}
