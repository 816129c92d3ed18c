package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"aether/internal/models"

	"github.com/redis/go-redis/v9"
)

// Redis is a ProductCache shared across API instances.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient opens a client for addr. The connection is established lazily.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// NewRedis wraps rdb as a product cache with the given entry TTL.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) get(ctx context.Context, key string) (*models.Product, bool) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache: get %s: %v", key, err)
		}
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("cache: decode %s: %v", key, err)
		return nil, false
	}
	return &p, true
}

func (r *Redis) GetByID(ctx context.Context, id string) (*models.Product, bool) {
	return r.get(ctx, fmt.Sprintf(KeyProductByID, id))
}

func (r *Redis) GetBySlug(ctx context.Context, slug string) (*models.Product, bool) {
	return r.get(ctx, fmt.Sprintf(KeyProductBySlug, slug))
}

func (r *Redis) Set(ctx context.Context, product *models.Product) {
	b, err := json.Marshal(product)
	if err != nil {
		log.Printf("cache: encode product %s: %v", product.ID, err)
		return
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(KeyProductByID, product.ID), b, r.ttl)
	if product.Slug != "" {
		pipe.Set(ctx, fmt.Sprintf(KeyProductBySlug, product.Slug), b, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("cache: set product %s: %v", product.ID, err)
	}
}

// Invalidate drops the id key and the slug key. The previously cached slug is removed
// too so a renamed product cannot be served under its old slug.
func (r *Redis) Invalidate(ctx context.Context, product *models.Product) {
	keys := []string{fmt.Sprintf(KeyProductByID, product.ID)}
	if old, ok := r.GetByID(ctx, product.ID); ok && old.Slug != "" && old.Slug != product.Slug {
		keys = append(keys, fmt.Sprintf(KeyProductBySlug, old.Slug))
	}
	if product.Slug != "" {
		keys = append(keys, fmt.Sprintf(KeyProductBySlug, product.Slug))
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache: invalidate product %s: %v", product.ID, err)
	}
}

// Ping reports whether the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
