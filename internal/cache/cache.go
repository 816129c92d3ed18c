// Package cache keeps read-through copies of catalog products.
package cache

import (
	"context"
	"sync"
	"time"

	"aether/internal/models"
)

// Key formats. Entries expire after the configured TTL.
const (
	KeyProductByID   = "product:id:%s"
	KeyProductBySlug = "product:slug:%s"
)

// ProductCache stores products by id and by slug. Lookups never fail: a cache error
// reads as a miss.
type ProductCache interface {
	GetByID(ctx context.Context, id string) (*models.Product, bool)
	GetBySlug(ctx context.Context, slug string) (*models.Product, bool)
	Set(ctx context.Context, product *models.Product)
	Invalidate(ctx context.Context, product *models.Product)
}

// Nop is a cache that stores nothing.
type Nop struct{}

func (Nop) GetByID(context.Context, string) (*models.Product, bool)   { return nil, false }
func (Nop) GetBySlug(context.Context, string) (*models.Product, bool) { return nil, false }
func (Nop) Set(context.Context, *models.Product)                      {}
func (Nop) Invalidate(context.Context, *models.Product)               {}

type memoryEntry struct {
	product models.Product
	expires time.Time
}

// Memory is a process-local ProductCache.
type Memory struct {
	ttl    time.Duration
	mu     sync.RWMutex
	byID   map[string]memoryEntry
	bySlug map[string]string
}

// NewMemory returns a Memory cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:    ttl,
		byID:   make(map[string]memoryEntry),
		bySlug: make(map[string]string),
	}
}

func (m *Memory) GetByID(ctx context.Context, id string) (*models.Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	p := e.product.Clone()
	return &p, true
}

func (m *Memory) GetBySlug(ctx context.Context, slug string) (*models.Product, bool) {
	m.mu.RLock()
	id, ok := m.bySlug[slug]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return m.GetByID(ctx, id)
}

func (m *Memory) Set(ctx context.Context, product *models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[product.ID] = memoryEntry{product: product.Clone(), expires: time.Now().Add(m.ttl)}
	if product.Slug != "" {
		m.bySlug[product.Slug] = product.ID
	}
}

func (m *Memory) Invalidate(ctx context.Context, product *models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.byID[product.ID]; ok {
		delete(m.bySlug, e.product.Slug)
	}
	delete(m.byID, product.ID)
	delete(m.bySlug, product.Slug)
}
