package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"aether/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	p := &models.Product{ID: "p1", Slug: "runner", Name: "Runner", Sizes: []string{"M"}}
	c.Set(ctx, p)

	got, ok := c.GetByID(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, "Runner", got.Name)

	got.Sizes[0] = "XL"
	again, _ := c.GetBySlug(ctx, "runner")
	assert.Equal(t, "M", again.Sizes[0])

	renamed := &models.Product{ID: "p1", Slug: "runner-pro"}
	c.Invalidate(ctx, renamed)
	_, ok = c.GetByID(ctx, "p1")
	assert.False(t, ok)
	_, ok = c.GetBySlug(ctx, "runner")
	assert.False(t, ok)
}

func TestMemoryCacheKeepsEmptyLists(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	c.Set(ctx, &models.Product{ID: "p1", Slug: "runner", Images: []string{"/a.jpg"}, Sizes: []string{}, Reviews: []models.Review{}})

	got, ok := c.GetBySlug(ctx, "runner")
	require.True(t, ok)
	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"reviews":[]`)
	assert.Contains(t, string(raw), `"sizes":[]`)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(-time.Second)
	c.Set(ctx, &models.Product{ID: "p1"})
	_, ok := c.GetByID(ctx, "p1")
	assert.False(t, ok)
}

func TestRedisUnreachableReadsAsMiss(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	r := NewRedis(NewRedisClient("127.0.0.1:1", "", 0), time.Minute)

	r.Set(ctx, &models.Product{ID: "p1", Slug: "x"})
	_, ok := r.GetByID(ctx, "p1")
	assert.False(t, ok)
	assert.Error(t, r.Ping(ctx))
}

func TestNop(t *testing.T) {
	var c ProductCache = Nop{}
	c.Set(context.Background(), &models.Product{ID: "p1"})
	_, ok := c.GetByID(context.Background(), "p1")
	assert.False(t, ok)
}
