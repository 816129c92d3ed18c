package pricing_test

import (
	"testing"

	"aether/internal/pricing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_FreeShippingAboveThreshold(t *testing.T) {
	s := pricing.DefaultRules.Compute([]pricing.Line{{Price: 1000, Quantity: 2}})
	assert.Equal(t, 2000.0, s.Subtotal)
	assert.Equal(t, 0.0, s.Shipping)
	assert.Equal(t, 360.0, s.Tax)
	assert.Equal(t, 2360.0, s.Total)
	assert.Equal(t, 2, s.TotalItems)
}

func TestCompute_FlatFeeBelowThreshold(t *testing.T) {
	s := pricing.DefaultRules.Compute([]pricing.Line{{Price: 499.5, Quantity: 1}, {Price: 100, Quantity: 3}})
	assert.Equal(t, 799.5, s.Subtotal)
	assert.Equal(t, 49.0, s.Shipping)
	assert.Equal(t, 143.91, s.Tax)
	assert.Equal(t, 992.41, s.Total)
}

func TestCompute_ThresholdIsExclusive(t *testing.T) {
	s := pricing.DefaultRules.Compute([]pricing.Line{{Price: 1500, Quantity: 1}})
	assert.Equal(t, 0.0, s.Shipping)
}

func TestCompute_EmptyCart(t *testing.T) {
	s := pricing.DefaultRules.Compute(nil)
	assert.Equal(t, pricing.Summary{}, s)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(236000), pricing.MinorUnits(2360))
	assert.Equal(t, int64(99241), pricing.MinorUnits(992.41))
	assert.Equal(t, int64(1), pricing.MinorUnits(0.005))
}
