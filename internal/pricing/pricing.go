// Package pricing derives cart and order totals from line items.
package pricing

import "github.com/shopspring/decimal"

// Rules are the storefront's shipping and tax parameters.
type Rules struct {
	ShippingFee           float64
	FreeShippingThreshold float64
	TaxRate               float64
}

// DefaultRules charge a flat 49 below 1500 and 18% tax.
var DefaultRules = Rules{
	ShippingFee:           49,
	FreeShippingThreshold: 1500,
	TaxRate:               0.18,
}

// Line is anything with a unit price and quantity.
type Line struct {
	Price    float64
	Quantity int
}

// Summary is the derived pricing of a list of lines.
type Summary struct {
	Subtotal   float64 `json:"subtotal"`
	Shipping   float64 `json:"shipping"`
	Tax        float64 `json:"tax"`
	Total      float64 `json:"total"`
	TotalItems int     `json:"totalItems"`
}

// Compute returns the summary of lines under r.
// Shipping applies only when 0 < subtotal < threshold.
func (r Rules) Compute(lines []Line) Summary {
	subtotal := decimal.Zero
	items := 0
	for _, l := range lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
		items += l.Quantity
	}

	shipping := decimal.Zero
	if subtotal.IsPositive() && subtotal.LessThan(decimal.NewFromFloat(r.FreeShippingThreshold)) {
		shipping = decimal.NewFromFloat(r.ShippingFee)
	}
	tax := subtotal.Mul(decimal.NewFromFloat(r.TaxRate))
	total := subtotal.Add(shipping).Add(tax)

	return Summary{
		Subtotal:   subtotal.Round(2).InexactFloat64(),
		Shipping:   shipping.Round(2).InexactFloat64(),
		Tax:        tax.Round(2).InexactFloat64(),
		Total:      total.Round(2).InexactFloat64(),
		TotalItems: items,
	}
}

// MinorUnits converts an amount in major currency units to minor units (paise, cents).
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
