package repositories

import (
	"slices"

	"aether/internal/models"
)

// The in-memory repositories hand out copies so callers never alias stored slices.

func cloneProduct(p models.Product) models.Product {
	return p.Clone()
}

func cloneCart(c models.Cart) models.Cart {
	c.Items = slices.Clone(c.Items)
	return c
}

func cloneWishlist(w models.Wishlist) models.Wishlist {
	w.ProductIDs = slices.Clone(w.ProductIDs)
	return w
}

func cloneOrder(o models.Order) models.Order {
	o.Items = slices.Clone(o.Items)
	return o
}
