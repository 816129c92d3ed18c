package models

import "time"

// CartItem is a line in a user's cart.
type CartItem struct {
	ID        string `json:"_id" bson:"_id"`
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
	Size      string `json:"size" bson:"size"`
}

// Cart is the server-side cart owned by one user.
type Cart struct {
	ID        string     `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	UserID    string     `json:"user" gorm:"uniqueIndex;type:varchar(36)" bson:"user"`
	Items     []CartItem `json:"items" gorm:"serializer:json" bson:"items"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// FindItem returns the index of the line with the given id, or -1.
func (c *Cart) FindItem(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// FindLine returns the index of the line matching productID and size, or -1.
func (c *Cart) FindLine(productID, size string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Size == size {
			return i
		}
	}
	return -1
}

// Wishlist is the set of products a user saved for later.
type Wishlist struct {
	ID         string    `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	UserID     string    `json:"user" gorm:"uniqueIndex;type:varchar(36)" bson:"user"`
	ProductIDs []string  `json:"products" gorm:"serializer:json" bson:"products"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Contains reports whether productID is on the wishlist.
func (w *Wishlist) Contains(productID string) bool {
	for _, id := range w.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Remove drops productID from the wishlist and reports whether it was present.
func (w *Wishlist) Remove(productID string) bool {
	for i, id := range w.ProductIDs {
		if id == productID {
			w.ProductIDs = append(w.ProductIDs[:i], w.ProductIDs[i+1:]...)
			return true
		}
	}
	return false
}
