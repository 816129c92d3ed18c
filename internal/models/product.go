package models

import (
	"slices"
	"time"
)

// Categories accepted for a product.
var Categories = []string{
	"leather jacket",
	"y2k era tops",
	"corset top",
	"denim jeans",
	"handbags",
	"faux leather jacket",
}

// Product conditions.
const (
	ConditionNew  = "New"
	ConditionUsed = "Used"
)

// DefaultBrand is applied when a product is created without a brand.
const DefaultBrand = "Aether"

// Review is a single customer review embedded in a product.
type Review struct {
	UserID    string    `json:"user" bson:"user"`
	Name      string    `json:"name" bson:"name"`
	Rating    int       `json:"rating" bson:"rating"`
	Comment   string    `json:"comment" bson:"comment"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Product represents a catalog entry.
type Product struct {
	ID          string    `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name        string    `json:"name" gorm:"type:varchar(200)" bson:"name" validate:"required,max=200"`
	Slug        string    `json:"slug" gorm:"uniqueIndex;type:varchar(220)" bson:"slug"`
	Category    string    `json:"category" gorm:"index;type:varchar(50)" bson:"category" validate:"required,category"`
	Brand       string    `json:"brand" bson:"brand"`
	Price       float64   `json:"price" bson:"price" validate:"gt=0"`
	Condition   string    `json:"condition" bson:"condition" validate:"required,oneof=New Used"`
	Images      []string  `json:"images" gorm:"serializer:json" bson:"images" validate:"required,min=1,dive,required"`
	Thumbnail   string    `json:"thumbnail" bson:"thumbnail" validate:"required"`
	Description string    `json:"description" bson:"description" validate:"omitempty,max=5000"`
	Sizes       []string  `json:"sizes" gorm:"serializer:json" bson:"sizes"`
	Stock       int       `json:"stock" bson:"stock" validate:"gte=0"`
	Badge       string    `json:"badge,omitempty" bson:"badge,omitempty"`
	Reviews     []Review  `json:"reviews" gorm:"serializer:json" bson:"reviews"`
	Rating      float64   `json:"rating" bson:"rating"`
	NumReviews  int       `json:"numReviews" bson:"numReviews"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// RecomputeRating derives Rating and NumReviews from the embedded reviews.
func (p *Product) RecomputeRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.Rating = 0
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = float64(sum) / float64(p.NumReviews)
}

// Clone returns a copy that shares no slices with p. Empty slices stay empty rather
// than nil so the copy serializes the same way.
func (p Product) Clone() Product {
	p.Images = slices.Clone(p.Images)
	p.Sizes = slices.Clone(p.Sizes)
	p.Reviews = slices.Clone(p.Reviews)
	return p
}

// HasReviewFrom reports whether userID already reviewed the product.
func (p *Product) HasReviewFrom(userID string) bool {
	for _, r := range p.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// IsValidCategory reports whether c is one of Categories.
func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}
