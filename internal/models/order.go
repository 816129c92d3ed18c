package models

import "time"

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment providers.
const (
	ProviderRazorpay = "razorpay"
	ProviderCOD      = "cod"
)

var validNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending: {PaymentPaid: true, PaymentFailed: true},
	PaymentPaid:    {},
	PaymentFailed:  {},
}

// CanTransition reports whether an order may move from one payment status to another.
// Re-applying the same terminal status is allowed so a replayed verification is harmless.
func CanTransition(from, to PaymentStatus) bool {
	if from == to && to == PaymentPaid {
		return true
	}
	return validNext[from][to]
}

// OrderItem is a snapshot of a cart line taken at checkout time.
type OrderItem struct {
	ProductID string  `json:"product" bson:"product"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"` // Price at the time of order
	Quantity  int     `json:"quantity" bson:"quantity"`
	Size      string  `json:"size" bson:"size"`
	Image     string  `json:"image" bson:"image"`
}

// Shipping holds the delivery address captured at checkout.
type Shipping struct {
	Name    string `json:"name" bson:"name" validate:"required"`
	Email   string `json:"email" bson:"email" validate:"required,email"`
	Phone   string `json:"phone" bson:"phone" validate:"required"`
	Address string `json:"address" bson:"address" validate:"required"`
	City    string `json:"city" bson:"city" validate:"required"`
	State   string `json:"state" bson:"state"`
	Pincode string `json:"pincode" bson:"pincode" validate:"required"`
}

// Order represents a customer order.
type Order struct {
	ID              string        `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	UserID          string        `json:"user" gorm:"index;type:varchar(36)" bson:"user"`
	Items           []OrderItem   `json:"items" gorm:"serializer:json" bson:"items"`
	Shipping        Shipping      `json:"shipping" gorm:"embedded;embeddedPrefix:shipping_" bson:"shipping"`
	PaymentProvider string        `json:"paymentProvider" gorm:"type:varchar(20)" bson:"paymentProvider"`
	PaymentStatus   PaymentStatus `json:"paymentStatus" gorm:"type:varchar(20)" bson:"paymentStatus"`
	GatewayOrderID  string        `json:"razorpayOrderId" gorm:"index;type:varchar(64)" bson:"razorpayOrderId"`
	PaymentID       string        `json:"paymentId" bson:"paymentId"`
	Signature       string        `json:"razorpaySignature" bson:"razorpaySignature"`
	Subtotal        float64       `json:"subtotal" bson:"subtotal"`
	ShippingFee     float64       `json:"shippingFee" bson:"shippingFee"`
	Tax             float64       `json:"tax" bson:"tax"`
	Total           float64       `json:"total" bson:"total"`
	Currency        string        `json:"currency" gorm:"type:varchar(3)" bson:"currency"`
	CreatedAt       time.Time     `json:"createdAt" gorm:"index" bson:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt" bson:"updatedAt"`
}
