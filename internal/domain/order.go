package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	StatusPlaced     OrderStatus = "Placed"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// Valid reports whether s is one of the five known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// validNext defines the allowed forward transitions. An order moves
// Placed -> Processing -> Shipped -> Delivered and may be cancelled at
// any point before it ships. Delivered and Cancelled are terminal.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPlaced:     {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// PaymentMethod is the payment option selected at checkout
type PaymentMethod string

const (
	PaymentCOD      PaymentMethod = "COD"
	PaymentRazorpay PaymentMethod = "Razorpay"
	PaymentStripe   PaymentMethod = "Stripe"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentRazorpay, PaymentStripe:
		return true
	}
	return false
}

// OrderItem is a priced line of an order. Unit price and subtotal are
// copied from the product at order time and never re-read afterwards.
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Size      Size      `json:"size" db:"size"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice float64   `json:"unit_price" db:"unit_price"`
	Subtotal  float64   `json:"subtotal" db:"subtotal"`
}

// Address is the delivery address snapshot taken at order time
type Address struct {
	Firstname string `json:"firstname" db:"address_firstname"`
	Lastname  string `json:"lastname" db:"address_lastname"`
	Email     string `json:"email" db:"address_email"`
	Street    string `json:"street" db:"address_street"`
	City      string `json:"city" db:"address_city"`
	State     string `json:"state" db:"address_state"`
	Pincode   string `json:"pincode" db:"address_pincode"`
	Country   string `json:"country" db:"address_country"`
	Phone     string `json:"phone" db:"address_phone"`
}

// Order represents a placed order. Amounts are server-derived; only the
// status field changes after creation.
type Order struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	Items         []OrderItem   `json:"items"`
	Subtotal      float64       `json:"subtotal" db:"subtotal"`
	DeliveryFee   float64       `json:"delivery_fee" db:"delivery_fee"`
	Amount        float64       `json:"amount" db:"amount"`
	Address       Address       `json:"address"`
	Status        OrderStatus   `json:"status" db:"status"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	Payment       bool          `json:"payment" db:"payment"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}
