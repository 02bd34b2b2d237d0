package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is a single (product, size) entry of a user's cart
type CartLine struct {
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Size      Size      `json:"size" db:"size"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
