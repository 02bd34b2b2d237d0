package domain

import (
	"time"

	"github.com/google/uuid"
)

// Size is a product size label such as "S", "M" or "XL".
type Size string

// StockMap holds the on-hand quantity per size. A size missing from the
// map has zero available stock; legacy products imported before per-size
// stock tracking simply have no entries.
type StockMap map[Size]int

// Available returns the quantity on hand for a size, treating an absent
// entry as zero.
func (m StockMap) Available(size Size) int {
	if m == nil {
		return 0
	}
	return m[size]
}

// Product represents a product in the catalog
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Category    string    `json:"category" db:"category"`
	SubCategory string    `json:"sub_category" db:"sub_category"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	Sizes       []Size    `json:"sizes"`
	Stock       StockMap  `json:"stock"`
	Bestseller  bool      `json:"bestseller" db:"bestseller"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// HasSize reports whether size is a valid size of this product.
func (p *Product) HasSize(size Size) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
