package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shrixtacy/RIVETO/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockRepository is the per-product, per-size stock ledger. Reservation
// is a single conditional UPDATE so the availability check and the
// decrement cannot be interleaved by a concurrent order.
type StockRepository interface {
	Available(ctx context.Context, productID uuid.UUID, size domain.Size) (int, error)
	Reserve(ctx context.Context, productID uuid.UUID, size domain.Size, quantity int) error
	Release(ctx context.Context, productID uuid.UUID, size domain.Size, quantity int) error
	Set(ctx context.Context, productID uuid.UUID, size domain.Size, quantity int) error
}

type stockRepository struct {
	db *sql.DB
}

// NewStockRepository creates a new instance of StockRepository
func NewStockRepository(db *sql.DB) StockRepository {
	return &stockRepository{db: db}
}

// Available returns the quantity on hand for a (product, size) pair.
// A missing row means no stock was ever recorded for that size and is
// reported as zero, never as an error.
func (r *stockRepository) Available(ctx context.Context, productID uuid.UUID, size domain.Size) (int, error) {
	query := `SELECT quantity FROM product_stock WHERE product_id = $1 AND size = $2`

	var quantity int
	err := r.db.QueryRowContext(ctx, query, productID, string(size)).Scan(&quantity)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}

	return quantity, nil
}

// Reserve decrements stock if and only if enough is still available at
// write time. The WHERE guard makes check and decrement one indivisible
// statement; zero affected rows means the stock ran out (or the size was
// never stocked) and no change was made.
func (r *stockRepository) Reserve(ctx context.Context, productID uuid.UUID, size domain.Size, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}

	query := `
		UPDATE product_stock
		SET quantity = quantity - $3, updated_at = NOW()
		WHERE product_id = $1 AND size = $2 AND quantity >= $3
	`

	result, err := r.db.ExecContext(ctx, query, productID, string(size), quantity)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

// Release returns a previously reserved quantity to stock. Used when a
// later step of the same order attempt fails and the reservation must
// be unwound.
func (r *stockRepository) Release(ctx context.Context, productID uuid.UUID, size domain.Size, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("release quantity must be positive, got %d", quantity)
	}

	query := `
		UPDATE product_stock
		SET quantity = quantity + $3, updated_at = NOW()
		WHERE product_id = $1 AND size = $2
	`

	result, err := r.db.ExecContext(ctx, query, productID, string(size), quantity)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// A release always follows a successful reserve, so the row must exist.
		return fmt.Errorf("no stock row for product %s size %s", productID, size)
	}

	return nil
}

// Set overwrites the stock level for a (product, size) pair. Admin use only.
func (r *stockRepository) Set(ctx context.Context, productID uuid.UUID, size domain.Size, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("stock quantity must not be negative, got %d", quantity)
	}

	query := `
		INSERT INTO product_stock (product_id, size, quantity, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (product_id, size)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, productID, string(size), quantity); err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}

	return nil
}
