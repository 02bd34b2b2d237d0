package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shrixtacy/RIVETO/internal/domain"

	"github.com/google/uuid"
)

// CartRepository defines the interface for cart data access. The cart is
// owned by the user; the order flow only ever clears it after a
// successfully persisted order.
type CartRepository interface {
	Get(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error)
	SetLine(ctx context.Context, userID, productID uuid.UUID, size domain.Size, quantity int) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// Get retrieves all cart lines for a user
func (r *cartRepository) Get(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	query := `
		SELECT product_id, size, quantity, updated_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY updated_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		line := domain.CartLine{}
		if err := rows.Scan(&line.ProductID, &line.Size, &line.Quantity, &line.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

// SetLine upserts the quantity for a (product, size) entry. A zero
// quantity removes the line.
func (r *cartRepository) SetLine(ctx context.Context, userID, productID uuid.UUID, size domain.Size, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("cart quantity must not be negative, got %d", quantity)
	}

	if quantity == 0 {
		query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2 AND size = $3`
		if _, err := r.db.ExecContext(ctx, query, userID, productID, string(size)); err != nil {
			return fmt.Errorf("failed to remove cart line: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO cart_items (user_id, product_id, size, quantity, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, product_id, size)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, productID, string(size), quantity); err != nil {
		return fmt.Errorf("failed to set cart line: %w", err)
	}

	return nil
}

// Clear removes every cart line for a user
func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
