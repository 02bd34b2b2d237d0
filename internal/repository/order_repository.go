package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shrixtacy/RIVETO/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// OrderRepository defines the interface for order data access. Orders are
// insert-only; after creation only the status column may change.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAll(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create persists the order header and its items in one transaction
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	if len(order.Items) == 0 {
		return fmt.Errorf("order %s has no items", order.ID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			id, user_id, subtotal, delivery_fee, amount,
			address_firstname, address_lastname, address_email, address_street,
			address_city, address_state, address_pincode, address_country, address_phone,
			status, payment_method, payment, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		order.ID,
		order.UserID,
		order.Subtotal,
		order.DeliveryFee,
		order.Amount,
		order.Address.Firstname,
		order.Address.Lastname,
		order.Address.Email,
		order.Address.Street,
		order.Address.City,
		order.Address.State,
		order.Address.Pincode,
		order.Address.Country,
		order.Address.Phone,
		string(order.Status),
		string(order.PaymentMethod),
		order.Payment,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, line_no, product_id, name, size, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, item := range order.Items {
		_, err := tx.ExecContext(
			ctx,
			itemQuery,
			order.ID,
			i,
			item.ProductID,
			item.Name,
			string(item.Size),
			item.Quantity,
			item.UnitPrice,
			item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

const orderColumns = `
	id, user_id, subtotal, delivery_fee, amount,
	address_firstname, address_lastname, address_email, address_street,
	address_city, address_state, address_pincode, address_country, address_phone,
	status, payment_method, payment, created_at, updated_at
`

func scanOrder(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Subtotal,
		&order.DeliveryFee,
		&order.Amount,
		&order.Address.Firstname,
		&order.Address.Lastname,
		&order.Address.Email,
		&order.Address.Street,
		&order.Address.City,
		&order.Address.State,
		&order.Address.Pincode,
		&order.Address.Country,
		&order.Address.Phone,
		&order.Status,
		&order.PaymentMethod,
		&order.Payment,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID retrieves an order with its items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	if err := r.loadItems(ctx, map[uuid.UUID]*domain.Order{order.ID: order}); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByUser retrieves a user's orders, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}
	defer rows.Close()

	orders, byID, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, byID); err != nil {
		return nil, err
	}

	return orders, nil
}

// ListAll retrieves all orders with pagination, newest first
func (r *orderRepository) ListAll(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders, byID, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	if err := r.loadItems(ctx, byID); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateStatus moves an order from one status to another as a single
// conditional UPDATE. The from-status guard makes the write a
// compare-and-set: if another writer committed a different status
// between the caller's read and this write, no row matches and
// ErrStatusConflict is returned instead of overwriting the transition.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	query := `UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.ExecContext(ctx, query, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Orders are insert-only, so a missing match means either the id
		// is unknown or the status moved under us.
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrStatusConflict
	}

	return nil
}

func collectOrders(rows *sql.Rows) ([]*domain.Order, map[uuid.UUID]*domain.Order, error) {
	orders := []*domain.Order{}
	byID := make(map[uuid.UUID]*domain.Order)

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		byID[order.ID] = order
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, byID, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orders map[uuid.UUID]*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(orders))
	args := make([]interface{}, 0, len(orders))
	i := 1
	for id := range orders {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
		args = append(args, id)
		i++
	}

	query := fmt.Sprintf(`
		SELECT order_id, product_id, name, size, quantity, unit_price, subtotal
		FROM order_items
		WHERE order_id IN (%s)
		ORDER BY order_id, line_no
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		item := domain.OrderItem{}
		err := rows.Scan(
			&orderID,
			&item.ProductID,
			&item.Name,
			&item.Size,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if order, ok := orders[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}
