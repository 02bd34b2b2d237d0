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
	ErrProductNotFound = errors.New("product not found")

	// ErrCatalogIncomplete is returned when a batch lookup cannot resolve
	// every requested product id. Pricing against a partial catalog is
	// meaningless, so callers must abort.
	ErrCatalogIncomplete = errors.New("one or more products not found")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// FindByIDs resolves a set of product ids to current catalog snapshots.
	// Duplicate ids are collapsed before the lookup. Returns
	// ErrCatalogIncomplete if any id does not exist.
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
	List(ctx context.Context, category *string, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a product together with its size set and initial stock rows
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (id, name, description, price, category, sub_category, image_url, bestseller, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.SubCategory,
		product.ImageURL,
		product.Bestseller,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	if err := insertSizesAndStock(ctx, tx, product); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product creation: %w", err)
	}

	return nil
}

// Update rewrites a product's attributes, size set and stock rows
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5,
		    sub_category = $6, image_url = $7, bestseller = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.SubCategory,
		product.ImageURL,
		product.Bestseller,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_sizes WHERE product_id = $1`, product.ID); err != nil {
		return fmt.Errorf("failed to clear product sizes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_stock WHERE product_id = $1`, product.ID); err != nil {
		return fmt.Errorf("failed to clear product stock: %w", err)
	}
	if err := insertSizesAndStock(ctx, tx, product); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product update: %w", err)
	}

	return nil
}

func insertSizesAndStock(ctx context.Context, tx *sql.Tx, product *domain.Product) error {
	for i, size := range product.Sizes {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO product_sizes (product_id, size, position) VALUES ($1, $2, $3)`,
			product.ID, string(size), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert product size: %w", err)
		}
	}

	for size, quantity := range product.Stock {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO product_stock (product_id, size, quantity) VALUES ($1, $2, $3)`,
			product.ID, string(size), quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert product stock: %w", err)
		}
	}

	return nil
}

// Delete removes a product along with its size and stock rows
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID including its sizes and stock
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	products, err := r.FindByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		if errors.Is(err, ErrCatalogIncomplete) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return products[id], nil
}

// FindByIDs retrieves a snapshot of every requested product
func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	// Deduplicate: a cart may reference the same product in two sizes
	seen := make(map[uuid.UUID]bool, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	if len(unique) == 0 {
		return map[uuid.UUID]*domain.Product{}, nil
	}

	placeholders := make([]string, len(unique))
	args := make([]interface{}, len(unique))
	for i, id := range unique {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	inClause := strings.Join(placeholders, ", ")

	query := fmt.Sprintf(`
		SELECT id, name, description, price, category, sub_category, image_url, bestseller, created_at, updated_at
		FROM products
		WHERE id IN (%s)
	`, inClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by ids: %w", err)
	}
	defer rows.Close()

	products := make(map[uuid.UUID]*domain.Product, len(unique))
	for rows.Next() {
		product := &domain.Product{Stock: domain.StockMap{}}
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.Category,
			&product.SubCategory,
			&product.ImageURL,
			&product.Bestseller,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[product.ID] = product
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	if len(products) != len(unique) {
		return nil, ErrCatalogIncomplete
	}

	if err := r.loadSizesAndStock(ctx, inClause, args, products); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepository) loadSizesAndStock(ctx context.Context, inClause string, args []interface{}, products map[uuid.UUID]*domain.Product) error {
	sizeQuery := fmt.Sprintf(`
		SELECT product_id, size
		FROM product_sizes
		WHERE product_id IN (%s)
		ORDER BY product_id, position
	`, inClause)

	rows, err := r.db.QueryContext(ctx, sizeQuery, args...)
	if err != nil {
		return fmt.Errorf("failed to load product sizes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID uuid.UUID
		var size string
		if err := rows.Scan(&productID, &size); err != nil {
			return fmt.Errorf("failed to scan product size: %w", err)
		}
		if product, ok := products[productID]; ok {
			product.Sizes = append(product.Sizes, domain.Size(size))
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating product sizes: %w", err)
	}

	stockQuery := fmt.Sprintf(`
		SELECT product_id, size, quantity
		FROM product_stock
		WHERE product_id IN (%s)
	`, inClause)

	stockRows, err := r.db.QueryContext(ctx, stockQuery, args...)
	if err != nil {
		return fmt.Errorf("failed to load product stock: %w", err)
	}
	defer stockRows.Close()

	for stockRows.Next() {
		var productID uuid.UUID
		var size string
		var quantity int
		if err := stockRows.Scan(&productID, &size, &quantity); err != nil {
			return fmt.Errorf("failed to scan product stock: %w", err)
		}
		if product, ok := products[productID]; ok {
			product.Stock[domain.Size(size)] = quantity
		}
	}
	if err = stockRows.Err(); err != nil {
		return fmt.Errorf("error iterating product stock: %w", err)
	}

	return nil
}

// List retrieves products with optional category filtering, pagination, and sorting
func (r *productRepository) List(ctx context.Context, category *string, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at" // Default sort field
	}

	// Validate sort order
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc // Default sort order
	}

	// Build the WHERE clause
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	if category != nil {
		whereClause = fmt.Sprintf("WHERE category = $%d", argIndex)
		args = append(args, *category)
		argIndex++
	}

	// Count total products
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	// Calculate offset
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT id, name, description, price, category, sub_category, image_url, bestseller, created_at, updated_at
		FROM products
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	return r.queryProducts(ctx, query, args, total)
}

// Search searches for products by name or description with pagination
func (r *productRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	// If query is empty, return all products
	if strings.TrimSpace(query) == "" {
		return r.List(ctx, nil, page, pageSize, "created_at", SortOrderDesc)
	}

	// Use ILIKE for case-insensitive search
	searchPattern := "%" + query + "%"

	countQuery := `
		SELECT COUNT(*)
		FROM products
		WHERE name ILIKE $1 OR description ILIKE $1
	`
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, searchPattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	offset := (page - 1) * pageSize

	searchQuery := `
		SELECT id, name, description, price, category, sub_category, image_url, bestseller, created_at, updated_at
		FROM products
		WHERE name ILIKE $1 OR description ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryProducts(ctx, searchQuery, []interface{}{searchPattern, pageSize, offset}, total)
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args []interface{}, total int) ([]*domain.Product, int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	byID := make(map[uuid.UUID]*domain.Product)
	for rows.Next() {
		product := &domain.Product{Stock: domain.StockMap{}}
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.Category,
			&product.SubCategory,
			&product.ImageURL,
			&product.Bestseller,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
		byID[product.ID] = product
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	if len(products) > 0 {
		placeholders := make([]string, len(products))
		idArgs := make([]interface{}, len(products))
		for i, p := range products {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			idArgs[i] = p.ID
		}
		if err := r.loadSizesAndStock(ctx, strings.Join(placeholders, ", "), idArgs, byID); err != nil {
			return nil, 0, err
		}
	}

	return products, total, nil
}
