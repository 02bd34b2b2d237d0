package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shrixtacy/RIVETO/internal/domain"

	"github.com/google/uuid"
)

// seedProduct inserts a product row with its sizes and stock so the
// foreign keys of product_sizes and product_stock are satisfied.
func seedProduct(t *testing.T, name string, price float64, sizes []domain.Size, stock domain.StockMap) *domain.Product {
	t.Helper()

	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     price,
		Category:  "Men",
		Sizes:     sizes,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}

	repo := NewProductRepository(testDB)
	if err := repo.Create(context.Background(), product); err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	t.Cleanup(func() {
		_, _ = testDB.Exec("DELETE FROM products WHERE id = $1", product.ID)
	})

	return product
}

func TestStockReserve(t *testing.T) {
	repo := NewStockRepository(testDB)
	ctx := context.Background()

	product := seedProduct(t, "Reserve Tee", 100, []domain.Size{"M"}, domain.StockMap{"M": 5})

	if err := repo.Reserve(ctx, product.ID, "M", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	available, err := repo.Available(ctx, product.ID, "M")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available != 2 {
		t.Errorf("expected 2 available after reserving 3 of 5, got %d", available)
	}
}

func TestStockReserveInsufficient(t *testing.T) {
	repo := NewStockRepository(testDB)
	ctx := context.Background()

	product := seedProduct(t, "Scarce Tee", 100, []domain.Size{"M"}, domain.StockMap{"M": 2})

	err := repo.Reserve(ctx, product.ID, "M", 3)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// The failed attempt must not partially decrement
	available, err := repo.Available(ctx, product.ID, "M")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available != 2 {
		t.Errorf("expected stock unchanged at 2, got %d", available)
	}
}

func TestStockReserveAbsentRow(t *testing.T) {
	repo := NewStockRepository(testDB)
	ctx := context.Background()

	// Size L exists for the product but has never had a stock row
	product := seedProduct(t, "Partial Tee", 100, []domain.Size{"M", "L"}, domain.StockMap{"M": 5})

	available, err := repo.Available(ctx, product.ID, "L")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available != 0 {
		t.Errorf("expected absent stock row to read as 0, got %d", available)
	}

	err = repo.Reserve(ctx, product.ID, "L", 1)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for absent row, got %v", err)
	}
}

func TestStockRelease(t *testing.T) {
	repo := NewStockRepository(testDB)
	ctx := context.Background()

	product := seedProduct(t, "Release Tee", 100, []domain.Size{"M"}, domain.StockMap{"M": 5})

	if err := repo.Reserve(ctx, product.ID, "M", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Release(ctx, product.ID, "M", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	available, err := repo.Available(ctx, product.ID, "M")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available != 5 {
		t.Errorf("expected 5 available after release, got %d", available)
	}
}

func TestStockSetUpsert(t *testing.T) {
	repo := NewStockRepository(testDB)
	ctx := context.Background()

	product := seedProduct(t, "Restock Tee", 100, []domain.Size{"M", "L"}, domain.StockMap{"M": 1})

	// Update an existing row and create one for a size that had none
	if err := repo.Set(ctx, product.ID, "M", 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Set(ctx, product.ID, "L", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, tc := range []struct {
		size domain.Size
		want int
	}{{"M", 7}, {"L", 3}} {
		available, err := repo.Available(ctx, product.ID, tc.size)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if available != tc.want {
			t.Errorf("size %s: expected %d available, got %d", tc.size, tc.want, available)
		}
	}
}

func TestStockConcurrentReserveLastUnit(t *testing.T) {
	repo := NewStockRepository(testDB)
	ctx := context.Background()

	product := seedProduct(t, "Contended Tee", 100, []domain.Size{"M"}, domain.StockMap{"M": 1})

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Reserve(ctx, product.ID, "M", 1)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("expected exactly one reservation to win, got %d", succeeded)
	}

	available, err := repo.Available(ctx, product.ID, "M")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available != 0 {
		t.Errorf("expected final stock 0, got %d", available)
	}
}
