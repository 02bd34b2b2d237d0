package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shrixtacy/RIVETO/internal/domain"
	"github.com/shrixtacy/RIVETO/internal/repository"

	"github.com/google/uuid"
)

func validCatalogInput() CatalogInput {
	return CatalogInput{
		Name:     "Catalog Tee",
		Price:    100,
		Category: "Men",
		Sizes:    []domain.Size{"S", "M", "L"},
		Stock:    domain.StockMap{"S": 2, "M": 5},
	}
}

func TestCatalogCreate(t *testing.T) {
	repo := newMockProductRepository()
	svc := NewCatalogService(repo)

	product, err := svc.Create(context.Background(), validCatalogInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if product.ID == uuid.Nil {
		t.Error("expected an id to be assigned")
	}
	if len(repo.products) != 1 {
		t.Errorf("expected product to be persisted")
	}
	if product.Stock.Available("S") != 2 || product.Stock.Available("L") != 0 {
		t.Errorf("unexpected stock: %+v", product.Stock)
	}
}

func TestCatalogCreateWithoutStock(t *testing.T) {
	repo := newMockProductRepository()
	svc := NewCatalogService(repo)

	in := validCatalogInput()
	in.Stock = nil

	product, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Stock is optional at creation; every size starts unavailable
	if product.Stock == nil {
		t.Fatal("expected a non-nil stock map")
	}
	if product.Stock.Available("M") != 0 {
		t.Errorf("expected all sizes to start at 0, got %d", product.Stock.Available("M"))
	}
}

func TestCatalogCreateRejectsNoSizes(t *testing.T) {
	svc := NewCatalogService(newMockProductRepository())

	in := validCatalogInput()
	in.Sizes = nil
	in.Stock = nil

	_, err := svc.Create(context.Background(), in)
	if !errors.Is(err, ErrNoSizes) {
		t.Fatalf("expected ErrNoSizes, got %v", err)
	}
}

func TestCatalogCreateRejectsStockForUnknownSize(t *testing.T) {
	svc := NewCatalogService(newMockProductRepository())

	in := validCatalogInput()
	in.Stock = domain.StockMap{"XXL": 3}

	_, err := svc.Create(context.Background(), in)

	var sizeErr *StockForUnknownSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected StockForUnknownSizeError, got %v", err)
	}
	if sizeErr.Size != "XXL" {
		t.Errorf("expected offending size XXL, got %s", sizeErr.Size)
	}
}

func TestCatalogCreateRejectsNegativePrice(t *testing.T) {
	svc := NewCatalogService(newMockProductRepository())

	in := validCatalogInput()
	in.Price = -1

	if _, err := svc.Create(context.Background(), in); err == nil {
		t.Fatal("expected an error for negative price")
	}
}

func TestCatalogUpdate(t *testing.T) {
	repo := newMockProductRepository()
	svc := NewCatalogService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCatalogInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := validCatalogInput()
	in.Name = "Renamed Tee"
	in.Sizes = []domain.Size{"M"}
	in.Stock = domain.StockMap{"M": 1}

	updated, err := svc.Update(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Renamed Tee" {
		t.Errorf("expected renamed product, got %s", updated.Name)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("expected creation time to be preserved")
	}
}

func TestCatalogUpdateNotFound(t *testing.T) {
	svc := NewCatalogService(newMockProductRepository())

	_, err := svc.Update(context.Background(), uuid.New(), validCatalogInput())
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCatalogDeleteNotFound(t *testing.T) {
	svc := NewCatalogService(newMockProductRepository())

	err := svc.Delete(context.Background(), uuid.New())
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
