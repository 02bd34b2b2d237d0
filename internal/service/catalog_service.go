package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shrixtacy/RIVETO/internal/domain"
	"github.com/shrixtacy/RIVETO/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrNoSizes = errors.New("product must have at least one size")
)

// StockForUnknownSizeError indicates a stock entry keyed by a size that
// is not in the product's size set.
type StockForUnknownSizeError struct {
	Size domain.Size
}

func (e *StockForUnknownSizeError) Error() string {
	return fmt.Sprintf("stock entry for size %s which is not a valid size", e.Size)
}

// CatalogInput holds the admin-supplied attributes of a product
type CatalogInput struct {
	Name        string
	Description string
	Price       float64
	Category    string
	SubCategory string
	ImageURL    string
	Sizes       []domain.Size
	Stock       domain.StockMap
	Bestseller  bool
}

// CatalogService defines the interface for catalog management
type CatalogService interface {
	Create(ctx context.Context, in CatalogInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, in CatalogInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, category *string, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository) CatalogService {
	return &catalogService{productRepo: productRepo}
}

// validateSizes enforces that every stock entry refers to a declared size
func validateSizes(sizes []domain.Size, stock domain.StockMap) error {
	if len(sizes) == 0 {
		return ErrNoSizes
	}

	valid := make(map[domain.Size]bool, len(sizes))
	for _, s := range sizes {
		valid[s] = true
	}
	for s := range stock {
		if !valid[s] {
			return &StockForUnknownSizeError{Size: s}
		}
	}

	return nil
}

// Create adds a product to the catalog
func (s *catalogService) Create(ctx context.Context, in CatalogInput) (*domain.Product, error) {
	if err := validateSizes(in.Sizes, in.Stock); err != nil {
		return nil, err
	}

	if in.Price < 0 {
		return nil, errors.New("price must not be negative")
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		SubCategory: in.SubCategory,
		ImageURL:    in.ImageURL,
		Sizes:       in.Sizes,
		Stock:       in.Stock,
		Bestseller:  in.Bestseller,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if product.Stock == nil {
		product.Stock = domain.StockMap{}
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// Update replaces a product's attributes, size set and stock levels
func (s *catalogService) Update(ctx context.Context, id uuid.UUID, in CatalogInput) (*domain.Product, error) {
	if err := validateSizes(in.Sizes, in.Stock); err != nil {
		return nil, err
	}

	if in.Price < 0 {
		return nil, errors.New("price must not be negative")
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		SubCategory: in.SubCategory,
		ImageURL:    in.ImageURL,
		Sizes:       in.Sizes,
		Stock:       in.Stock,
		Bestseller:  in.Bestseller,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   time.Now(),
	}
	if product.Stock == nil {
		product.Stock = domain.StockMap{}
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// Delete removes a product from the catalog
func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

// Get retrieves a single product
func (s *catalogService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// List retrieves products with filtering, pagination and sorting
func (s *catalogService) List(ctx context.Context, category *string, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.productRepo.List(ctx, category, page, pageSize, sortBy, sortOrder)
}

// Search retrieves products matching a free-text query
func (s *catalogService) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.productRepo.Search(ctx, query, page, pageSize)
}
