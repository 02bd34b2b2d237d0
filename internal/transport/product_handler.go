package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shrixtacy/RIVETO/internal/domain"
	"github.com/shrixtacy/RIVETO/internal/middleware"
	"github.com/shrixtacy/RIVETO/internal/repository"
	"github.com/shrixtacy/RIVETO/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductRequest represents the admin create/update payload
type ProductRequest struct {
	Name        string         `json:"name" validate:"required,min=1,max=255"`
	Description string         `json:"description"`
	Price       float64        `json:"price" validate:"gte=0"`
	Category    string         `json:"category" validate:"required,min=1,max=100"`
	SubCategory string         `json:"subCategory" validate:"max=100"`
	ImageURL    string         `json:"imageUrl" validate:"omitempty,url"`
	Sizes       []string       `json:"sizes" validate:"required,min=1,dive,min=1,max=10"`
	Stock       map[string]int `json:"stock" validate:"dive,gte=0"`
	Bestseller  bool           `json:"bestseller"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalogService service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Get("/{id}", h.Get)
	})

	r.Route("/api/admin/products", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(adminMiddleware)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles the public catalog listing
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	sortBy := r.URL.Query().Get("sortBy")
	sortOrder := repository.SortOrder(r.URL.Query().Get("sortOrder"))

	var category *string
	if c := r.URL.Query().Get("category"); c != "" {
		category = &c
	}

	products, total, err := h.catalogService.List(r.Context(), category, page, pageSize, sortBy, sortOrder)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"products": products,
		"total":    total,
	})
}

// Search handles free-text catalog search
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	query := r.URL.Query().Get("q")

	products, total, err := h.catalogService.Search(r.Context(), query, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to search products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to search products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"products": products,
		"total":    total,
	})
}

// Get handles a single product lookup
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.catalogService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to get product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create handles admin product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalogService.Create(r.Context(), toCatalogInput(req))
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles admin product update
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalogService.Update(r.Context(), id, toCatalogInput(req))
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles admin product removal
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.catalogService.Delete(r.Context(), id); err != nil {
		h.writeCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "product deleted",
	})
}

func toCatalogInput(req ProductRequest) service.CatalogInput {
	sizes := make([]domain.Size, len(req.Sizes))
	for i, s := range req.Sizes {
		sizes[i] = domain.Size(s)
	}

	stock := domain.StockMap{}
	for s, q := range req.Stock {
		stock[domain.Size(s)] = q
	}

	return service.CatalogInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		ImageURL:    req.ImageURL,
		Sizes:       sizes,
		Stock:       stock,
		Bestseller:  req.Bestseller,
	}
}

func (h *ProductHandler) writeCatalogError(w http.ResponseWriter, err error) {
	var sizeErr *service.StockForUnknownSizeError

	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, service.ErrNoSizes), errors.As(err, &sizeErr):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Catalog operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "catalog operation failed")
	}
}
