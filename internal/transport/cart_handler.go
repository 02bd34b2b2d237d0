package transport

import (
	"net/http"

	"github.com/shrixtacy/RIVETO/internal/domain"
	"github.com/shrixtacy/RIVETO/internal/middleware"
	"github.com/shrixtacy/RIVETO/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartLineRequest sets the quantity of one (product, size) cart entry.
// Quantity zero removes the entry.
type CartLineRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Size      string `json:"size" validate:"required,min=1,max=10"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=100"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	cartRepo repository.CartRepository
	logger   *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartRepo repository.CartRepository, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartRepo: cartRepo,
		logger:   logger,
	}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Get)
		r.Post("/update", h.SetLine)
	})
}

// Get returns the authenticated user's cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	lines, err := h.cartRepo.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"cart":    lines,
	})
}

// SetLine sets or removes one cart line
func (h *CartHandler) SetLine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CartLineRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.cartRepo.SetLine(r.Context(), userID, productID, domain.Size(req.Size), req.Quantity); err != nil {
		h.logger.Error("Failed to set cart line", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
