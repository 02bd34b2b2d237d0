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

// OrderItemRequest is one requested line of a checkout. The upper
// quantity bound is not checked here: it is an order policy setting
// enforced by the pricing engine.
type OrderItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Size      string `json:"size" validate:"required,min=1,max=10"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// AddressRequest is the delivery address of a checkout
type AddressRequest struct {
	Firstname string `json:"firstname" validate:"required,min=1,max=50"`
	Lastname  string `json:"lastname" validate:"required,min=1,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Street    string `json:"street" validate:"required,min=5,max=200"`
	City      string `json:"city" validate:"required,min=2,max=50"`
	State     string `json:"state" validate:"required,min=2,max=50"`
	Pincode   string `json:"pincode" validate:"required,len=6,numeric"`
	Country   string `json:"country" validate:"required,min=2,max=50"`
	Phone     string `json:"phone" validate:"required,min=10,max=15"`
}

// PlaceOrderRequest represents the checkout request payload. Amount is
// advisory only: the server computes the authoritative total.
type PlaceOrderRequest struct {
	Items         []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Amount        *float64           `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Address       AddressRequest     `json:"address" validate:"required"`
	PaymentMethod string             `json:"paymentMethod,omitempty" validate:"omitempty,oneof=COD Razorpay Stripe"`
}

// UpdateStatusRequest represents the admin status-change payload
type UpdateStatusRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
	Status  string `json:"status" validate:"required"`
}

// PlaceOrderResponse is returned on a successful placement
type PlaceOrderResponse struct {
	Success bool    `json:"success"`
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
}

// OrderErrorResponse is the failure envelope of the order API. The
// diagnostic fields are set only for the errors they describe.
type OrderErrorResponse struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Expected  *float64 `json:"expected,omitempty"`
	Received  *float64 `json:"received,omitempty"`
	Available *int     `json:"available,omitempty"`
	Requested *int     `json:"requested,omitempty"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware, rateLimitMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.With(rateLimitMiddleware).Post("/", h.Place)
			r.Get("/mine", h.UserOrders)
		})
	})

	r.Route("/api/admin/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(adminMiddleware)
		r.Get("/", h.AllOrders)
		r.Post("/status", h.UpdateStatus)
	})
}

// Place handles order placement
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(r)
	if !ok {
		middleware.RespondWithJSON(w, http.StatusUnauthorized, OrderErrorResponse{Message: "unauthorized"})
		return
	}

	var req PlaceOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Order validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithJSON(w, http.StatusBadRequest, OrderErrorResponse{Message: "invalid request body"})
		return
	}

	in, err := toPlacementInput(req)
	if err != nil {
		middleware.RespondWithJSON(w, http.StatusBadRequest, OrderErrorResponse{Message: err.Error()})
		return
	}

	order, err := h.orderService.PlaceOrder(r.Context(), userID, in)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, PlaceOrderResponse{
		Success: true,
		OrderID: order.ID.String(),
		Amount:  order.Amount,
	})
}

func toPlacementInput(req PlaceOrderRequest) (service.PlaceOrderInput, error) {
	in := service.PlaceOrderInput{
		Amount:        req.Amount,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Address: domain.Address{
			Firstname: req.Address.Firstname,
			Lastname:  req.Address.Lastname,
			Email:     req.Address.Email,
			Street:    req.Address.Street,
			City:      req.Address.City,
			State:     req.Address.State,
			Pincode:   req.Address.Pincode,
			Country:   req.Address.Country,
			Phone:     req.Address.Phone,
		},
	}

	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return in, errors.New("invalid product id")
		}
		in.Items = append(in.Items, service.OrderItemInput{
			ProductID: productID,
			Size:      domain.Size(item.Size),
			Quantity:  item.Quantity,
		})
	}

	return in, nil
}

// writeOrderError maps service errors to the order API failure envelope
func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error) {
	var (
		amountErr  *service.AmountMismatchError
		stockErr   *service.InsufficientStockError
		sizeErr    *service.InvalidSizeError
		qtyErr     *service.InvalidQuantityError
		unknownErr *service.UnknownProductError
	)

	switch {
	case errors.As(err, &amountErr):
		middleware.RespondWithJSON(w, http.StatusBadRequest, OrderErrorResponse{
			Message:  amountErr.Error(),
			Expected: &amountErr.Expected,
			Received: &amountErr.Received,
		})
	case errors.As(err, &stockErr):
		middleware.RespondWithJSON(w, http.StatusBadRequest, OrderErrorResponse{
			Message:   stockErr.Error(),
			Available: &stockErr.Available,
			Requested: &stockErr.Requested,
		})
	case errors.As(err, &sizeErr), errors.As(err, &qtyErr):
		middleware.RespondWithJSON(w, http.StatusBadRequest, OrderErrorResponse{Message: err.Error()})
	case errors.As(err, &unknownErr), errors.Is(err, repository.ErrCatalogIncomplete):
		middleware.RespondWithJSON(w, http.StatusNotFound, OrderErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrIncompleteAddress),
		errors.Is(err, service.ErrInvalidPaymentMethod):
		middleware.RespondWithJSON(w, http.StatusBadRequest, OrderErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrInvalidTransition):
		middleware.RespondWithJSON(w, http.StatusBadRequest, OrderErrorResponse{Message: err.Error()})
	case errors.Is(err, repository.ErrOrderNotFound):
		middleware.RespondWithJSON(w, http.StatusNotFound, OrderErrorResponse{Message: err.Error()})
	default:
		h.logger.Error("Order operation failed", zap.Error(err))
		middleware.RespondWithJSON(w, http.StatusInternalServerError, OrderErrorResponse{Message: "order placement failed"})
	}
}

// UserOrders handles listing the authenticated user's orders
func (h *OrderHandler) UserOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(r)
	if !ok {
		middleware.RespondWithJSON(w, http.StatusUnauthorized, OrderErrorResponse{Message: "unauthorized"})
		return
	}

	orders, err := h.orderService.UserOrders(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list user orders", zap.Error(err))
		middleware.RespondWithJSON(w, http.StatusInternalServerError, OrderErrorResponse{Message: "failed to list orders"})
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
	})
}

// AllOrders handles the paged admin order listing
func (h *OrderHandler) AllOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	orders, total, err := h.orderService.AllOrders(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithJSON(w, http.StatusInternalServerError, OrderErrorResponse{Message: "failed to list orders"})
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
		"total":   total,
	})
}

// UpdateStatus handles the admin status change
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithJSON(w, http.StatusBadRequest, OrderErrorResponse{Message: "invalid request body"})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		middleware.RespondWithJSON(w, http.StatusBadRequest, OrderErrorResponse{Message: "invalid order id"})
		return
	}

	if err := h.orderService.UpdateStatus(r.Context(), orderID, domain.OrderStatus(req.Status)); err != nil {
		h.writeOrderError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  req.Status,
	})
}

// authenticatedUserID extracts and parses the user id set by the auth middleware
func authenticatedUserID(r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}
