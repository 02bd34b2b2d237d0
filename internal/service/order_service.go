package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shrixtacy/RIVETO/internal/config"
	"github.com/shrixtacy/RIVETO/internal/domain"
	"github.com/shrixtacy/RIVETO/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyOrder           = errors.New("order must contain at least one item")
	ErrIncompleteAddress    = errors.New("incomplete delivery address")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidTransition    = errors.New("status transition not allowed")
)

// AmountMismatchError indicates that the client's advisory total differs
// from the server-computed total by more than the configured tolerance.
type AmountMismatchError struct {
	Expected float64 // server-computed total, the authoritative amount
	Received float64 // client-supplied advisory amount
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch: expected %.2f, received %.2f", e.Expected, e.Received)
}

// InsufficientStockError carries the availability details for a rejected
// reservation. Available is the count seen in the catalog snapshot; the
// rejection itself was decided atomically by the stock ledger.
type InsufficientStockError struct {
	ProductName string
	Size        domain.Size
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): available %d, requested %d",
		e.ProductName, e.Size, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return repository.ErrInsufficientStock
}

// PlaceOrderInput is a checkout request after transport-level decoding
type PlaceOrderInput struct {
	Items         []OrderItemInput
	Amount        *float64 // advisory only; nil when the client sent none
	Address       domain.Address
	PaymentMethod domain.PaymentMethod
}

// OrderService defines the interface for order business logic
type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*domain.Order, error)
	UserOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	AllOrders(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	stockRepo   repository.StockRepository
	cartRepo    repository.CartRepository
	policy      config.OrderConfig
	logger      *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	stockRepo repository.StockRepository,
	cartRepo repository.CartRepository,
	policy config.OrderConfig,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		stockRepo:   stockRepo,
		cartRepo:    cartRepo,
		policy:      policy,
		logger:      logger,
	}
}

// reservation records one committed stock decrement of an in-flight
// placement so it can be released if a later step fails.
type reservation struct {
	productID uuid.UUID
	size      domain.Size
	quantity  int
}

// PlaceOrder turns a cart submission into a durable, price-correct,
// stock-consistent order. The sequence runs as a saga:
//
//	validate -> price -> reserve stock -> persist order -> clear cart
//
// Validation and pricing have no side effects. Each stock reservation is
// an atomic conditional decrement; if any reservation or the order write
// fails, every reservation already made for this attempt is released
// before the error is returned. A cart-clear failure after the order is
// persisted does not revert the order.
func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*domain.Order, error) {
	// Validating: structural checks, no side effects yet
	if err := validatePlacement(userID, in); err != nil {
		return nil, err
	}

	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = domain.PaymentCOD
	}

	// Pricing: resolve the catalog snapshot and derive authoritative totals
	ids := make([]uuid.UUID, len(in.Items))
	for i, item := range in.Items {
		ids[i] = item.ProductID
	}

	catalog, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, repository.ErrCatalogIncomplete) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}

	pricing, err := computePricing(in.Items, catalog, s.policy.DeliveryFee, s.policy.MaxQuantity)
	if err != nil {
		return nil, err
	}

	// The client may advise a total for UX confirmation; the computed
	// total is what gets persisted either way.
	if in.Amount != nil && math.Abs(pricing.Total-*in.Amount) > s.policy.AmountTolerance {
		return nil, &AmountMismatchError{Expected: pricing.Total, Received: *in.Amount}
	}

	// Reserving: all items or none. The first failure releases every
	// reservation this attempt has already made.
	reserved := make([]reservation, 0, len(pricing.Items))
	for _, item := range pricing.Items {
		if err := s.stockRepo.Reserve(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
			s.releaseAll(ctx, reserved)
			if errors.Is(err, repository.ErrInsufficientStock) {
				return nil, &InsufficientStockError{
					ProductName: item.Name,
					Size:        item.Size,
					Requested:   item.Quantity,
					Available:   catalog[item.ProductID].Stock.Available(item.Size),
				}
			}
			return nil, fmt.Errorf("failed to reserve stock: %w", err)
		}
		reserved = append(reserved, reservation{
			productID: item.ProductID,
			size:      item.Size,
			quantity:  item.Quantity,
		})
	}

	// Persisting: write the order; unwind the reservations on failure
	now := time.Now()
	order := &domain.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Items:         pricing.Items,
		Subtotal:      pricing.Subtotal,
		DeliveryFee:   pricing.DeliveryFee,
		Amount:        pricing.Total,
		Address:       in.Address,
		Status:        domain.StatusPlaced,
		PaymentMethod: paymentMethod,
		Payment:       false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.releaseAll(ctx, reserved)
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	// The order is durable from here on. A cart-clear failure is logged
	// and retried out of band, never a ground for reverting the order.
	if err := s.cartRepo.Clear(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear cart after order placement",
			zap.String("order_id", order.ID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Float64("amount", order.Amount),
		zap.Int("items", len(order.Items)),
	)

	return order, nil
}

func validatePlacement(userID uuid.UUID, in PlaceOrderInput) error {
	if userID == uuid.Nil {
		return errors.New("missing user id")
	}

	if len(in.Items) == 0 {
		return ErrEmptyOrder
	}

	for _, item := range in.Items {
		if item.ProductID == uuid.Nil || item.Size == "" {
			return ErrEmptyOrder
		}
	}

	a := in.Address
	required := []string{
		a.Firstname, a.Lastname, a.Email, a.Street,
		a.City, a.State, a.Pincode, a.Country, a.Phone,
	}
	for _, field := range required {
		if field == "" {
			return ErrIncompleteAddress
		}
	}

	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}

	return nil
}

// releaseAll returns every reservation of a failed attempt to stock.
// Release failures are logged; stock recovery is reconciled out of band.
func (s *orderService) releaseAll(ctx context.Context, reserved []reservation) {
	for _, r := range reserved {
		if err := s.stockRepo.Release(ctx, r.productID, r.size, r.quantity); err != nil {
			s.logger.Error("Failed to release stock reservation",
				zap.String("product_id", r.productID.String()),
				zap.String("size", string(r.size)),
				zap.Int("quantity", r.quantity),
				zap.Error(err),
			)
		}
	}
}

// UserOrders returns a user's orders, newest first
func (s *orderService) UserOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}
	return orders, nil
}

// AllOrders returns all orders with pagination, newest first
func (s *orderService) AllOrders(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	orders, total, err := s.orderRepo.ListAll(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus moves an order to a new lifecycle status. Unknown status
// values and disallowed transitions are rejected. The write itself is a
// compare-and-set against the status read here, so two admins racing on
// the same order cannot commit a transition the table forbids.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return err
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	if !domain.CanTransition(order.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, status); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return fmt.Errorf("%w: order is no longer %s", ErrInvalidTransition, order.Status)
		}
		if errors.Is(err, repository.ErrOrderNotFound) {
			return err
		}
		return fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)),
	)

	return nil
}
