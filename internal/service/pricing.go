package service

import (
	"fmt"

	"github.com/shrixtacy/RIVETO/internal/domain"

	"github.com/google/uuid"
)

// OrderItemInput is one requested (product, size, quantity) line of a
// checkout. Any client-supplied price is ignored; pricing always comes
// from the current catalog record.
type OrderItemInput struct {
	ProductID uuid.UUID
	Size      domain.Size
	Quantity  int
}

// pricingResult is the authoritative pricing of an order request
type pricingResult struct {
	Items       []domain.OrderItem
	Subtotal    float64
	DeliveryFee float64
	Total       float64
}

// InvalidSizeError indicates a requested size that is not a valid size
// of the product.
type InvalidSizeError struct {
	ProductName string
	Size        domain.Size
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("invalid size %s for product %s", e.Size, e.ProductName)
}

// InvalidQuantityError indicates a quantity outside the accepted range
type InvalidQuantityError struct {
	Quantity int
	Max      int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be between 1 and %d, got %d", e.Max, e.Quantity)
}

// UnknownProductError indicates an item referencing a product id that is
// not in the resolved catalog.
type UnknownProductError struct {
	ProductID uuid.UUID
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// computePricing derives line items and totals from the catalog snapshot
// alone. It is a pure function: it reads nothing but its arguments and
// has no side effects.
func computePricing(items []OrderItemInput, catalog map[uuid.UUID]*domain.Product, deliveryFee float64, maxQuantity int) (*pricingResult, error) {
	result := &pricingResult{
		Items:       make([]domain.OrderItem, 0, len(items)),
		DeliveryFee: deliveryFee,
	}

	for _, item := range items {
		product, ok := catalog[item.ProductID]
		if !ok {
			return nil, &UnknownProductError{ProductID: item.ProductID}
		}

		if !product.HasSize(item.Size) {
			return nil, &InvalidSizeError{ProductName: product.Name, Size: item.Size}
		}

		if item.Quantity < 1 || item.Quantity > maxQuantity {
			return nil, &InvalidQuantityError{Quantity: item.Quantity, Max: maxQuantity}
		}

		subtotal := product.Price * float64(item.Quantity)
		result.Subtotal += subtotal

		result.Items = append(result.Items, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			Subtotal:  subtotal,
		})
	}

	// The delivery fee is flat: added once per order regardless of item count
	result.Total = result.Subtotal + result.DeliveryFee

	return result, nil
}
