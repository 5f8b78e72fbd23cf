package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the inventory domain. Use errors.Is() to check these.
var (
	// ErrInventoryNotFound indicates no inventory record exists for the product.
	ErrInventoryNotFound = errors.New("inventory not found")

	// ErrInsufficientStock indicates a reservation larger than the available quantity.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrQuantityBelowReserved indicates a stock update that would leave less
	// on hand than is already reserved.
	ErrQuantityBelowReserved = errors.New("quantity below reserved quantity")

	// ErrInvalidQuantity indicates a negative quantity or reorder level.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrConcurrentUpdate indicates the record changed between read and write.
	// The write was not applied; the caller may retry.
	ErrConcurrentUpdate = errors.New("inventory was modified concurrently")
)

// InsufficientStockError reports the quantities behind a rejected reservation.
// It unwraps to ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product ID: %d. Available: %d, Requested: %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
