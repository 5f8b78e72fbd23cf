// Package services contains the stateless stock rules for the inventory
// bounded context. Each rule mutates a single record in memory and returns the
// events the change produces; persistence and locking belong to the caller.
// A rule that returns an error leaves the record untouched.
package services

import (
	"fmt"
	"time"

	"github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// ApplyStockUpdate replaces the on-hand quantity and, when reorderLevel is
// non-nil, the reorder level. ReservedQuantity is never touched, so a quantity
// below it is rejected with ErrQuantityBelowReserved.
//
// Events: STOCK_UPDATED(quantity), then LOW_STOCK_ALERT(quantity) when the
// new quantity is at or below the reorder level.
func ApplyStockUpdate(inv *models.Inventory, quantity int, reorderLevel *int, at time.Time) ([]*models.InventoryEvent, error) {
	if quantity < 0 || quantity > models.MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 0 and %d, got %d", domain.ErrInvalidQuantity, models.MaxQuantity, quantity)
	}
	if reorderLevel != nil && (*reorderLevel < 0 || *reorderLevel > models.MaxQuantity) {
		return nil, fmt.Errorf("%w: reorder level must be between 0 and %d, got %d", domain.ErrInvalidQuantity, models.MaxQuantity, *reorderLevel)
	}
	if quantity < inv.ReservedQuantity {
		return nil, fmt.Errorf("%w for product ID: %d. Reserved: %d, Requested quantity: %d",
			domain.ErrQuantityBelowReserved, inv.ProductID, inv.ReservedQuantity, quantity)
	}

	inv.Quantity = quantity
	if reorderLevel != nil {
		inv.ReorderLevel = *reorderLevel
	}

	events := []*models.InventoryEvent{
		models.NewInventoryEvent(inv.ProductID, models.EventStockUpdated, quantity, at),
	}
	// The threshold is compared against on-hand quantity here, not availability.
	if inv.Quantity <= inv.ReorderLevel {
		events = append(events, models.NewInventoryEvent(inv.ProductID, models.EventLowStockAlert, inv.Quantity, at))
	}
	return events, nil
}

// ApplyReservation holds quantity units against the available stock.
//
// Events: STOCK_RESERVED(quantity), then LOW_STOCK_ALERT(available) when the
// remaining availability is at or below the reorder level.
func ApplyReservation(inv *models.Inventory, quantity int, at time.Time) ([]*models.InventoryEvent, error) {
	if quantity < 0 || quantity > models.MaxQuantity {
		return nil, fmt.Errorf("%w: reservation quantity must be between 0 and %d, got %d", domain.ErrInvalidQuantity, models.MaxQuantity, quantity)
	}
	available := inv.AvailableQuantity()
	if available < quantity {
		return nil, &domain.InsufficientStockError{
			ProductID: inv.ProductID,
			Available: available,
			Requested: quantity,
		}
	}

	inv.ReservedQuantity += quantity

	events := []*models.InventoryEvent{
		models.NewInventoryEvent(inv.ProductID, models.EventStockReserved, quantity, at),
	}
	if inv.IsLowStock() {
		events = append(events, models.NewInventoryEvent(inv.ProductID, models.EventLowStockAlert, inv.AvailableQuantity(), at))
	}
	return events, nil
}

// ApplyRelease returns up to quantity reserved units to availability. Asking
// for more than is reserved releases everything reserved; it is not an error.
// Release does not evaluate the low-stock threshold.
//
// Events: STOCK_RELEASED(released).
func ApplyRelease(inv *models.Inventory, quantity int, at time.Time) (int, []*models.InventoryEvent, error) {
	if quantity < 0 {
		return 0, nil, fmt.Errorf("%w: release quantity must be non-negative, got %d", domain.ErrInvalidQuantity, quantity)
	}

	released := min(quantity, inv.ReservedQuantity)
	inv.ReservedQuantity -= released

	return released, []*models.InventoryEvent{
		models.NewInventoryEvent(inv.ProductID, models.EventStockReleased, released, at),
	}, nil
}
