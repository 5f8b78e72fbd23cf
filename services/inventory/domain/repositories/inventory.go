package repositories

import (
	"context"

	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// InventoryRepository is the persistence interface for inventory records.
// The domain layer owns this interface; infrastructure implements it.
// Implementations return copies: mutating a returned record never changes
// stored state until it is passed back to Save.
type InventoryRepository interface {
	// GetByProductID returns ErrInventoryNotFound when no record exists.
	GetByProductID(ctx context.Context, productID int64) (*models.Inventory, error)

	// List returns every record ordered by product ID.
	List(ctx context.Context) ([]*models.Inventory, error)

	// ListLowStock returns records whose available quantity is at or below
	// their reorder level, ordered by product ID.
	ListLowStock(ctx context.Context) ([]*models.Inventory, error)

	// Save inserts a new record (ID == 0) or updates an existing one. Updates
	// are conditional on inv.Version matching the stored version and return
	// ErrConcurrentUpdate otherwise. On success inv carries the stored ID,
	// Version and LastUpdated.
	Save(ctx context.Context, inv *models.Inventory) error
}

// EventRepository is the append-only inventory event log.
type EventRepository interface {
	// Append stores the events in order and assigns their IDs.
	Append(ctx context.Context, events ...*models.InventoryEvent) error

	// ListByProductID returns a product's events oldest first.
	ListByProductID(ctx context.Context, productID int64) ([]*models.InventoryEvent, error)
}
