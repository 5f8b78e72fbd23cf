// Package memory holds process-local implementations of the inventory
// repositories. They back STORE_BACKEND=memory and the service tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// InventoryRepository implements repositories.InventoryRepository in memory.
type InventoryRepository struct {
	mu     sync.RWMutex
	byProd map[int64]*models.Inventory
	nextID int64
	now    func() time.Time
}

// NewInventoryRepository returns an empty InventoryRepository.
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		byProd: make(map[int64]*models.Inventory),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetByProductID returns a copy of the stored record.
func (r *InventoryRepository) GetByProductID(_ context.Context, productID int64) (*models.Inventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.byProd[productID]
	if !ok {
		return nil, invdomain.ErrInventoryNotFound
	}
	return inv.Clone(), nil
}

// List returns copies of every record ordered by product ID.
func (r *InventoryRepository) List(_ context.Context) ([]*models.Inventory, error) {
	return r.collect(func(*models.Inventory) bool { return true }), nil
}

// ListLowStock returns copies of the low-stock records ordered by product ID.
func (r *InventoryRepository) ListLowStock(_ context.Context) ([]*models.Inventory, error) {
	return r.collect((*models.Inventory).IsLowStock), nil
}

// Save inserts or version-checks and replaces the record for inv.ProductID.
func (r *InventoryRepository) Save(_ context.Context, inv *models.Inventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.byProd[inv.ProductID]
	switch {
	case inv.IsNew() && exists:
		// Another writer created the product first.
		return invdomain.ErrConcurrentUpdate
	case !inv.IsNew() && (!exists || current.Version != inv.Version):
		return invdomain.ErrConcurrentUpdate
	}

	if inv.IsNew() {
		r.nextID++
		inv.ID = r.nextID
	}
	inv.Version++
	inv.LastUpdated = r.now()
	r.byProd[inv.ProductID] = inv.Clone()
	return nil
}

func (r *InventoryRepository) collect(keep func(*models.Inventory) bool) []*models.Inventory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Inventory, 0, len(r.byProd))
	for _, inv := range r.byProd {
		if keep(inv) {
			out = append(out, inv.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Inventory) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return out
}
