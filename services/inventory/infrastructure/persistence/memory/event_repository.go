package memory

import (
	"context"
	"sync"

	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// EventRepository implements repositories.EventRepository in memory.
type EventRepository struct {
	mu     sync.RWMutex
	events []models.InventoryEvent
}

// NewEventRepository returns an empty event log.
func NewEventRepository() *EventRepository {
	return &EventRepository{}
}

// Append stores copies of events and assigns sequential IDs.
func (r *EventRepository) Append(_ context.Context, events ...*models.InventoryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range events {
		e.ID = int64(len(r.events) + 1)
		r.events = append(r.events, *e)
	}
	return nil
}

// ListByProductID returns copies of a product's events in append order.
func (r *EventRepository) ListByProductID(_ context.Context, productID int64) ([]*models.InventoryEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.InventoryEvent, 0)
	for i := range r.events {
		if r.events[i].ProductID == productID {
			e := r.events[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

// All returns copies of every event in append order.
func (r *EventRepository) All() []*models.InventoryEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.InventoryEvent, len(r.events))
	for i := range r.events {
		e := r.events[i]
		out[i] = &e
	}
	return out
}
