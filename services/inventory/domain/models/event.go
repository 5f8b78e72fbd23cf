package models

import "time"

// EventType names a state-changing action recorded in the event log.
type EventType string

const (
	EventStockUpdated  EventType = "STOCK_UPDATED"
	EventStockReserved EventType = "STOCK_RESERVED"
	EventStockReleased EventType = "STOCK_RELEASED"
	EventLowStockAlert EventType = "LOW_STOCK_ALERT"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventStockUpdated, EventStockReserved, EventStockReleased, EventLowStockAlert:
		return true
	}
	return false
}

func (t EventType) String() string {
	return string(t)
}

// InventoryEvent is an immutable audit entry. Quantity is the delta or the
// resulting level relevant to Type: the new on-hand quantity for
// STOCK_UPDATED, the units moved for STOCK_RESERVED/STOCK_RELEASED, and the
// level that tripped the threshold for LOW_STOCK_ALERT.
type InventoryEvent struct {
	ID        int64 // assigned by the event log on append
	ProductID int64
	Type      EventType
	Quantity  int
	Timestamp time.Time
}

// NewInventoryEvent returns an unsaved event stamped with at.
func NewInventoryEvent(productID int64, typ EventType, quantity int, at time.Time) *InventoryEvent {
	return &InventoryEvent{
		ProductID: productID,
		Type:      typ,
		Quantity:  quantity,
		Timestamp: at.UTC(),
	}
}
