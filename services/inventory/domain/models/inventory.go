package models

import (
	"math"
	"time"
)

// MaxQuantity bounds every stored count. The stock table keeps quantities in
// INTEGER columns.
const MaxQuantity = math.MaxInt32

// DefaultReorderLevel is the reorder level given to new records when neither
// the request nor configuration supplies one.
const DefaultReorderLevel = 10

// Inventory is the stock record for a single product. Exactly one exists per
// ProductID. Invariant: 0 <= ReservedQuantity <= Quantity.
type Inventory struct {
	ID               int64 // assigned by the store on first insert
	ProductID        int64
	Quantity         int // units on hand
	ReservedQuantity int // units held for pending fulfillment
	ReorderLevel     int // low stock when AvailableQuantity() <= ReorderLevel
	Version          int // incremented by the store on every write
	LastUpdated      time.Time
}

// NewInventory returns an unsaved record with nothing reserved.
func NewInventory(productID int64, quantity, reorderLevel int) *Inventory {
	return &Inventory{
		ProductID:    productID,
		Quantity:     quantity,
		ReorderLevel: reorderLevel,
	}
}

// AvailableQuantity is the sellable remainder.
func (i *Inventory) AvailableQuantity() int {
	return i.Quantity - i.ReservedQuantity
}

// IsLowStock reports whether the available quantity is at or below the reorder level.
func (i *Inventory) IsLowStock() bool {
	return i.AvailableQuantity() <= i.ReorderLevel
}

// IsNew reports whether the record has not been persisted yet.
func (i *Inventory) IsNew() bool {
	return i.ID == 0
}

// Clone returns a copy that shares no state with i.
func (i *Inventory) Clone() *Inventory {
	c := *i
	return &c
}
