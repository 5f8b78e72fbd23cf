package models

import (
	"testing"
	"time"
)

func TestNewInventory(t *testing.T) {
	inv := NewInventory(42, 50, 15)

	if inv.ProductID != 42 || inv.Quantity != 50 || inv.ReorderLevel != 15 {
		t.Fatalf("unexpected fields: %+v", inv)
	}
	if inv.ReservedQuantity != 0 {
		t.Fatalf("expected nothing reserved, got %d", inv.ReservedQuantity)
	}
	if !inv.IsNew() {
		t.Fatal("expected unsaved record to report IsNew")
	}
}

func TestInventory_AvailableQuantity(t *testing.T) {
	inv := &Inventory{Quantity: 100, ReservedQuantity: 10}
	if got := inv.AvailableQuantity(); got != 90 {
		t.Fatalf("expected 90, got %d", got)
	}
}

func TestInventory_IsLowStock(t *testing.T) {
	tests := []struct {
		name     string
		inv      Inventory
		expected bool
	}{
		{"well above threshold", Inventory{Quantity: 100, ReservedQuantity: 10, ReorderLevel: 10}, false},
		{"exactly at threshold", Inventory{Quantity: 20, ReservedQuantity: 10, ReorderLevel: 10}, true},
		{"below threshold", Inventory{Quantity: 5, ReorderLevel: 10}, true},
		{"zero threshold and zero available", Inventory{Quantity: 3, ReservedQuantity: 3}, true},
		{"zero threshold with stock", Inventory{Quantity: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.IsLowStock(); got != tt.expected {
				t.Fatalf("IsLowStock() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestInventory_Clone(t *testing.T) {
	orig := &Inventory{ID: 1, ProductID: 2, Quantity: 3, LastUpdated: time.Now()}
	c := orig.Clone()
	c.Quantity = 99

	if orig.Quantity != 3 {
		t.Fatal("mutating the clone changed the original")
	}
}

func TestEventType_Valid(t *testing.T) {
	for _, typ := range []EventType{EventStockUpdated, EventStockReserved, EventStockReleased, EventLowStockAlert} {
		if !typ.Valid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if EventType("STOCK_DELETED").Valid() {
		t.Error("unknown type reported valid")
	}
}

func TestNewInventoryEvent_UTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)

	e := NewInventoryEvent(7, EventStockReserved, 4, at)

	if e.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", e.Timestamp.Location())
	}
	if !e.Timestamp.Equal(at) {
		t.Fatalf("timestamp moved: %v vs %v", e.Timestamp, at)
	}
	if e.ID != 0 {
		t.Fatal("expected unsaved event")
	}
}
