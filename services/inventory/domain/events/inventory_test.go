package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ghuser/stockledger/services/inventory/domain/events"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

func TestTopicFor(t *testing.T) {
	tests := []struct {
		typ  models.EventType
		want string
	}{
		{models.EventStockUpdated, "inventory.stock_updated"},
		{models.EventStockReserved, "inventory.stock_reserved"},
		{models.EventStockReleased, "inventory.stock_released"},
		{models.EventLowStockAlert, "inventory.low_stock_alert"},
		{models.EventType("BOGUS"), ""},
	}
	for _, tt := range tests {
		if got := events.TopicFor(tt.typ); got != tt.want {
			t.Errorf("TopicFor(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
	if len(events.Topics) != 4 {
		t.Errorf("expected 4 topics, got %d", len(events.Topics))
	}
}

func TestNewInventoryEventMessage(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	e := models.NewInventoryEvent(7, models.EventLowStockAlert, 9, at)
	e.ID = 42

	msg := events.NewInventoryEventMessage(e)
	if msg.LogID != 42 || msg.ProductID != 7 || msg.Quantity != 9 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.EventType != "LOW_STOCK_ALERT" {
		t.Errorf("EventType = %q", msg.EventType)
	}
	if msg.Version != events.PayloadVersion {
		t.Errorf("Version = %d", msg.Version)
	}
	if !msg.OccurredAt.Equal(at) {
		t.Errorf("OccurredAt = %v, want %v", msg.OccurredAt, at)
	}

	other := events.NewInventoryEventMessage(e)
	if other.EventID == msg.EventID {
		t.Error("expected a fresh EventID per message")
	}
}

func TestInventoryEventMessage_JSONFieldNames(t *testing.T) {
	msg := events.NewInventoryEventMessage(models.NewInventoryEvent(1, models.EventStockReserved, 3, time.Now()))

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal to map failed: %v", err)
	}

	for _, field := range []string{"event_id", "version", "log_id", "product_id", "event_type", "quantity", "occurred_at"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("expected JSON field %q not found in: %s", field, data)
		}
	}
}
