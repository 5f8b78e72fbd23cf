package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// Watermill topics, one per event type. The repository publishes every
// appended log entry to the topic for its type.
const (
	TopicStockUpdated  = "inventory.stock_updated"
	TopicStockReserved = "inventory.stock_reserved"
	TopicStockReleased = "inventory.stock_released"
	TopicLowStockAlert = "inventory.low_stock_alert"
)

// PayloadVersion is the schema version carried by InventoryEventMessage.
const PayloadVersion = 1

// Topics lists every inventory topic. Subscribers that warm caches listen on all of them.
var Topics = []string{TopicStockUpdated, TopicStockReserved, TopicStockReleased, TopicLowStockAlert}

// TopicFor returns the Watermill topic for an event type.
func TopicFor(t models.EventType) string {
	switch t {
	case models.EventStockUpdated:
		return TopicStockUpdated
	case models.EventStockReserved:
		return TopicStockReserved
	case models.EventStockReleased:
		return TopicStockReleased
	case models.EventLowStockAlert:
		return TopicLowStockAlert
	}
	return ""
}

// InventoryEventMessage is the bus payload for an appended log entry.
// Consumers register with EventBus.Handle(events.TopicLowStockAlert, h).
type InventoryEventMessage struct {
	EventID    uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version    int       `json:"version"`  // Schema version; increment on breaking changes
	LogID      int64     `json:"log_id"`   // ID of the row in the event log
	ProductID  int64     `json:"product_id"`
	EventType  string    `json:"event_type"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewInventoryEventMessage builds the bus payload for a persisted event.
func NewInventoryEventMessage(e *models.InventoryEvent) InventoryEventMessage {
	return InventoryEventMessage{
		EventID:    uuid.New(),
		Version:    PayloadVersion,
		LogID:      e.ID,
		ProductID:  e.ProductID,
		EventType:  e.Type.String(),
		Quantity:   e.Quantity,
		OccurredAt: e.Timestamp,
	}
}
