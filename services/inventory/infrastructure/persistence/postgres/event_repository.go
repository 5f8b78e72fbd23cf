package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/stockledger/pkg/database"
	"github.com/ghuser/stockledger/pkg/events"
	domainevents "github.com/ghuser/stockledger/services/inventory/domain/events"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/infrastructure/persistence/postgres/db"
)

// EventRepository implements repositories.EventRepository against PostgreSQL.
// Every appended row is also published to the event bus in the same
// transaction (outbox), so subscribers see exactly what the log holds.
type EventRepository struct {
	db  *database.Database
	bus *events.EventBus
}

// NewEventRepository returns an EventRepository. bus may be nil, in which case
// events are only written to the log table.
func NewEventRepository(database *database.Database, bus *events.EventBus) *EventRepository {
	return &EventRepository{db: database, bus: bus}
}

// Append inserts all events in one transaction and assigns their IDs.
func (r *EventRepository) Append(ctx context.Context, evts ...*models.InventoryEvent) error {
	if len(evts) == 0 {
		return nil
	}

	ids := make([]int64, len(evts))
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		q := db.New(tx)
		for i, e := range evts {
			id, err := q.InsertEvent(ctx, db.InsertEventParams{
				ProductID:  e.ProductID,
				EventType:  e.Type.String(),
				Quantity:   int32(e.Quantity),
				OccurredAt: e.Timestamp,
			})
			if err != nil {
				return fmt.Errorf("insert event: %w", err)
			}
			ids[i] = id
		}

		if r.bus != nil {
			if err := r.publish(ctx, tx, evts, ids); err != nil {
				return fmt.Errorf("publish inventory events: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// IDs are only visible to callers once the transaction has committed.
	for i, e := range evts {
		e.ID = ids[i]
	}
	return nil
}

// ListByProductID returns the product's events oldest first.
func (r *EventRepository) ListByProductID(ctx context.Context, productID int64) ([]*models.InventoryEvent, error) {
	rows, err := db.New(r.db.DB()).ListEventsByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]*models.InventoryEvent, len(rows))
	for i, row := range rows {
		out[i] = &models.InventoryEvent{
			ID:        row.ID,
			ProductID: row.ProductID,
			Type:      models.EventType(row.EventType),
			Quantity:  int(row.Quantity),
			Timestamp: row.OccurredAt.UTC(),
		}
	}
	return out, nil
}

func (r *EventRepository) publish(ctx context.Context, tx *sql.Tx, evts []*models.InventoryEvent, ids []int64) error {
	for i, e := range evts {
		persisted := *e
		persisted.ID = ids[i]
		msg, err := newEventMessage(&persisted)
		if err != nil {
			return err
		}
		if err := r.bus.PublishTx(ctx, tx, domainevents.TopicFor(e.Type), msg); err != nil {
			return err
		}
	}
	return nil
}

func newEventMessage(e *models.InventoryEvent) (*message.Message, error) {
	event := domainevents.NewInventoryEventMessage(e)
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", event.EventID.String())
	msg.Metadata.Set("event_version", strconv.Itoa(event.Version))
	msg.Metadata.Set("product_id", strconv.FormatInt(e.ProductID, 10))
	return msg, nil
}
