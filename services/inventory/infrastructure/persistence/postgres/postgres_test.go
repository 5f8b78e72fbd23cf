package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/stockledger/pkg/database"
	"github.com/ghuser/stockledger/pkg/logger"
	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
	domainevents "github.com/ghuser/stockledger/services/inventory/domain/events"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/infrastructure/persistence/postgres/db"
)

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pgconn.PgError{Code: pgUniqueViolation}, invdomain.ErrConcurrentUpdate},
		{"check violation", &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "stock_reserved_within_quantity"}, invdomain.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapWriteError("insert inventory", tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("mapWriteError() = %v, want %v", got, tt.want)
			}
		})
	}

	plain := errors.New("connection reset")
	if got := mapWriteError("update inventory", plain); !errors.Is(got, plain) {
		t.Fatalf("expected other errors to be wrapped, got %v", got)
	}
}

func TestCheckColumnRange(t *testing.T) {
	tests := []struct {
		name    string
		inv     models.Inventory
		wantErr bool
	}{
		{"in range", models.Inventory{Quantity: models.MaxQuantity, ReservedQuantity: 5, ReorderLevel: 10}, false},
		{"quantity above INTEGER", models.Inventory{Quantity: 4294967396}, true},
		{"quantity wraps negative", models.Inventory{Quantity: models.MaxQuantity + 1}, true},
		{"reorder level above INTEGER", models.Inventory{Quantity: 1, ReorderLevel: models.MaxQuantity + 1}, true},
		{"negative reserved", models.Inventory{Quantity: 1, ReservedQuantity: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkColumnRange(&tt.inv)
			if tt.wantErr != (err != nil) {
				t.Fatalf("checkColumnRange() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, invdomain.ErrInvalidQuantity) {
				t.Fatalf("expected ErrInvalidQuantity, got %v", err)
			}
		})
	}
}

func TestRowToInventory(t *testing.T) {
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	inv := rowToInventory(db.InventoryStock{
		ID: 4, ProductID: 12, Quantity: 50, ReservedQuantity: 45, ReorderLevel: 10, Version: 3, LastUpdated: at,
	})
	if inv.ID != 4 || inv.ProductID != 12 || inv.AvailableQuantity() != 5 || inv.Version != 3 || !inv.LastUpdated.Equal(at) {
		t.Fatalf("unexpected mapping: %+v", inv)
	}
	if !inv.IsLowStock() {
		t.Fatal("expected mapped record to be low stock")
	}
}

func TestNewEventMessage(t *testing.T) {
	e := models.NewInventoryEvent(12, models.EventStockReserved, 5, time.Now())
	e.ID = 99

	msg, err := newEventMessage(e)
	if err != nil {
		t.Fatalf("newEventMessage failed: %v", err)
	}
	if msg.Metadata.Get("product_id") != "12" || msg.Metadata.Get("event_version") != "1" {
		t.Fatalf("unexpected metadata: %v", msg.Metadata)
	}

	var payload domainevents.InventoryEventMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.LogID != 99 || payload.EventType != "STOCK_RESERVED" || payload.Quantity != 5 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.EventID.String() != msg.Metadata.Get("event_id") {
		t.Fatal("event_id metadata does not match payload")
	}
}

// Integration tests: skipped unless DATABASE_URL points at a migrated database.
func TestRepositoriesIntegration(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration tests")
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, dbURL, logger.NewNop())
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	productID := time.Now().UnixNano()
	invRepo := NewInventoryRepository(pool)
	evtRepo := NewEventRepository(pool, nil)

	t.Run("Save_Insert_Then_Update", func(t *testing.T) {
		inv := models.NewInventory(productID, 100, 10)
		if err := invRepo.Save(ctx, inv); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if inv.ID == 0 || inv.Version != 1 {
			t.Fatalf("expected stored ID and version 1, got %+v", inv)
		}

		stale := inv.Clone()
		inv.ReservedQuantity = 20
		if err := invRepo.Save(ctx, inv); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		stale.ReservedQuantity = 30
		if err := invRepo.Save(ctx, stale); !errors.Is(err, invdomain.ErrConcurrentUpdate) {
			t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
		}

		got, err := invRepo.GetByProductID(ctx, productID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.ReservedQuantity != 20 || got.Version != 2 {
			t.Fatalf("unexpected stored record: %+v", got)
		}
	})

	t.Run("Duplicate_Insert", func(t *testing.T) {
		if err := invRepo.Save(ctx, models.NewInventory(productID, 1, 1)); !errors.Is(err, invdomain.ErrConcurrentUpdate) {
			t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
		}
	})

	t.Run("Events_Append_And_List", func(t *testing.T) {
		first := models.NewInventoryEvent(productID, models.EventStockUpdated, 100, time.Now())
		second := models.NewInventoryEvent(productID, models.EventStockReserved, 20, time.Now())
		if err := evtRepo.Append(ctx, first, second); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if first.ID == 0 || second.ID <= first.ID {
			t.Fatalf("expected increasing IDs, got %d, %d", first.ID, second.ID)
		}

		got, err := evtRepo.ListByProductID(ctx, productID)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(got) != 2 || got[0].Type != models.EventStockUpdated || got[1].Type != models.EventStockReserved {
			t.Fatalf("unexpected events: %+v", got)
		}
	})
}
