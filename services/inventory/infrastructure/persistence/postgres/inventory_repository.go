package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/stockledger/pkg/database"
	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/infrastructure/persistence/postgres/db"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// InventoryRepository implements repositories.InventoryRepository against PostgreSQL.
type InventoryRepository struct {
	db *database.Database
}

// NewInventoryRepository returns an InventoryRepository backed by the given connection pool.
func NewInventoryRepository(database *database.Database) *InventoryRepository {
	return &InventoryRepository{db: database}
}

// GetByProductID returns ErrInventoryNotFound if the product has no record.
func (r *InventoryRepository) GetByProductID(ctx context.Context, productID int64) (*models.Inventory, error) {
	row, err := db.New(r.db.DB()).GetStockByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invdomain.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return rowToInventory(row), nil
}

// List returns every record ordered by product ID.
func (r *InventoryRepository) List(ctx context.Context) ([]*models.Inventory, error) {
	rows, err := db.New(r.db.DB()).ListStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return rowsToInventory(rows), nil
}

// ListLowStock filters on available quantity in SQL.
func (r *InventoryRepository) ListLowStock(ctx context.Context) ([]*models.Inventory, error) {
	rows, err := db.New(r.db.DB()).ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return rowsToInventory(rows), nil
}

// Save inserts new records and performs a version-checked update otherwise.
// A lost insert race (unique product_id) and a stale version both surface as
// ErrConcurrentUpdate.
func (r *InventoryRepository) Save(ctx context.Context, inv *models.Inventory) error {
	if err := checkColumnRange(inv); err != nil {
		return err
	}
	q := db.New(r.db.DB())

	if inv.IsNew() {
		row, err := q.InsertStock(ctx, db.InsertStockParams{
			ProductID:        inv.ProductID,
			Quantity:         int32(inv.Quantity),
			ReservedQuantity: int32(inv.ReservedQuantity),
			ReorderLevel:     int32(inv.ReorderLevel),
		})
		if err != nil {
			return mapWriteError("insert inventory", err)
		}
		inv.ID = row.ID
		inv.Version = int(row.Version)
		inv.LastUpdated = row.LastUpdated
		return nil
	}

	row, err := q.UpdateStock(ctx, db.UpdateStockParams{
		ProductID:        inv.ProductID,
		Quantity:         int32(inv.Quantity),
		ReservedQuantity: int32(inv.ReservedQuantity),
		ReorderLevel:     int32(inv.ReorderLevel),
		Version:          int32(inv.Version),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invdomain.ErrConcurrentUpdate
		}
		return mapWriteError("update inventory", err)
	}
	inv.Version = int(row.Version)
	inv.LastUpdated = row.LastUpdated
	return nil
}

// checkColumnRange rejects counts the INTEGER columns cannot hold.
func checkColumnRange(inv *models.Inventory) error {
	for _, v := range [...]int{inv.Quantity, inv.ReservedQuantity, inv.ReorderLevel} {
		if v < 0 || v > models.MaxQuantity {
			return fmt.Errorf("%w: %d is outside 0..%d", invdomain.ErrInvalidQuantity, v, models.MaxQuantity)
		}
	}
	return nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return invdomain.ErrConcurrentUpdate
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", invdomain.ErrInvalidQuantity, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func rowsToInventory(rows []db.InventoryStock) []*models.Inventory {
	out := make([]*models.Inventory, len(rows))
	for i, row := range rows {
		out[i] = rowToInventory(row)
	}
	return out
}

// rowToInventory maps a db.InventoryStock to a domain models.Inventory.
func rowToInventory(row db.InventoryStock) *models.Inventory {
	return &models.Inventory{
		ID:               row.ID,
		ProductID:        row.ProductID,
		Quantity:         int(row.Quantity),
		ReservedQuantity: int(row.ReservedQuantity),
		ReorderLevel:     int(row.ReorderLevel),
		Version:          int(row.Version),
		LastUpdated:      row.LastUpdated,
	}
}
