// Package workflows holds the Temporal workflows of the inventory context.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/ghuser/stockledger/pkg/logger"
	"github.com/ghuser/stockledger/pkg/telemetry"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
)

// DefaultSettleFor is how long a low-stock alert waits for a release or
// restock before the level is checked again.
const DefaultSettleFor = time.Minute

// LowStockAlertInput starts a LowStockAlertWorkflow.
type LowStockAlertInput struct {
	ProductID   int64
	Level       int
	TriggeredAt time.Time
	SettleFor   time.Duration
}

// LowStockAlertResult reports whether anyone was notified.
type LowStockAlertResult struct {
	Notified          bool
	AvailableQuantity int
	ReorderLevel      int
}

// StockLevel is the re-read state of a product.
type StockLevel struct {
	ProductID         int64
	AvailableQuantity int
	ReorderLevel      int
	Low               bool
}

// WorkflowID is the id under which at most one alert per product is open.
func WorkflowID(productID int64) string {
	return "low-stock-" + strconv.FormatInt(productID, 10)
}

// LowStockAlertWorkflow waits for the level to settle, re-reads the record
// and notifies only if the product is still at or below its reorder level.
func LowStockAlertWorkflow(ctx workflow.Context, in LowStockAlertInput) (*LowStockAlertResult, error) {
	log := workflow.GetLogger(ctx)

	if in.SettleFor > 0 {
		if err := workflow.Sleep(ctx, in.SettleFor); err != nil {
			return nil, err
		}
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    5,
		},
	})

	var a *Activities
	var level StockLevel
	if err := workflow.ExecuteActivity(ctx, a.CheckStockLevel, in.ProductID).Get(ctx, &level); err != nil {
		return nil, fmt.Errorf("check stock level: %w", err)
	}

	result := &LowStockAlertResult{
		AvailableQuantity: level.AvailableQuantity,
		ReorderLevel:      level.ReorderLevel,
	}
	if !level.Low {
		log.Info("stock recovered before alert", "product_id", in.ProductID, "available", level.AvailableQuantity)
		return result, nil
	}

	if err := workflow.ExecuteActivity(ctx, a.NotifyLowStock, level).Get(ctx, nil); err != nil {
		return nil, fmt.Errorf("notify low stock: %w", err)
	}
	result.Notified = true
	return result, nil
}

// Activities are the side effects of LowStockAlertWorkflow.
type Activities struct {
	Inventory *appsvcs.InventoryService
	Log       logger.Logger
}

// CheckStockLevel re-reads the product's record from the store.
func (a *Activities) CheckStockLevel(ctx context.Context, productID int64) (StockLevel, error) {
	inv, err := a.Inventory.GetFresh(ctx, productID)
	if errors.Is(err, invdomain.ErrInventoryNotFound) {
		return StockLevel{}, temporal.NewNonRetryableApplicationError(err.Error(), "InventoryNotFound", err)
	}
	if err != nil {
		return StockLevel{}, err
	}
	return StockLevel{
		ProductID:         inv.ProductID,
		AvailableQuantity: inv.AvailableQuantity(),
		ReorderLevel:      inv.ReorderLevel,
		Low:               inv.IsLowStock(),
	}, nil
}

// NotifyLowStock raises the alert with Sentry and the log.
func (a *Activities) NotifyLowStock(ctx context.Context, level StockLevel) error {
	a.Log.WarnContext(ctx, "inventory: low stock alert",
		"product_id", level.ProductID,
		"available_quantity", level.AvailableQuantity,
		"reorder_level", level.ReorderLevel,
	)
	telemetry.CaptureWarning(ctx,
		fmt.Sprintf("Low stock for product ID: %d. Available: %d, Reorder level: %d",
			level.ProductID, level.AvailableQuantity, level.ReorderLevel),
		map[string]string{"product_id": strconv.FormatInt(level.ProductID, 10)},
	)
	return nil
}

// Register adds the workflow and its activities to w.
func Register(w worker.Registry, a *Activities) {
	w.RegisterWorkflow(LowStockAlertWorkflow)
	w.RegisterActivity(a)
}
