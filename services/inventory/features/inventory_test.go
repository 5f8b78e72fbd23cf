package features

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"

	"github.com/ghuser/stockledger/pkg/logger"
	"github.com/ghuser/stockledger/services/inventory/application/services"
	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/infrastructure/persistence/memory"
)

type inventoryTestContext struct {
	svc     *services.InventoryService
	events  *memory.EventRepository
	mark    int
	outcome *services.ReservationOutcome
	err     error
}

func (c *inventoryTestContext) reset() {
	c.events = memory.NewEventRepository()
	c.svc = services.NewInventoryService(memory.NewInventoryRepository(), c.events, logger.NewNop())
	c.mark = 0
	c.outcome = nil
	c.err = nil
}

// since returns the events appended after the last When step began.
func (c *inventoryTestContext) since() []*models.InventoryEvent {
	return c.events.All()[c.mark:]
}

func (c *inventoryTestContext) aStockRecord(productID int64, quantity, reserved, reorderLevel int) error {
	ctx := context.Background()
	if _, err := c.svc.Upsert(ctx, productID, quantity, &reorderLevel); err != nil {
		return err
	}
	if reserved > 0 {
		if _, err := c.svc.Reserve(ctx, productID, reserved); err != nil {
			return err
		}
	}
	c.mark = len(c.events.All())
	return nil
}

func (c *inventoryTestContext) iReserve(quantity int, productID int64) error {
	c.mark = len(c.events.All())
	c.outcome, c.err = c.svc.Reserve(context.Background(), productID, quantity)
	return nil
}

func (c *inventoryTestContext) iRelease(quantity int, productID int64) error {
	c.mark = len(c.events.All())
	c.outcome, c.err = c.svc.Release(context.Background(), productID, quantity)
	return nil
}

func (c *inventoryTestContext) iLookUp(productID int64) error {
	c.mark = len(c.events.All())
	c.outcome = nil
	_, c.err = c.svc.GetByProduct(context.Background(), productID)
	return nil
}

func (c *inventoryTestContext) theOperationSucceedsWithMessage(msg string) error {
	if c.err != nil {
		return fmt.Errorf("expected success but got error: %v", c.err)
	}
	if !c.outcome.Reserved {
		return errors.New("expected reserved=true")
	}
	if c.outcome.Message != msg {
		return fmt.Errorf("expected message %q, got %q", msg, c.outcome.Message)
	}
	return nil
}

func (c *inventoryTestContext) productHas(productID int64, reserved, available int) error {
	inv, err := c.svc.GetByProduct(context.Background(), productID)
	if err != nil {
		return err
	}
	if inv.ReservedQuantity != reserved || inv.AvailableQuantity() != available {
		return fmt.Errorf("expected %d reserved and %d available, got %d and %d",
			reserved, available, inv.ReservedQuantity, inv.AvailableQuantity())
	}
	return nil
}

func (c *inventoryTestContext) aLowStockAlertWithLevel(level int) error {
	for _, e := range c.since() {
		if e.Type == models.EventLowStockAlert {
			if e.Quantity != level {
				return fmt.Errorf("expected alert level %d, got %d", level, e.Quantity)
			}
			return nil
		}
	}
	return errors.New("expected a LOW_STOCK_ALERT event")
}

func (c *inventoryTestContext) noLowStockAlert() error {
	for _, e := range c.since() {
		if e.Type == models.EventLowStockAlert {
			return fmt.Errorf("unexpected LOW_STOCK_ALERT with level %d", e.Quantity)
		}
	}
	return nil
}

func (c *inventoryTestContext) noEventIsLogged() error {
	if n := len(c.since()); n != 0 {
		return fmt.Errorf("expected no events, got %d", n)
	}
	return nil
}

func (c *inventoryTestContext) noEventIsLoggedFor(productID int64) error {
	evts, err := c.svc.Events(context.Background(), productID)
	if err != nil {
		return err
	}
	if len(evts) != 0 {
		return fmt.Errorf("expected no events for product %d, got %d", productID, len(evts))
	}
	return nil
}

func (c *inventoryTestContext) theOperationFailsWith(kind string) error {
	target := map[string]error{
		"insufficient stock": invdomain.ErrInsufficientStock,
		"not found":          invdomain.ErrInventoryNotFound,
	}[kind]
	if target == nil {
		return fmt.Errorf("unknown failure kind %q", kind)
	}
	if !errors.Is(c.err, target) {
		return fmt.Errorf("expected %v, got %v", target, c.err)
	}
	return nil
}

func (c *inventoryTestContext) theErrorMessageIs(msg string) error {
	var insufficient *invdomain.InsufficientStockError
	if !errors.As(c.err, &insufficient) {
		return fmt.Errorf("expected InsufficientStockError, got %T", c.err)
	}
	if insufficient.Error() != msg {
		return fmt.Errorf("expected message %q, got %q", msg, insufficient.Error())
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &inventoryTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a stock record for product (\d+) with quantity (\d+), reserved (\d+) and reorder level (\d+)$`, tc.aStockRecord)

	// When steps
	ctx.Step(`^I reserve (\d+) units? of product (\d+)$`, tc.iReserve)
	ctx.Step(`^I release (\d+) units? of product (\d+)$`, tc.iRelease)
	ctx.Step(`^I look up product (\d+)$`, tc.iLookUp)

	// Then steps
	ctx.Step(`^the operation succeeds with message "([^"]*)"$`, tc.theOperationSucceedsWithMessage)
	ctx.Step(`^the operation fails with (insufficient stock|not found)$`, tc.theOperationFailsWith)
	ctx.Step(`^the error message is "([^"]*)"$`, tc.theErrorMessageIs)
	ctx.Step(`^product (\d+) has (\d+) reserved and (\d+) available$`, tc.productHas)
	ctx.Step(`^a low-stock alert with level (\d+) is emitted$`, tc.aLowStockAlertWithLevel)
	ctx.Step(`^no low-stock alert is emitted$`, tc.noLowStockAlert)
	ctx.Step(`^no event is logged$`, tc.noEventIsLogged)
	ctx.Step(`^no event is logged for product (\d+)$`, tc.noEventIsLoggedFor)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"inventory.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
