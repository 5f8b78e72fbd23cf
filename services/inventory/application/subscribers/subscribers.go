// Package subscribers holds the event bus handlers run by the worker.
package subscribers

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.temporal.io/sdk/client"

	"github.com/ghuser/stockledger/pkg/events"
	"github.com/ghuser/stockledger/pkg/logger"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
	"github.com/ghuser/stockledger/services/inventory/application/workflows"
	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
	domainevents "github.com/ghuser/stockledger/services/inventory/domain/events"
)

// Consumer group suffixes. Each subscriber sees every message on its topics.
const (
	GroupCacheWarmer = "cache-warmer"
	GroupLowStock    = "low-stock-alerter"
)

// CacheRefresher reloads one product into the read cache.
type CacheRefresher interface {
	RefreshCache(ctx context.Context, productID int64) error
}

// WorkflowStarter starts a workflow unless one with the same id is open.
type WorkflowStarter interface {
	StartOnce(ctx context.Context, id string, wf any, args ...any) (client.WorkflowRun, error)
}

var _ CacheRefresher = (*appsvcs.InventoryService)(nil)

// CacheWarmer refreshes the cached record of the product an event refers to.
// Payloads that cannot be decoded are logged and dropped.
func CacheWarmer(svc CacheRefresher, log logger.Logger) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		evt, ok := decode(ctx, msg, log)
		if !ok {
			return nil
		}

		err := svc.RefreshCache(ctx, evt.ProductID)
		if errors.Is(err, invdomain.ErrInventoryNotFound) {
			log.WarnContext(ctx, "cache warm skipped, product missing", "product_id", evt.ProductID)
			return nil
		}
		if err != nil {
			return err
		}
		log.DebugContext(ctx, "cache warmed", "product_id", evt.ProductID, "event_type", evt.EventType)
		return nil
	}
}

// LowStockAlerter starts a LowStockAlertWorkflow for each LOW_STOCK_ALERT.
// Alerts for a product that already has an open workflow are folded into it.
func LowStockAlerter(starter WorkflowStarter, settleFor time.Duration, log logger.Logger) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		evt, ok := decode(ctx, msg, log)
		if !ok {
			return nil
		}

		run, err := starter.StartOnce(ctx, workflows.WorkflowID(evt.ProductID), workflows.LowStockAlertWorkflow,
			workflows.LowStockAlertInput{
				ProductID:   evt.ProductID,
				Level:       evt.Quantity,
				TriggeredAt: evt.OccurredAt,
				SettleFor:   settleFor,
			})
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "low stock workflow started",
			"product_id", evt.ProductID,
			"level", evt.Quantity,
			"workflow_id", run.GetID(),
			"run_id", run.GetRunID(),
		)
		return nil
	}
}

func decode(ctx context.Context, msg *message.Message, log logger.Logger) (domainevents.InventoryEventMessage, bool) {
	evt, err := events.DecodeJSON[domainevents.InventoryEventMessage](msg)
	if err != nil {
		log.ErrorContext(ctx, "dropping undecodable inventory event", "message_uuid", msg.UUID, "error", err)
		return evt, false
	}
	return evt, true
}
