package app

import (
	"github.com/ghuser/stockledger/pkg/cache"
	"github.com/ghuser/stockledger/pkg/config"
	"github.com/ghuser/stockledger/pkg/database"
	"github.com/ghuser/stockledger/pkg/events"
	"github.com/ghuser/stockledger/pkg/httpx"
	"github.com/ghuser/stockledger/pkg/logger"
	"github.com/ghuser/stockledger/pkg/workflows"
)

// Application holds shared infrastructure dependencies for all services.
// Pass it to each bounded context's Routes call during server initialization.
//
// Logging: app.Logger is backed by a trace-aware handler. Use the context
// methods and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "stock reserved", "product_id", id)
//	app.Logger.ErrorContext(ctx, "failed to append event", "error", err)
//
// Db, EventBus, Redis and TemporalClient are nil when the process runs with
// STORE_BACKEND=memory or the matching feature is disabled; consumers must
// check before use.
type Application struct {
	Config         *config.Config
	Db             *database.Database
	Logger         logger.Logger
	EventBus       *events.EventBus
	Redis          *cache.RedisClient
	TemporalClient *workflows.TemporalClient
}

// HealthChecks returns a checker for every configured dependency.
func (a *Application) HealthChecks() httpx.HealthChecks {
	checks := httpx.HealthChecks{}
	if a.Db != nil {
		checks["database"] = a.Db
	}
	if a.Redis != nil {
		checks["redis"] = a.Redis
	}
	if a.EventBus != nil {
		checks["event_bus"] = a.EventBus
	}
	if a.TemporalClient != nil {
		checks["temporal"] = a.TemporalClient
	}
	return checks
}

// IsProduction reports whether error details must be hidden from clients.
func (a *Application) IsProduction() bool {
	return a.Config != nil && a.Config.Environment == config.EnvProduction
}
