package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghuser/stockledger/pkg/app"
	"github.com/ghuser/stockledger/pkg/cache"
	"github.com/ghuser/stockledger/pkg/config"
	"github.com/ghuser/stockledger/pkg/database"
	"github.com/ghuser/stockledger/pkg/events"
	"github.com/ghuser/stockledger/pkg/logger"
	"github.com/ghuser/stockledger/pkg/telemetry"
	"github.com/ghuser/stockledger/pkg/workflows"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
	"github.com/ghuser/stockledger/services/inventory/application/subscribers"
	invworkflows "github.com/ghuser/stockledger/services/inventory/application/workflows"
	domainevents "github.com/ghuser/stockledger/services/inventory/domain/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg).With("process", "worker")

	if cfg.UsesMemoryStore() {
		log.Error("worker needs STORE_BACKEND=postgres; the in-memory store publishes no events")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(context.Background()) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer pool.Close()
	log.Info("database pool connected")

	eventBus, err := events.NewEventBus(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	// Close waits for in-flight handlers before releasing the database.
	defer eventBus.Close() //nolint:errcheck

	redisClient, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		log.Info("redis connected")
	}

	appConfig := &app.Application{
		Config:   cfg,
		Db:       pool,
		Logger:   log,
		EventBus: eventBus,
		Redis:    redisClient,
	}

	if cfg.TemporalEnabled {
		temporalClient, err := workflows.NewTemporalClient(ctx, cfg, log)
		if err != nil {
			log.Error("failed to initialize temporal client", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		defer temporalClient.Close()
		appConfig.TemporalClient = temporalClient
	}

	svcs := appsvcs.New(appConfig)

	if registered, err := registerSubscribers(appConfig, svcs); err != nil {
		log.Error("failed to register subscribers", "error", err)
		os.Exit(1) //nolint:gocritic
	} else if registered {
		if err := eventBus.Start(ctx); err != nil {
			log.Error("failed to start event consumers", "error", err)
			os.Exit(1) //nolint:gocritic
		}
	}

	if appConfig.TemporalClient != nil {
		w := appConfig.TemporalClient.NewWorker()
		invworkflows.Register(w, &invworkflows.Activities{Inventory: svcs.Inventory, Log: log})
		if err := w.Start(); err != nil {
			log.Error("failed to start temporal worker", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		defer w.Stop()
		log.Info("temporal worker started", "task_queue", appConfig.TemporalClient.TaskQueue)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	log.Info("worker stopped")
}

// registerSubscribers wires the inventory event handlers onto the bus and
// reports whether any were registered.
func registerSubscribers(a *app.Application, svcs *appsvcs.Services) (bool, error) {
	var registered bool

	if a.Redis != nil {
		warm := subscribers.CacheWarmer(svcs.Inventory, a.Logger)
		group := events.WithConsumerGroup(a.Config.ServiceName + "-" + subscribers.GroupCacheWarmer)
		for _, topic := range domainevents.Topics {
			if err := a.EventBus.Handle(topic, warm, group); err != nil {
				return false, err
			}
		}
		registered = true
	}

	if a.TemporalClient != nil {
		alert := subscribers.LowStockAlerter(a.TemporalClient, invworkflows.DefaultSettleFor, a.Logger)
		group := events.WithConsumerGroup(a.Config.ServiceName + "-" + subscribers.GroupLowStock)
		if err := a.EventBus.Handle(domainevents.TopicLowStockAlert, alert, group); err != nil {
			return false, err
		}
		registered = true
	}

	a.Logger.Info("event subscribers registered",
		"cache_warmer", a.Redis != nil,
		"low_stock_alerter", a.TemporalClient != nil,
	)
	return registered, nil
}
