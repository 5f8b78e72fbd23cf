package services

import (
	"github.com/ghuser/stockledger/pkg/app"
	"github.com/ghuser/stockledger/pkg/cache"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
	"github.com/ghuser/stockledger/services/inventory/infrastructure/persistence/memory"
	"github.com/ghuser/stockledger/services/inventory/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Inventory *InventoryService
}

// New wires the inventory services with infrastructure from the Application
// container. Without a database the in-memory stores are used.
func New(a *app.Application) *Services {
	var (
		repo   repositories.InventoryRepository
		events repositories.EventRepository
	)
	if a.Db != nil {
		repo = postgres.NewInventoryRepository(a.Db)
		events = postgres.NewEventRepository(a.Db, a.EventBus)
	} else {
		repo = memory.NewInventoryRepository()
		events = memory.NewEventRepository()
	}

	opts := []Option{}
	if a.Config != nil {
		opts = append(opts, WithDefaultReorderLevel(a.Config.DefaultReorderLevel))
	}
	// The in-memory store restarts its versions at 1, so entries left in Redis
	// by an earlier process would outrank every new write.
	if a.Db != nil {
		if c := cache.NewInventoryCache(a.Redis); c != nil {
			opts = append(opts, WithCache(c))
		}
	}

	return &Services{
		Inventory: NewInventoryService(repo, events, a.Logger, opts...),
	}
}
