package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/stockledger/pkg/app"
	"github.com/ghuser/stockledger/services/inventory/application/handlers"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// InventoryRoutes registers inventory endpoints on the provided chi router.
func InventoryRoutes(r chi.Router, a *app.Application) {
	Routes(r, appsvcs.New(a), a.IsProduction())
}

// Routes registers inventory endpoints backed by svcs.
func Routes(r chi.Router, svcs *appsvcs.Services, isProduction bool) {
	get := handlers.NewGetInventoryHandler(svcs, isProduction)
	reservations := handlers.NewReservationHandler(svcs, isProduction)

	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", get.List)
		r.Post("/", handlers.NewPostInventoryHandler(svcs, isProduction).Execute)
		r.Get("/low-stock", get.LowStock)
		r.Post("/reserve", reservations.Reserve)
		r.Post("/release", reservations.Release)
		r.Get("/{productId}", get.Get)
		r.Get("/{productId}/events", get.Events)
	})
}
