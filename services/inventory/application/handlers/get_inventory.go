package handlers

import (
	"net/http"

	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// GetInventoryHandler serves the read-only inventory endpoints.
type GetInventoryHandler struct {
	svc          *appsvcs.Services
	isProduction bool
}

// NewGetInventoryHandler returns a GetInventoryHandler backed by the given services.
func NewGetInventoryHandler(svc *appsvcs.Services, isProduction bool) *GetInventoryHandler {
	return &GetInventoryHandler{svc: svc, isProduction: isProduction}
}

// List returns every stock record.
//
//	@Summary		List inventory
//	@Description	Returns every stock record ordered by product ID
//	@Tags			inventory
//	@Produce		json
//	@Success		200	{array}		InventoryView
//	@Failure		500	{object}	ErrorResponse
//	@Router			/inventory [get]
func (h *GetInventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Inventory.GetAll(r.Context())
	if err != nil {
		errhttp.WriteSafeError(w, err, h.isProduction)
		return
	}
	httpx.JSONList(w, http.StatusOK, toViews(records))
}

// Get returns one product's stock record.
//
//	@Summary		Get inventory by product
//	@Tags			inventory
//	@Produce		json
//	@Param			productId	path		int	true	"Product ID"
//	@Success		200			{object}	InventoryView
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/inventory/{productId} [get]
func (h *GetInventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.Inventory.GetByProduct(r.Context(), productID)
	if err != nil {
		errhttp.WriteSafeError(w, err, h.isProduction)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(inv))
}

// LowStock returns the records at or below their reorder level.
//
//	@Summary		List low stock
//	@Description	Returns every record whose available quantity is at or below its reorder level
//	@Tags			inventory
//	@Produce		json
//	@Success		200	{array}		InventoryView
//	@Failure		500	{object}	ErrorResponse
//	@Router			/inventory/low-stock [get]
func (h *GetInventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Inventory.LowStock(r.Context())
	if err != nil {
		errhttp.WriteSafeError(w, err, h.isProduction)
		return
	}
	httpx.JSONList(w, http.StatusOK, toViews(records))
}

// Events returns one product's event history, oldest first.
//
//	@Summary		List inventory events
//	@Tags			inventory
//	@Produce		json
//	@Param			productId	path		int	true	"Product ID"
//	@Success		200			{array}		InventoryEventView
//	@Failure		400			{object}	ErrorResponse
//	@Router			/inventory/{productId}/events [get]
func (h *GetInventoryHandler) Events(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	events, err := h.svc.Inventory.Events(r.Context(), productID)
	if err != nil {
		errhttp.WriteSafeError(w, err, h.isProduction)
		return
	}
	httpx.JSONList(w, http.StatusOK, toEventViews(events))
}
