package handlers

import (
	"net/http"

	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	pkgvalidator "github.com/ghuser/stockledger/pkg/validator"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// UpsertInventoryRequest is the request body for POST /inventory.
type UpsertInventoryRequest struct {
	ProductID    int64 `json:"productId"    validate:"required,gt=0"   example:"42"`
	Quantity     *int  `json:"quantity"     validate:"required,gte=0,lte=2147483647"  example:"100"`
	ReorderLevel *int  `json:"reorderLevel" validate:"omitempty,gte=0,lte=2147483647" example:"10"`
} // @name UpsertInventoryRequest

// PostInventoryHandler handles POST /inventory requests.
type PostInventoryHandler struct {
	svc          *appsvcs.Services
	isProduction bool
}

// NewPostInventoryHandler returns a PostInventoryHandler backed by the given services.
func NewPostInventoryHandler(svc *appsvcs.Services, isProduction bool) *PostInventoryHandler {
	return &PostInventoryHandler{svc: svc, isProduction: isProduction}
}

// Execute creates a stock record or replaces its quantity.
//
//	@Summary		Create or update stock
//	@Description	Sets the on-hand quantity for a product, creating the record on first use. Reserved stock is never changed; reorderLevel is kept when omitted.
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Param			request	body		UpsertInventoryRequest	true	"Stock update"
//	@Success		201		{object}	InventoryView
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ValidationErrorResponse
//	@Router			/inventory [post]
func (h *PostInventoryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[UpsertInventoryRequest](w, r)
	if !ok {
		return
	}

	inv, err := h.svc.Inventory.Upsert(r.Context(), req.ProductID, *req.Quantity, req.ReorderLevel)
	if err != nil {
		errhttp.WriteSafeError(w, err, h.isProduction)
		return
	}

	httpx.JSON(w, http.StatusCreated, toView(inv))
}
