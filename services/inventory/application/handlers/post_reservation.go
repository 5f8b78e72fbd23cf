package handlers

import (
	"net/http"

	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	pkgvalidator "github.com/ghuser/stockledger/pkg/validator"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// StockReservationRequest is the request body for reserve and release.
type StockReservationRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"  example:"42"`
	Quantity  *int  `json:"quantity"  validate:"required,gte=0,lte=2147483647" example:"20"`
} // @name StockReservationRequest

// ReservationHandler handles POST /inventory/reserve and /inventory/release.
type ReservationHandler struct {
	svc          *appsvcs.Services
	isProduction bool
}

// NewReservationHandler returns a ReservationHandler backed by the given services.
func NewReservationHandler(svc *appsvcs.Services, isProduction bool) *ReservationHandler {
	return &ReservationHandler{svc: svc, isProduction: isProduction}
}

// Reserve holds stock for a product.
//
//	@Summary		Reserve stock
//	@Description	Reserves quantity units. Fails without side effects when fewer units are available.
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Param			request	body		StockReservationRequest	true	"Reservation"
//	@Success		200		{object}	ReservationResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ValidationErrorResponse
//	@Router			/inventory/reserve [post]
func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[StockReservationRequest](w, r)
	if !ok {
		return
	}

	out, err := h.svc.Inventory.Reserve(r.Context(), req.ProductID, *req.Quantity)
	if err != nil {
		errhttp.WriteSafeError(w, err, h.isProduction)
		return
	}
	httpx.JSON(w, http.StatusOK, toReservationResponse(out))
}

// Release returns reserved stock to availability.
//
//	@Summary		Release stock
//	@Description	Releases up to quantity reserved units; larger requests release everything reserved.
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Param			request	body		StockReservationRequest	true	"Release"
//	@Success		200		{object}	ReservationResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ValidationErrorResponse
//	@Router			/inventory/release [post]
func (h *ReservationHandler) Release(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[StockReservationRequest](w, r)
	if !ok {
		return
	}

	out, err := h.svc.Inventory.Release(r.Context(), req.ProductID, *req.Quantity)
	if err != nil {
		errhttp.WriteSafeError(w, err, h.isProduction)
		return
	}
	httpx.JSON(w, http.StatusOK, toReservationResponse(out))
}

func toReservationResponse(out *appsvcs.ReservationOutcome) ReservationResponse {
	return ReservationResponse{
		ProductID:         out.ProductID,
		Reserved:          out.Reserved,
		AvailableQuantity: out.AvailableQuantity,
		Message:           out.Message,
	}
}
