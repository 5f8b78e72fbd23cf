package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/stockledger/pkg/httpx"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// InventoryView is the JSON shape of one stock record.
type InventoryView struct {
	ID                int64     `json:"id"                example:"1"`
	ProductID         int64     `json:"productId"         example:"42"`
	Quantity          int       `json:"quantity"          example:"100"`
	ReservedQuantity  int       `json:"reservedQuantity"  example:"30"`
	AvailableQuantity int       `json:"availableQuantity" example:"70"`
	ReorderLevel      int       `json:"reorderLevel"      example:"10"`
	LastUpdated       time.Time `json:"lastUpdated"       example:"2024-01-15T10:30:00Z"`
} // @name InventoryView

// InventoryEventView is the JSON shape of one event log entry.
type InventoryEventView struct {
	ID        int64     `json:"id"        example:"7"`
	ProductID int64     `json:"productId" example:"42"`
	EventType string    `json:"eventType" example:"STOCK_RESERVED" enums:"STOCK_UPDATED,STOCK_RESERVED,STOCK_RELEASED,LOW_STOCK_ALERT"`
	Quantity  int       `json:"quantity"  example:"20"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-15T10:30:00Z"`
} // @name InventoryEventView

// ReservationResponse is returned by reserve and release.
type ReservationResponse struct {
	ProductID         int64  `json:"productId"         example:"42"`
	Reserved          bool   `json:"reserved"          example:"true"`
	AvailableQuantity int    `json:"availableQuantity" example:"70"`
	Message           string `json:"message"           example:"Stock reserved successfully"`
} // @name ReservationResponse

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"inventory not found"`
} // @name ErrorResponse

// ValidationErrorResponse is returned when the request body fails validation.
type ValidationErrorResponse struct {
	Error  string            `json:"error"  example:"Validation failed"`
	Fields map[string]string `json:"fields"`
} // @name ValidationErrorResponse

func toView(inv *models.Inventory) InventoryView {
	return InventoryView{
		ID:                inv.ID,
		ProductID:         inv.ProductID,
		Quantity:          inv.Quantity,
		ReservedQuantity:  inv.ReservedQuantity,
		AvailableQuantity: inv.AvailableQuantity(),
		ReorderLevel:      inv.ReorderLevel,
		LastUpdated:       inv.LastUpdated,
	}
}

func toViews(records []*models.Inventory) []InventoryView {
	views := make([]InventoryView, len(records))
	for i, inv := range records {
		views[i] = toView(inv)
	}
	return views
}

func toEventViews(events []*models.InventoryEvent) []InventoryEventView {
	views := make([]InventoryEventView, len(events))
	for i, e := range events {
		views[i] = InventoryEventView{
			ID:        e.ID,
			ProductID: e.ProductID,
			EventType: e.Type.String(),
			Quantity:  e.Quantity,
			Timestamp: e.Timestamp,
		}
	}
	return views
}

// productIDParam reads the {productId} path segment. It writes a 400 and
// returns false when the segment is not a positive integer.
func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "productId must be a positive integer")
		return 0, false
	}
	return id, true
}
