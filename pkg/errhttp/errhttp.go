// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/stockledger/pkg/httpx"
	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
)

// WriteError maps err to an HTTP status code and writes a JSON error response
// carrying err's message.
func WriteError(w http.ResponseWriter, err error) {
	WriteSafeError(w, err, false)
}

// WriteSafeError is WriteError with 5xx messages replaced by the status text
// when isProduction is set.
func WriteSafeError(w http.ResponseWriter, err error, isProduction bool) {
	status := StatusFor(err)

	// Clients match on the insufficient stock wording, so it goes out unwrapped.
	var insufficient *invdomain.InsufficientStockError
	if errors.As(err, &insufficient) {
		err = insufficient
	}
	httpx.JSONError(w, status, httpx.SafeError(err, status, isProduction))
}

// StatusFor returns the HTTP status for err. Unrecognized errors are 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, invdomain.ErrInventoryNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, invdomain.ErrInsufficientStock),
		errors.Is(err, invdomain.ErrQuantityBelowReserved),
		errors.Is(err, invdomain.ErrConcurrentUpdate):
		return http.StatusConflict // 409
	case errors.Is(err, invdomain.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity // 422
	default:
		return http.StatusInternalServerError // 500
	}
}
