package errhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
)

func TestWriteError_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ErrInventoryNotFound", invdomain.ErrInventoryNotFound, http.StatusNotFound},
		{"ErrInsufficientStock", &invdomain.InsufficientStockError{ProductID: 1, Available: 2, Requested: 3}, http.StatusConflict},
		{"ErrQuantityBelowReserved", invdomain.ErrQuantityBelowReserved, http.StatusConflict},
		{"ErrConcurrentUpdate", invdomain.ErrConcurrentUpdate, http.StatusConflict},
		{"ErrInvalidQuantity", invdomain.ErrInvalidQuantity, http.StatusUnprocessableEntity},
		{"wrapped ErrInventoryNotFound", fmt.Errorf("reserve stock: %w", invdomain.ErrInventoryNotFound), http.StatusNotFound},
		{"unknown error", errors.New("something unexpected"), http.StatusInternalServerError},
		{"generic wrapped error", fmt.Errorf("context: %w", errors.New("db down")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestWriteError_InsufficientStockMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, fmt.Errorf("reserve stock: %w", &invdomain.InsufficientStockError{ProductID: 1, Available: 90, Requested: 200}))

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	want := "Insufficient stock for product ID: 1. Available: 90, Requested: 200"
	if body["error"] != want {
		t.Fatalf("error = %q, want %q", body["error"], want)
	}
}

func TestWriteSafeError_HidesInternalErrorsInProduction(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSafeError(w, errors.New("pq: password authentication failed"), true)

	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("expected generic message, got %q", body["error"])
	}

	w = httptest.NewRecorder()
	WriteSafeError(w, invdomain.ErrInventoryNotFound, true)
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != invdomain.ErrInventoryNotFound.Error() {
		t.Fatalf("expected 4xx message to pass through, got %q", body["error"])
	}
}

func TestWriteError_ContentType(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, invdomain.ErrInventoryNotFound)

	if ct := w.Header().Get("Content-Type"); ct == "" {
		t.Fatal("Content-Type header not set")
	}
}
