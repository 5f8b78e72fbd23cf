// Package validator decodes JSON request bodies and checks them against
// go-playground/validator struct tags.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ghuser/stockledger/pkg/httpx"
)

// Decode failures. Validation failures are returned as validator.ValidationErrors.
var (
	ErrEmptyBody    = errors.New("request body is required")
	ErrInvalidJSON  = errors.New("invalid JSON")
	ErrBodyTooLarge = errors.New("request body too large")
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so clients see "productId", not "ProductID".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate runs struct-level validation using go-playground/validator tags.
func Validate(s any) error {
	return validate.Struct(s)
}

// Decode reads exactly one JSON value from r's body into T and validates it.
func Decode[T any](r *http.Request) (*T, error) {
	var req T
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, ErrBodyTooLarge
		case errors.Is(err, io.EOF):
			return nil, ErrEmptyBody
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidJSON)
	}
	if err := Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// FormatValidationErrors converts validator.ValidationErrors into a map of
// field name to human-readable message.
func FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errs
	}
	for _, e := range ve {
		errs[e.Field()] = formatFieldError(e)
	}
	return errs
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "gt":
		return fmt.Sprintf("Must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", e.Param())
	case "min":
		return fmt.Sprintf("Minimum value is %s", e.Param())
	case "max":
		return fmt.Sprintf("Maximum value is %s", e.Param())
	default:
		return fmt.Sprintf("Validation failed on '%s'", e.Tag())
	}
}

// ValidateRequest decodes and validates the body as T. On failure it writes
// the response itself and returns false: 413 past the RequestBodyLimit cap,
// 400 for a missing or malformed body, 422 with per-field messages otherwise.
func ValidateRequest[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	req, err := Decode[T](r)
	if err == nil {
		return req, true
	}

	var ve validator.ValidationErrors
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		httpx.JSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	case errors.Is(err, ErrEmptyBody):
		httpx.JSONError(w, http.StatusBadRequest, "Request body is required")
	case errors.As(err, &ve):
		httpx.ValidationError(w, FormatValidationErrors(err))
	default:
		httpx.JSONError(w, http.StatusBadRequest, "Invalid JSON")
	}
	return nil, false
}
