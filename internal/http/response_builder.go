// Package http serves the cashflow JSON API.
//
// This file holds the builder used by every handler to write JSON bodies and
// the mapping from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cashflow/internal/core"
	"cashflow/internal/services"
	"cashflow/internal/store"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}

// validationErrors are reported to the client verbatim with 422.
var validationErrors = []error{
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrEmptyCategory,
	core.ErrEmptyName,
	core.ErrInvalidType,
	core.ErrInvalidStatus,
	core.ErrCategoryMismatch,
	core.ErrInvalidTaxRate,
	core.ErrNegativeHours,
	services.ErrRescheduleIncome,
	errInvalidField,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorFor maps err onto a response: validation 422, missing records 404,
// conflicts 409 and everything else 500 without leaking details.
func ErrorFor(err error) *JSONResponseBuilder {
	switch {
	case isValidationError(err):
		return UnprocessableEntityError(err.Error())
	case errors.Is(err, store.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, store.ErrConflict):
		return ErrorResponse(http.StatusConflict, "conflict")
	default:
		return InternalServerError("internal error")
	}
}
