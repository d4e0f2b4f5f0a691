package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"milkledger/internal/core"
	"milkledger/internal/log"
	"milkledger/internal/persistence"
	"milkledger/internal/services"
)

// writeServiceError maps a service error onto a JSON error response.
// Unexpected errors are logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		NewResponse().Status(http.StatusUnprocessableEntity).
			JSON(errorBody{Error: verr.Message, Field: verr.Field}).
			Write(w)
	case errors.Is(err, core.ErrValidation):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, core.ErrCustomerNotFound):
		NotFoundError("customer not found").Write(w)
	case errors.Is(err, services.ErrImportNotFound):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNoCustomers):
		ConflictError(err.Error()).Write(w)
	case errors.Is(err, persistence.ErrInvalidImport):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ErrorResponse(http.StatusServiceUnavailable, "request cancelled").Write(w)
	default:
		log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err,
			log.ErrorTypeInternal, r.Method+" "+r.URL.Path, log.NewFields())
		InternalServerError("internal server error").Write(w)
	}
}

// writeBadBody reports an unreadable request body.
func writeBadBody(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
		return
	}
	BadRequestError("invalid request body: " + err.Error()).Write(w)
}

// queryBool reads a boolean flag such as ?all=true.
func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(key)))
	return err == nil && v
}

// queryInt reads a positive integer, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
