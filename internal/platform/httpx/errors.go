// Package httpx provides HTTP response utilities.
package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/fieldops/fieldops/internal/platform/fieldapi"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain and upstream errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var apiErr *fieldapi.Error
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.As(err, &apiErr):
		respondUpstream(w, apiErr)
	case errors.Is(err, context.DeadlineExceeded):
		Problem(w, http.StatusGatewayTimeout, "Upstream Timeout", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func respondUpstream(w http.ResponseWriter, apiErr *fieldapi.Error) {
	switch status := apiErr.StatusCode; {
	case status == http.StatusNotFound,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusConflict,
		status == http.StatusUnprocessableEntity:
		Problem(w, status, http.StatusText(status), apiErr.Message)
	case status >= 400 && status < 500:
		Problem(w, http.StatusBadRequest, "Rejected By Upstream", apiErr.Message)
	default:
		Problem(w, http.StatusBadGateway, "Upstream Error", apiErr.Message)
	}
}
