package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/service"
	"github.com/phrazzld/jot-api/internal/service/auth"
	"github.com/phrazzld/jot-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrJobNotFound),
		errors.Is(err, store.ErrTaskItemNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrJobAlreadyProcessed),
		errors.Is(err, service.ErrJobNotRetryable):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, service.ErrMissingStorageKey),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, store.ErrJobNotFound):
		return "Job not found"

	case errors.Is(err, store.ErrTaskItemNotFound):
		return "Task not found"

	case errors.Is(err, service.ErrJobAlreadyProcessed):
		return "Job has already been picked up for processing"

	case errors.Is(err, service.ErrJobNotRetryable):
		return "Only failed jobs can be retried"

	case errors.Is(err, service.ErrMissingStorageKey):
		return "Storage path is required"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}
