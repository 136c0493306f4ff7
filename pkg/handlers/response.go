package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/logging"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps pipeline errors onto HTTP status codes. Error
// text is sanitized before it reaches the response body.
func writeServiceError(w http.ResponseWriter, err error) {
	msg := logging.SanitizeError(err)

	var maxErr *apperrors.MaxAttemptsError
	var timeoutErr *apperrors.VerificationTimeoutError

	switch {
	case apperrors.IsValidation(err):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_config", msg)
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", msg)
	case errors.Is(err, apperrors.ErrAlreadyInFlight):
		_ = ErrorResponse(w, http.StatusConflict, "operation_in_flight", msg)
	case errors.Is(err, apperrors.ErrConflict):
		_ = ErrorResponse(w, http.StatusConflict, "conflict", msg)
	case apperrors.IsCredentialsRequired(err):
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "credentials_required", msg)
	case errors.As(err, &timeoutErr):
		_ = ErrorResponse(w, http.StatusBadGateway, "verification_timeout", msg)
	case errors.As(err, &maxErr):
		_ = ErrorResponse(w, http.StatusBadGateway, "attach_failed", msg)
	default:
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", msg)
	}
}
