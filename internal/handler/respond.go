package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/timevault/timevault-go/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeServiceError maps the service error taxonomy to HTTP statuses.
// Integrity failures and unknown errors come back as a generic 500 so no
// internal detail (or partial plaintext) ever reaches the caller.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrActorBanned):
		writeJSON(w, http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrStoreTimeout):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse("temporarily unavailable"))
	case errors.Is(err, service.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrTitleRequired) ||
		errors.Is(err, service.ErrTitleTooLong) ||
		errors.Is(err, service.ErrUnlockRequired) ||
		errors.Is(err, service.ErrPayloadRequired)
}
