package api

import (
	"encoding/json"
	"net/http"

	"github.com/sonrisadental/booking-api/internal/appointment"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, details string) {
	writeJSON(w, status, ErrorResponse{Error: kind, Details: details})
}

func writeValidationError(w http.ResponseWriter, verr *appointment.ValidationError) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "validation_failed",
		Details: verr.Error(),
		Fields:  verr.Fields,
	})
}
