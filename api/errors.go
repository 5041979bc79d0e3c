package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trusthive/trusthive/auth"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeUnauthorized collapses every credential failure into one uniform
// response. Which credential failed, and whether it was expired,
// consumed, or simply wrong, is recorded in the audit log only; the
// response must not let a caller probe for tenant existence.
func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

// failureReason maps a verification error to its audit-log reason.
func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return "missing credential"
	case errors.Is(err, auth.ErrExpiredCredential):
		return "expired credential"
	case errors.Is(err, auth.ErrConsumedCredential):
		return "consumed credential"
	case errors.Is(err, auth.ErrInvalidCredential):
		return "invalid credential"
	default:
		return "verification error"
	}
}
