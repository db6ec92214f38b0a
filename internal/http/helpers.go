package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// userID extracts the caller's partition key. Authentication happens
// upstream; an absent header means the request never passed through it.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header", "")
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return false
	}
	return true
}

// writeServiceError maps service and store failures onto HTTP statuses. A
// dangling explicit reference is the caller's mistake and is reported
// distinctly from a plain not-found read.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrReferenceNotFound):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "reference_not_found")
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", "")
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error(), "validation")
	default:
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrInvalidType,
		core.ErrInvalidSplit,
		core.ErrInvalidFrequency,
		core.ErrEmptyUser,
		core.ErrEmptyName,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
