package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/folio/internal/apperr"
)

// Error codes carried in error responses.
const (
	codeCapabilityRequired = "capability_required"
	codeInvalidName        = "invalid_name"
	codeInvalidConfig      = "invalid_config"
	codeInvalidDirectory   = "invalid_directory"
	codeNotFound           = "not_found"
	codeConflict           = "conflict"
	codeStorage            = "storage_error"
	codeInternal           = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Code  string `json:"code,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps a service error to a status code and error body.
func writeError(w http.ResponseWriter, op string, err error) {
	var fbe *apperr.FileBackendError
	switch {
	case errors.Is(err, apperr.ErrCapabilityRequired):
		writeJSON(w, http.StatusPreconditionRequired, errResponse{Error: err.Error(), Code: codeCapabilityRequired})
	case errors.Is(err, apperr.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: codeInvalidName})
	case errors.Is(err, apperr.ErrInvalidConfig):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: codeInvalidConfig})
	case errors.Is(err, apperr.ErrInvalidDirectory):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: codeInvalidDirectory})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not found", Code: codeNotFound})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errResponse{Error: "checksum mismatch", Code: codeConflict})
	case errors.As(err, &fbe):
		slog.Error(op+" failed", slog.String("path", fbe.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "storage error", Code: codeStorage})
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal error", Code: codeInternal})
	}
}
