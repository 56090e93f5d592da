package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/furyload/internal/apperr"
	"github.com/starford/furyload/internal/docservice"
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
	Path  string `json:"path,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps service errors to HTTP statuses. Unexpected errors are
// logged and reported as internal errors.
func writeError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid path", Path: path})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not found", Path: path})
	case errors.Is(err, apperr.ErrUpstream):
		slog.Warn(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errResponse{Error: err.Error(), Path: path})
	case errors.Is(err, docservice.ErrSearchDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search is disabled"))
	default:
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
