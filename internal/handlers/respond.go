package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kagura-engine/kagura/internal/services"
	"github.com/kagura-engine/kagura/pkg/session"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeServiceError maps service and session errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrNoGame):
		writeError(w, logger, http.StatusConflict, "No story package opened")
	case errors.Is(err, services.ErrSessionNotFound):
		writeError(w, logger, http.StatusNotFound, "Session not found")
	case errors.Is(err, session.ErrNoSession):
		writeError(w, logger, http.StatusConflict, "No active session")
	case errors.Is(err, session.ErrInvalidSwitch):
		writeError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrLocaleUnavailable):
		writeError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrCorruptRecord):
		writeError(w, logger, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("Internal error", "error", err)
		writeError(w, logger, http.StatusInternalServerError, "Internal server error")
	}
}
