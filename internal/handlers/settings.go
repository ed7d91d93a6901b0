package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kagura-engine/kagura/internal/services"
	"github.com/kagura-engine/kagura/pkg/storage"
)

// SettingsHandler serves the player settings surface.
// Routes:
// GET /v1/settings - Current settings
// PUT /v1/settings - Stage new settings (durable at the next save)
type SettingsHandler struct {
	service *services.GameService
	logger  *slog.Logger
}

func NewSettingsHandler(service *services.GameService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger,
	}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		settings, err := h.service.Settings()
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, settings)

	case http.MethodPut:
		var settings storage.Settings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := h.service.SetSettings(&settings); err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, settings)

	default:
		h.logger.Warn("Method not allowed for settings endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, PUT")
	}
}
