package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kagura-engine/kagura/internal/services"
)

type ChooseLocaleRequest struct {
	Preference []string `json:"preference"`
}

type ChooseLocaleResponse struct {
	Locale string `json:"locale"`
}

// LocaleHandler serves locale negotiation.
// Routes:
// POST /v1/locale/choose - Pick the best package locale for a preference list
type LocaleHandler struct {
	service *services.GameService
	logger  *slog.Logger
}

func NewLocaleHandler(service *services.GameService, logger *slog.Logger) *LocaleHandler {
	return &LocaleHandler{
		service: service,
		logger:  logger,
	}
}

func (h *LocaleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for locale endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	var req ChooseLocaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	locale, err := h.service.ChooseLocale(req.Preference)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ChooseLocaleResponse{Locale: locale})
}
