package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kagura-engine/kagura/internal/services"
)

type OpenGameRequest struct {
	StoryFile string `json:"story_file"`
}

// GameHandler serves the story package surface.
// Routes:
// POST /v1/game/open - Open a story package
// GET  /v1/game/info - Metadata of the opened package
type GameHandler struct {
	service *services.GameService
	logger  *slog.Logger
}

func NewGameHandler(service *services.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		service: service,
		logger:  logger,
	}
}

func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	op := strings.TrimPrefix(r.URL.Path, "/v1/game/")
	switch {
	case op == "open" && r.Method == http.MethodPost:
		h.handleOpen(w, r)
	case op == "info" && r.Method == http.MethodGet:
		h.handleInfo(w, r)
	default:
		h.logger.Warn("Unsupported game route", "method", r.Method, "path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *GameHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req OpenGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StoryFile == "" {
		writeError(w, h.logger, http.StatusBadRequest, "story_file is required")
		return
	}

	info, err := h.service.Open(r.Context(), req.StoryFile)
	if err != nil {
		h.logger.Error("Failed to open story package", "file", req.StoryFile, "error", err)
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, info)
}

func (h *GameHandler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info()
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, info)
}
