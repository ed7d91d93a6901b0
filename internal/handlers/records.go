package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kagura-engine/kagura/internal/services"
)

type SaveRecordRequest struct {
	SessionID string `json:"session_id"`
}

type SaveRecordResponse struct {
	Slot int `json:"slot"`
}

// RecordsHandler serves the record slot surface.
// Routes:
// GET  /v1/records        - List staged record slots
// POST /v1/records/{slot} - Snapshot a session into a slot
// POST /v1/save           - Commit settings, records and visited set
type RecordsHandler struct {
	service *services.GameService
	logger  *slog.Logger
}

func NewRecordsHandler(service *services.GameService, logger *slog.Logger) *RecordsHandler {
	return &RecordsHandler{
		service: service,
		logger:  logger,
	}
}

func (h *RecordsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/v1/save" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		if err := h.service.SaveAll(r.Context()); err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "saved"})
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/records"), "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		records, err := h.service.Records()
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, records)

	case path != "" && r.Method == http.MethodPost:
		slot, err := strconv.Atoi(path)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid record slot")
			return
		}
		var req SaveRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
			return
		}
		saved, err := h.service.SaveRecordTo(req.SessionID, slot)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, SaveRecordResponse{Slot: saved})

	default:
		h.logger.Warn("Method not allowed for records endpoint", "method", r.Method, "path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
