package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kagura-engine/kagura/internal/services"
	"github.com/kagura-engine/kagura/pkg/script"
	"github.com/kagura-engine/kagura/pkg/session"
)

type CreateSessionRequest struct {
	Locale string `json:"locale,omitempty"`
	// RecordSlot, when set, resumes from that staged record slot instead of
	// starting fresh.
	RecordSlot *int `json:"record_slot,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string        `json:"session_id"`
	State     session.State `json:"state"`
}

type StepResponse struct {
	Moved  bool           `json:"moved"`
	State  session.State  `json:"state"`
	Action *script.Action `json:"action,omitempty"`
}

type SwitchRequest struct {
	Index int `json:"index"`
}

type VisitedResponse struct {
	Visited bool `json:"visited"`
}

// SessionHandler serves the playback surface.
// Routes:
// POST /v1/sessions               - Start a session (new or from a record)
// POST /v1/sessions/{id}/next     - Advance one step
// POST /v1/sessions/{id}/back     - Rewind one step
// POST /v1/sessions/{id}/switch   - Select a pending choice
// GET  /v1/sessions/{id}/current  - Action the player is looking at
// GET  /v1/sessions/{id}/visited  - Whether the current paragraph was seen before
// GET  /v1/sessions/{id}/history  - Resolved actions in play order
type SessionHandler struct {
	service *services.GameService
	logger  *slog.Logger
}

func NewSessionHandler(service *services.GameService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger,
	}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	id, op := parts[0], parts[1]

	eng, err := h.service.Session(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	switch {
	case op == "next" && r.Method == http.MethodPost:
		h.handleNext(w, r, eng)
	case op == "back" && r.Method == http.MethodPost:
		h.handleBack(w, eng)
	case op == "switch" && r.Method == http.MethodPost:
		h.handleSwitch(w, r, eng)
	case op == "current" && r.Method == http.MethodGet:
		h.handleCurrent(w, eng)
	case op == "visited" && r.Method == http.MethodGet:
		writeJSON(w, h.logger, http.StatusOK, VisitedResponse{Visited: eng.CurrentVisited()})
	case op == "history" && r.Method == http.MethodGet:
		writeJSON(w, h.logger, http.StatusOK, eng.History())
	default:
		h.logger.Warn("Unsupported session route", "method", r.Method, "path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		id  string
		err error
	)
	if req.RecordSlot != nil {
		id, err = h.service.StartRecord(req.Locale, *req.RecordSlot)
	} else {
		id, err = h.service.StartNew(req.Locale)
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	eng, err := h.service.Session(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, CreateSessionResponse{SessionID: id, State: eng.State()})
}

func (h *SessionHandler) handleNext(w http.ResponseWriter, r *http.Request, eng *session.Engine) {
	moved, err := eng.NextRun(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.stepResponse(moved, eng))
}

func (h *SessionHandler) handleBack(w http.ResponseWriter, eng *session.Engine) {
	moved := eng.NextBackRun()
	writeJSON(w, h.logger, http.StatusOK, h.stepResponse(moved, eng))
}

func (h *SessionHandler) handleSwitch(w http.ResponseWriter, r *http.Request, eng *session.Engine) {
	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := eng.Switch(req.Index); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.stepResponse(true, eng))
}

func (h *SessionHandler) handleCurrent(w http.ResponseWriter, eng *session.Engine) {
	action, ok := eng.CurrentRun()
	if !ok {
		writeJSON(w, h.logger, http.StatusOK, StepResponse{Moved: false, State: eng.State()})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, StepResponse{Moved: true, State: eng.State(), Action: &action})
}

func (h *SessionHandler) stepResponse(moved bool, eng *session.Engine) StepResponse {
	resp := StepResponse{Moved: moved, State: eng.State()}
	if action, ok := eng.CurrentRun(); ok {
		resp.Action = &action
	} else if moved && resp.State == session.StateEnded {
		// The closing step has no pending action, but the client still needs
		// its text to display the final line.
		if history := eng.History(); len(history) > 0 {
			last := history[len(history)-1]
			resp.Action = &last
		}
	}
	return resp
}
