package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagura-engine/kagura/internal/services"
	"github.com/kagura-engine/kagura/pkg/session"
	"github.com/kagura-engine/kagura/pkg/storage"
)

func setupService(t *testing.T) *services.GameService {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := services.NewGameService(storage.NewMockStore(), "testdata", 0, logger)
	t.Cleanup(svc.Close)

	_, err := svc.Open(context.Background(), "story.yaml")
	require.NoError(t, err)
	return svc
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGameHandler_Info(t *testing.T) {
	svc := setupService(t)
	h := NewGameHandler(svc, testLogger())

	w := doJSON(t, h, http.MethodGet, "/v1/game/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var info services.GameInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, "Harbor Lights", info.Title)
	assert.Equal(t, []string{"en", "ja"}, info.Locales)
}

func TestGameHandler_OpenValidation(t *testing.T) {
	svc := setupService(t)
	h := NewGameHandler(svc, testLogger())

	w := doJSON(t, h, http.MethodPost, "/v1/game/open", OpenGameRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, "/v1/game/open", OpenGameRequest{StoryFile: "missing.yaml"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/v1/game/info", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSettingsHandler(t *testing.T) {
	svc := setupService(t)
	h := NewSettingsHandler(svc, testLogger())

	w := doJSON(t, h, http.MethodGet, "/v1/settings", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var settings storage.Settings
	require.NoError(t, json.NewDecoder(w.Body).Decode(&settings))
	assert.Equal(t, "en", settings.Locale)

	w = doJSON(t, h, http.MethodPut, "/v1/settings", storage.Settings{Locale: "ja"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodGet, "/v1/settings", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&settings))
	assert.Equal(t, "ja", settings.Locale)
}

func TestLocaleHandler_Choose(t *testing.T) {
	svc := setupService(t)
	h := NewLocaleHandler(svc, testLogger())

	w := doJSON(t, h, http.MethodPost, "/v1/locale/choose", ChooseLocaleRequest{Preference: []string{"ja-JP", "en"}})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp ChooseLocaleResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ja", resp.Locale)

	w = doJSON(t, h, http.MethodGet, "/v1/locale/choose", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func createSession(t *testing.T, h *SessionHandler, body CreateSessionRequest) CreateSessionResponse {
	t.Helper()

	w := doJSON(t, h, http.MethodPost, "/v1/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateSessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.SessionID)
	return resp
}

func TestSessionHandler_Playback(t *testing.T) {
	svc := setupService(t)
	h := NewSessionHandler(svc, testLogger())

	created := createSession(t, h, CreateSessionRequest{Locale: "en"})
	base := "/v1/sessions/" + created.SessionID

	// First step resolves the plugin directive.
	w := doJSON(t, h, http.MethodPost, base+"/next", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var step StepResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&step))
	assert.True(t, step.Moved)
	require.NotNil(t, step.Action)
	assert.Equal(t, "The ferry horn sounds far away, far away", step.Action.Text)

	// Second step blocks on the choice.
	w = doJSON(t, h, http.MethodPost, base+"/next", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&step))
	assert.False(t, step.Moved)
	assert.Equal(t, session.StateAwaitingSwitch, step.State)
	require.NotNil(t, step.Action)
	assert.Len(t, step.Action.Switches, 2)

	// Out-of-range selection is rejected.
	w = doJSON(t, h, http.MethodPost, base+"/switch", SwitchRequest{Index: 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, base+"/switch", SwitchRequest{Index: 0})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&step))
	assert.Equal(t, session.StateRunning, step.State)

	// Final step ends the story but still carries its line for display.
	w = doJSON(t, h, http.MethodPost, base+"/next", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&step))
	assert.True(t, step.Moved)
	assert.Equal(t, session.StateEnded, step.State)
	require.NotNil(t, step.Action)
	assert.Equal(t, "The beam sweeps the water.", step.Action.Text)

	// History lists the resolved steps in play order.
	w = doJSON(t, h, http.MethodGet, base+"/history", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var history []json.RawMessage
	require.NoError(t, json.NewDecoder(w.Body).Decode(&history))
	assert.Len(t, history, 3)

	// Back rewinds past the end.
	w = doJSON(t, h, http.MethodPost, base+"/back", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&step))
	assert.True(t, step.Moved)
	assert.Equal(t, session.StateRunning, step.State)
}

func TestSessionHandler_Visited(t *testing.T) {
	svc := setupService(t)
	h := NewSessionHandler(svc, testLogger())

	created := createSession(t, h, CreateSessionRequest{Locale: "en"})
	base := "/v1/sessions/" + created.SessionID

	w := doJSON(t, h, http.MethodGet, base+"/visited", nil)
	var visited VisitedResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&visited))
	assert.False(t, visited.Visited)

	doJSON(t, h, http.MethodPost, base+"/next", nil)

	// A second session sees the first one's footprints.
	other := createSession(t, h, CreateSessionRequest{Locale: "en"})
	w = doJSON(t, h, http.MethodGet, "/v1/sessions/"+other.SessionID+"/visited", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&visited))
	assert.True(t, visited.Visited)
}

func TestSessionHandler_UnknownSession(t *testing.T) {
	svc := setupService(t)
	h := NewSessionHandler(svc, testLogger())

	w := doJSON(t, h, http.MethodPost, "/v1/sessions/nope/next", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_UnavailableLocale(t *testing.T) {
	svc := setupService(t)
	h := NewSessionHandler(svc, testLogger())

	w := doJSON(t, h, http.MethodPost, "/v1/sessions", CreateSessionRequest{Locale: "de"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordsHandler_SaveFlow(t *testing.T) {
	svc := setupService(t)
	sessions := NewSessionHandler(svc, testLogger())
	records := NewRecordsHandler(svc, testLogger())

	created := createSession(t, sessions, CreateSessionRequest{Locale: "en"})
	doJSON(t, sessions, http.MethodPost, "/v1/sessions/"+created.SessionID+"/next", nil)

	// No slots yet.
	w := doJSON(t, records, http.MethodGet, "/v1/records", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var slots []json.RawMessage
	require.NoError(t, json.NewDecoder(w.Body).Decode(&slots))
	assert.Empty(t, slots)

	// Snapshot into slot 0.
	w = doJSON(t, records, http.MethodPost, "/v1/records/0", SaveRecordRequest{SessionID: created.SessionID})
	assert.Equal(t, http.StatusOK, w.Code)
	var saved SaveRecordResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&saved))
	assert.Equal(t, 0, saved.Slot)

	// Commit.
	w = doJSON(t, records, http.MethodPost, "/v1/save", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Resume from the slot.
	slot := 0
	resumed := createSession(t, sessions, CreateSessionRequest{Locale: "en", RecordSlot: &slot})
	assert.Equal(t, session.StateRunning, resumed.State)

	// Unknown session in the save request.
	w = doJSON(t, records, http.MethodPost, "/v1/records/0", SaveRecordRequest{SessionID: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Bad slot path.
	w = doJSON(t, records, http.MethodPost, "/v1/records/abc", SaveRecordRequest{SessionID: created.SessionID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthHandler(t *testing.T) {
	store := storage.NewMockStore()
	h := NewHealthHandler(store, testLogger())

	w := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Components["storage"])
}
