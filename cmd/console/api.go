package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kagura-engine/kagura/internal/handlers"
	"github.com/kagura-engine/kagura/internal/services"
)

// apiClient wraps the playback API for the console player.
type apiClient struct {
	client  *http.Client
	baseURL string
}

func (a *apiClient) testConnection() bool {
	resp, err := a.client.Get(a.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (a *apiClient) gameInfo() (*services.GameInfo, error) {
	var info services.GameInfo
	if err := a.get("/v1/game/info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (a *apiClient) chooseLocale(preference []string) (string, error) {
	var resp handlers.ChooseLocaleResponse
	err := a.post("/v1/locale/choose", handlers.ChooseLocaleRequest{Preference: preference}, &resp)
	return resp.Locale, err
}

func (a *apiClient) startSession(locale string, recordSlot *int) (*handlers.CreateSessionResponse, error) {
	var resp handlers.CreateSessionResponse
	req := handlers.CreateSessionRequest{Locale: locale, RecordSlot: recordSlot}
	if err := a.post("/v1/sessions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *apiClient) next(sessionID string) (*handlers.StepResponse, error) {
	var resp handlers.StepResponse
	if err := a.post("/v1/sessions/"+sessionID+"/next", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *apiClient) back(sessionID string) (*handlers.StepResponse, error) {
	var resp handlers.StepResponse
	if err := a.post("/v1/sessions/"+sessionID+"/back", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *apiClient) choose(sessionID string, index int) (*handlers.StepResponse, error) {
	var resp handlers.StepResponse
	if err := a.post("/v1/sessions/"+sessionID+"/switch", handlers.SwitchRequest{Index: index}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *apiClient) current(sessionID string) (*handlers.StepResponse, error) {
	var resp handlers.StepResponse
	if err := a.get("/v1/sessions/"+sessionID+"/current", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// saveRecord snapshots the session into a slot and commits everything.
func (a *apiClient) saveRecord(sessionID string, slot int) (int, error) {
	var resp handlers.SaveRecordResponse
	req := handlers.SaveRecordRequest{SessionID: sessionID}
	if err := a.post(fmt.Sprintf("/v1/records/%d", slot), req, &resp); err != nil {
		return 0, err
	}
	if err := a.post("/v1/save", struct{}{}, nil); err != nil {
		return 0, err
	}
	return resp.Slot, nil
}

func (a *apiClient) get(path string, out interface{}) error {
	resp, err := a.client.Get(a.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return a.decode(resp, out)
}

func (a *apiClient) post(path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	resp, err := a.client.Post(a.baseURL+path, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return a.decode(resp, out)
}

func (a *apiClient) decode(resp *http.Response, out interface{}) error {
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
