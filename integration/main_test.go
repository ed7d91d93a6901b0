//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

var (
	apiBaseURL string
	client     = &http.Client{Timeout: 30 * time.Second}
)

func TestMain(m *testing.M) {
	apiBaseURL = os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080" // Default to localhost
	}

	fmt.Printf("Running Kagura Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL)

	os.Exit(m.Run())
}

func call(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request: %v", err)
		}
	}

	req, err := http.NewRequest(method, apiBaseURL+path, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("Failed to parse response from %s %s: %v\n%s", method, path, err, data)
		}
	}
	return resp.StatusCode
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

type stepResponse struct {
	Moved  bool   `json:"moved"`
	State  string `json:"state"`
	Action *struct {
		Text     string `json:"text"`
		Switches []struct {
			Text    string `json:"text"`
			Enabled bool   `json:"enabled"`
		} `json:"switches"`
	} `json:"action"`
}

// TestPlaybackFlow drives a full session against a live API: start, read to
// the first choice, choose, finish, save, resume.
func TestPlaybackFlow(t *testing.T) {
	if status := call(t, http.MethodGet, "/health", nil, nil); status != http.StatusOK {
		t.Fatalf("Health check returned %d", status)
	}

	var info struct {
		Title   string   `json:"title"`
		Locales []string `json:"locales"`
	}
	if status := call(t, http.MethodGet, "/v1/game/info", nil, &info); status != http.StatusOK {
		t.Fatalf("Game info returned %d", status)
	}
	if len(info.Locales) == 0 {
		t.Fatal("Story package declares no locales")
	}

	var created sessionResponse
	body := map[string]string{"locale": info.Locales[0]}
	if status := call(t, http.MethodPost, "/v1/sessions", body, &created); status != http.StatusCreated {
		t.Fatalf("Create session returned %d", status)
	}
	base := "/v1/sessions/" + created.SessionID

	// Read forward until the story blocks or ends.
	var step stepResponse
	for i := 0; i < 100; i++ {
		if status := call(t, http.MethodPost, base+"/next", nil, &step); status != http.StatusOK {
			t.Fatalf("Next returned %d", status)
		}
		if step.State == "ended" {
			break
		}
		if step.State == "awaiting_switch" {
			if step.Action == nil || len(step.Action.Switches) == 0 {
				t.Fatal("Blocked without switches")
			}
			choice := -1
			for j, sw := range step.Action.Switches {
				if sw.Enabled {
					choice = j
					break
				}
			}
			if choice < 0 {
				t.Fatal("Blocked with no enabled switch")
			}
			if status := call(t, http.MethodPost, base+"/switch", map[string]int{"index": choice}, &step); status != http.StatusOK {
				t.Fatalf("Switch returned %d", status)
			}
		}
	}
	if step.State != "ended" {
		t.Fatalf("Story did not end, state %s", step.State)
	}

	// Back out of the ending and save.
	if status := call(t, http.MethodPost, base+"/back", nil, &step); status != http.StatusOK {
		t.Fatalf("Back returned %d", status)
	}
	if step.State != "running" {
		t.Fatalf("Expected running after back, got %s", step.State)
	}

	var saved struct {
		Slot int `json:"slot"`
	}
	if status := call(t, http.MethodPost, "/v1/records/0", map[string]string{"session_id": created.SessionID}, &saved); status != http.StatusOK {
		t.Fatalf("Save record returned %d", status)
	}
	if status := call(t, http.MethodPost, "/v1/save", nil, nil); status != http.StatusOK {
		t.Fatalf("Save returned %d", status)
	}

	// Resume from the slot.
	var resumed sessionResponse
	resumeBody := map[string]interface{}{"locale": info.Locales[0], "record_slot": saved.Slot}
	if status := call(t, http.MethodPost, "/v1/sessions", resumeBody, &resumed); status != http.StatusCreated {
		t.Fatalf("Resume returned %d", status)
	}
	if resumed.State != "running" {
		t.Fatalf("Expected resumed session running, got %s", resumed.State)
	}

	var visited struct {
		Visited bool `json:"visited"`
	}
	if status := call(t, http.MethodGet, "/v1/sessions/"+resumed.SessionID+"/visited", nil, &visited); status != http.StatusOK {
		t.Fatalf("Visited returned %d", status)
	}
	if !visited.Visited {
		t.Error("Expected resumed position to be visited")
	}
}
