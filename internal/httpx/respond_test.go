package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		data     any
		wantJSON string
	}{
		{"object", http.StatusOK, map[string]string{"code": "abc123"}, `{"code":"abc123"}`},
		{"created", http.StatusCreated, map[string]int{"clicks": 0}, `{"clicks":0}`},
		{"empty list", http.StatusOK, []string{}, `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteJSON(rr, tt.status, tt.data)

			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
				t.Errorf("Content-Type = %q", got)
			}
			if got := rr.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control = %q, want no-store", got)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != tt.wantJSON {
				t.Errorf("body = %s, want %s", got, tt.wantJSON)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusConflict, "conflict", "code already taken", map[string]string{"hint": "pick another"})

	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusConflict)
	}

	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "conflict" {
		t.Errorf("error = %v", resp["error"])
	}
	if resp["message"] != "code already taken" {
		t.Errorf("message = %v", resp["message"])
	}
	if details, ok := resp["details"].(map[string]any); !ok || details["hint"] != "pick another" {
		t.Errorf("details = %v", resp["details"])
	}
}

func TestWriteError_OmitsEmptyFields(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusNotFound, "not_found", "", nil)

	if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"not_found"}` {
		t.Errorf("body = %s", got)
	}
}

func TestRedirect(t *testing.T) {
	rr := httptest.NewRecorder()
	Redirect(rr, httptest.NewRequest(http.MethodGet, "/abc123", nil), "https://example.com/page?q=1")

	if rr.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != "https://example.com/page?q=1" {
		t.Errorf("Location = %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); !strings.Contains(got, "no-cache") {
		t.Errorf("Cache-Control = %q", got)
	}
}
