package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
)

func TestHealthChecker_Health(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker("production", "1.2.3", nil)
	w := serve("", h.RegisterRoutes, nil, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Env != "production" || resp.Timestamp == "" {
		t.Errorf("Unexpected health response: %+v", resp)
	}
}

func TestHealthChecker_HealthCheck(t *testing.T) {
	t.Parallel()

	healthy := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	tests := []struct {
		name       string
		query      string
		checks     map[string]CheckFunc
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "basic mode skips checks",
			checks:     map[string]CheckFunc{"database": failing},
			wantStatus: http.StatusOK,
		},
		{
			name:       "extended all healthy",
			query:      "?mode=extended",
			checks:     map[string]CheckFunc{"database": healthy, "redis": healthy, "queue": healthy},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"database": "healthy", "redis": "healthy", "queue": "healthy"},
		},
		{
			name:       "extended one failing",
			query:      "?mode=extended",
			checks:     map[string]CheckFunc{"database": healthy, "queue": failing},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": "healthy", "queue": "unhealthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker("test", "dev", nil)
			for name, check := range tt.checks {
				h.AddCheck(name, check)
			}
			w := serve("", h.RegisterRoutes, nil, httptest.NewRequest(http.MethodGet, "/healthz"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Fatalf("Expected checks %v, got %v", tt.wantChecks, resp.Checks)
			}
			for name, want := range tt.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("Expected %s=%s, got %s", name, want, resp.Checks[name])
				}
			}
		})
	}
}

func TestHealthChecker_Version(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker("test", "1.2.3", nil)
	w := serve("", h.RegisterRoutes, nil, httptest.NewRequest(http.MethodGet, "/version", nil))
	body := decodeEnvelope(t, w)
	data, _ := body["data"].(map[string]any)
	if data["version"] != "1.2.3" {
		t.Errorf("Expected version 1.2.3, got %v", body["data"])
	}
}

func TestOpenAPIHandler(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.yaml")
	doc := "openapi: 3.0.3\ninfo:\n  title: Smart Bookmarks API\n  version: \"1.0\"\npaths:\n  /health:\n    get:\n      responses:\n        \"200\":\n          description: ok\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("Failed to write OpenAPI document: %v", err)
	}

	tests := []struct {
		name        string
		path        string
		file        string
		wantStatus  int
		wantContent string
	}{
		{"yaml", "/api/v1/openapi.yaml", path, http.StatusOK, "application/x-yaml"},
		{"json", "/api/v1/openapi.json", path, http.StatusOK, "application/json"},
		{"missing file", "/api/v1/openapi.json", filepath.Join(dir, "missing.yaml"), http.StatusNotFound, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := mux.NewRouter()
			NewOpenAPIHandler(tt.file).RegisterRoutes(root)
			w := httptest.NewRecorder()
			root.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.wantContent {
				t.Errorf("Expected Content-Type %q, got %q", tt.wantContent, ct)
			}
			if tt.name != "json" {
				return
			}
			var parsed map[string]any
			if err := json.NewDecoder(w.Body).Decode(&parsed); err != nil {
				t.Fatalf("Failed to decode JSON document: %v", err)
			}
			if parsed["openapi"] != "3.0.3" {
				t.Errorf("Expected openapi 3.0.3, got %v", parsed["openapi"])
			}
		})
	}
}
