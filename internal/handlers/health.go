package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	logpkg "github.com/benvon/smart-bookmarks/internal/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// checkTimeout bounds each dependency check in extended mode
const checkTimeout = 5 * time.Second

// CheckFunc reports whether a dependency is reachable
type CheckFunc func(ctx context.Context) error

// HealthChecker handles health check requests
type HealthChecker struct {
	env     string
	version string
	checks  map[string]CheckFunc
	logger  *zap.Logger
}

// NewHealthChecker creates a new health checker. Dependencies are added with AddCheck.
func NewHealthChecker(env, version string, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthChecker{
		env:     env,
		version: version,
		checks:  make(map[string]CheckFunc),
		logger:  logger,
	}
}

// AddCheck registers a dependency checked by /healthz?mode=extended
func (h *HealthChecker) AddCheck(name string, check CheckFunc) {
	h.checks[name] = check
}

// RegisterRoutes registers the operational routes on the root router
func (h *HealthChecker) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/version", h.Version).Methods("GET")
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Env       string            `json:"env,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health is the liveness endpoint
func (h *HealthChecker) Health(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Env:       h.env,
	})
}

// HealthCheck handles the /healthz endpoint. ?mode=extended checks every registered dependency.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if r.URL.Query().Get("mode") != "extended" {
		writeHealth(w, http.StatusOK, response)
		return
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	response.Checks = make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			response.Status = "unhealthy"
			response.Checks[name] = "unhealthy"
			h.logger.Warn("health_check_failed",
				zap.String("dependency", name),
				zap.String("error", logpkg.SanitizeError(err)),
			)
			continue
		}
		response.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeHealth(w, status, response)
}

// Version reports the build version
func (h *HealthChecker) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

func writeHealth(w http.ResponseWriter, status int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
