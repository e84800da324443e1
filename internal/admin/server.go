// Package admin serves health, metrics and runtime log level endpoints
// beside an MCP server.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JamesPrial/mcp-fleet/internal/storage"
	"github.com/JamesPrial/mcp-fleet/pkg/errors"
	"github.com/JamesPrial/mcp-fleet/pkg/logging"
)

// StatsFunc reports the entity count of the served storage
type StatsFunc func(ctx context.Context) (*storage.Stats, error)

// AdminServer provides administrative endpoints for runtime configuration
type AdminServer struct {
	name    string
	stats   StatsFunc
	factory *logging.Factory
	logger  *slog.Logger
	mux     *http.ServeMux
	server  *http.Server
}

// NewAdminServer creates an admin server for the named MCP server. factory
// may be nil, in which case log level endpoints report 503.
func NewAdminServer(name string, stats StatsFunc, factory *logging.Factory) *AdminServer {
	admin := &AdminServer{
		name:    name,
		stats:   stats,
		factory: factory,
		logger:  logging.GetGlobalLogger("admin"),
		mux:     http.NewServeMux(),
	}

	admin.setupRoutes()
	return admin
}

func (a *AdminServer) setupRoutes() {
	a.mux.HandleFunc("/health", a.handleHealth)
	a.mux.HandleFunc("/log-level", a.handleLogLevel)
	a.mux.HandleFunc("/log-levels", a.handleLogLevels)
	a.mux.HandleFunc("/metrics", a.handleMetrics)
}

// ServeHTTP implements http.Handler
func (a *AdminServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status  string         `json:"status"`
	Server  string         `json:"server"`
	Storage *storage.Stats    `json:"storage,omitempty"`
	Error   *errors.HTTPError `json:"error,omitempty"`
}

// handleHealth reports healthy when the storage can be enumerated
func (a *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{Status: "healthy", Server: a.name}
	status := http.StatusOK
	if a.stats != nil {
		stats, err := a.stats(r.Context())
		if err != nil {
			level := slog.LevelWarn
			if errors.IsServerError(err) {
				level = slog.LevelError
			}
			a.logger.Log(r.Context(), level, "Health check failed", slog.String("error", err.Error()))
			response.Status = "unhealthy"
			httpErr := errors.ToHTTPError(err)
			response.Error = &httpErr
			status = http.StatusServiceUnavailable
		} else {
			response.Storage = stats
		}
	}

	writeJSON(w, status, response)
}

// LogLevelRequest represents a log level change request
type LogLevelRequest struct {
	Component string `json:"component"`
	Level     string `json:"level"`
}

// LogLevelResponse represents a log level response
type LogLevelResponse struct {
	Component string `json:"component"`
	Level     string `json:"level"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

// handleLogLevel handles GET to read and PUT or POST to change a level
func (a *AdminServer) handleLogLevel(w http.ResponseWriter, r *http.Request) {
	if a.factory == nil {
		writeJSON(w, http.StatusServiceUnavailable, LogLevelResponse{Message: "logging factory not initialized"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getLogLevel(w, r)
	case http.MethodPut, http.MethodPost:
		a.setLogLevel(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *AdminServer) getLogLevel(w http.ResponseWriter, r *http.Request) {
	component := r.URL.Query().Get("component")
	if component == "" {
		component = "default"
	}

	levels := a.factory.Levels()
	level, ok := levels[component]
	if !ok {
		// components that have not logged yet still resolve through the config
		level = levels["default"]
	}

	writeJSON(w, http.StatusOK, LogLevelResponse{
		Component: component,
		Level:     string(level),
		Success:   true,
	})
}

func (a *AdminServer) setLogLevel(w http.ResponseWriter, r *http.Request) {
	var req LogLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, LogLevelResponse{
			Message: fmt.Sprintf("Invalid JSON: %v", err),
		})
		return
	}

	level, err := logging.ParseLevel(req.Level)
	if err != nil || req.Level == "" {
		writeJSON(w, http.StatusBadRequest, LogLevelResponse{
			Component: req.Component,
			Message:   fmt.Sprintf("Invalid log level '%s'. Must be one of: debug, info, warn, error", req.Level),
		})
		return
	}

	component := req.Component
	if component == "" {
		component = "default"
	}
	a.factory.UpdateLevel(component, level)

	a.logger.InfoContext(r.Context(), "Log level updated",
		slog.String("target_component", component),
		slog.String("level", string(level)),
	)

	writeJSON(w, http.StatusOK, LogLevelResponse{
		Component: component,
		Level:     string(level),
		Success:   true,
		Message:   fmt.Sprintf("Log level for component '%s' updated to '%s'", component, level),
	})
}

// handleLogLevels returns the effective level of every known component
func (a *AdminServer) handleLogLevels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.factory == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "logging factory not initialized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"levels": a.factory.Levels()})
}

// handleMetrics exposes the Prometheus registry of the logging factory
func (a *AdminServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var collector *logging.MetricsCollector
	if a.factory != nil {
		collector = a.factory.GetMetricsCollector()
	}
	if collector == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "metrics not enabled"})
		return
	}
	collector.GetHTTPHandler().ServeHTTP(w, r)
}

// Start serves on addr until ctx is canceled
func (a *AdminServer) Start(ctx context.Context, addr string) error {
	a.server = &http.Server{
		Addr:              addr,
		Handler:           logging.HTTPMiddleware(a.logger, a),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.logger.InfoContext(ctx, "Starting admin server", slog.String("address", addr))

	errChan := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
