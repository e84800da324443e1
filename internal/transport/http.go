package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/JamesPrial/mcp-fleet/pkg/config"
	"github.com/JamesPrial/mcp-fleet/pkg/logging"
)

// HTTPTransport serves JSON-RPC on POST /rpc and a liveness probe on GET /health
type HTTPTransport struct {
	config         *config.TransportSettings
	server         *http.Server
	handler        RequestHandler
	sessionManager *SessionManager
	logger         *slog.Logger
	metrics        *logging.MetricsCollector
	mu             sync.RWMutex
	addr           string
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(cfg *config.TransportSettings) *HTTPTransport {
	return &HTTPTransport{
		config:         cfg,
		sessionManager: NewSessionManager(30 * time.Minute),
		logger:         logging.GetGlobalLogger("transport.http"),
		metrics:        logging.GetGlobalMetricsCollector(),
	}
}

// Handler returns the HTTP routes bound to handler
func (t *HTTPTransport) Handler(handler RequestHandler) http.Handler {
	t.mu.Lock()
	t.handler = handler
	t.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", t.handleRPC)
	mux.HandleFunc("/health", t.handleHealth)

	var httpHandler http.Handler = logging.HTTPMiddleware(t.logger, mux)
	if t.config.EnableCORS {
		httpHandler = t.corsMiddleware(httpHandler)
	}
	return httpHandler
}

// Start listens on host:port and serves until ctx is canceled
func (t *HTTPTransport) Start(ctx context.Context, handler RequestHandler) error {
	addr := net.JoinHostPort(t.config.Host, fmt.Sprint(t.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:      t.Handler(handler),
		ReadTimeout:  time.Duration(t.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(t.config.WriteTimeout) * time.Second,
	}

	t.mu.Lock()
	t.server = server
	t.addr = listener.Addr().String()
	t.mu.Unlock()

	t.logger.InfoContext(ctx, "HTTP transport starting",
		slog.String("transport", t.Name()),
		slog.String("address", t.Addr()),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			t.logger.ErrorContext(ctx, "HTTP server error",
				slog.String("error", err.Error()),
			)
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		t.logger.InfoContext(ctx, "HTTP transport context cancelled")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.Stop(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Addr returns the bound address once Start is listening
func (t *HTTPTransport) Addr() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.addr
}

// Stop gracefully shuts down the HTTP server
func (t *HTTPTransport) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "HTTP transport stopping")
	t.sessionManager.Stop()

	t.mu.RLock()
	server := t.server
	t.mu.RUnlock()
	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		t.logger.ErrorContext(ctx, "Error during HTTP server shutdown",
			slog.String("error", err.Error()),
		)
		return err
	}
	t.logger.InfoContext(ctx, "HTTP transport stopped successfully")
	return nil
}

// Name returns the name of the transport
func (t *HTTPTransport) Name() string {
	return "http"
}

func (t *HTTPTransport) maxBodyBytes() int64 {
	if t.config.MaxBodyBytes > 0 {
		return t.config.MaxBodyBytes
	}
	return 10 * 1024 * 1024
}

// handleRPC handles JSON-RPC requests
func (t *HTTPTransport) handleRPC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		t.sendJSONResponse(w, CreateFallbackErrorResponse(nil, "Method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(contentType)
	if contentType != "application/json" && contentType != "application/json-rpc" {
		t.logger.WarnContext(ctx, "Invalid content type for RPC",
			slog.String("content_type", contentType),
		)
		respErr := CreateFallbackErrorResponse(nil, "Content-Type must be application/json or application/json-rpc")
		t.sendJSONResponse(w, respErr, http.StatusUnsupportedMediaType)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, t.maxBodyBytes()))
	if err != nil {
		t.logger.WarnContext(ctx, "Failed to read request body",
			slog.String("error", err.Error()),
		)
		t.sendJSONResponse(w, CreateFallbackErrorResponse(nil, "Failed to read request body"), http.StatusRequestEntityTooLarge)
		return
	}

	req, err := ParseRequest(body)
	if err != nil {
		t.logger.WarnContext(ctx, "Failed to parse JSON-RPC request",
			slog.String("error", err.Error()),
		)
		t.sendJSONResponse(w, NewParseError(), http.StatusOK)
		return
	}

	session, created := t.sessionManager.Resolve(r.Header.Get(SessionHeader), t.Name())
	w.Header().Set(SessionHeader, session.ID)
	if created {
		t.logger.DebugContext(ctx, "Created new session",
			slog.String("session_id", session.ID),
		)
	}
	ctx = logging.WithSessionID(ctx, session.ID)

	t.mu.RLock()
	handler := t.handler
	t.mu.RUnlock()

	startTime := time.Now()
	resp := handler(ctx, req)
	duration := time.Since(startTime)
	t.metrics.RecordRequest(t.Name(), req.Method, duration, responseError(resp))

	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if resp.Error != nil {
		t.logger.WarnContext(ctx, "JSON-RPC request completed with error",
			slog.String("method", req.Method),
			slog.Any("id", req.ID),
			slog.String("session_id", session.ID),
			slog.Duration("duration", duration),
			slog.String("error", resp.Error.Message),
		)
	}

	t.sendJSONResponse(w, resp, responseStatus(resp))
}

// handleHealth handles health check requests
func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	health := map[string]interface{}{
		"status":    "healthy",
		"transport": t.Name(),
		"sessions":  t.sessionManager.Count(),
		"timestamp": time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		t.logger.Error("Failed to encode health response", slog.String("error", err.Error()))
	}
}

func (t *HTTPTransport) allowedOrigin(origin string) string {
	if len(t.config.CORSOrigins) == 0 {
		return "*"
	}
	for _, allowed := range t.config.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return origin
		}
	}
	return ""
}

// corsMiddleware adds CORS headers to responses
func (t *HTTPTransport) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := t.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader+", "+logging.RequestIDHeader)
			w.Header().Set("Access-Control-Expose-Headers", SessionHeader)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sendJSONResponse writes resp with the given status
func (t *HTTPTransport) sendJSONResponse(w http.ResponseWriter, resp *JSONRPCResponse, statusCode int) {
	body, err := json.Marshal(resp)
	if err != nil {
		t.logger.Error("Failed to encode response", slog.String("error", err.Error()))
		body, _ = json.Marshal(CreateFallbackErrorResponse(resp.ID, "Failed to encode response"))
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		t.logger.Warn("Failed to write response", slog.String("error", err.Error()))
	}
}
