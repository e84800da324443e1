package logging

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// RequestIDHeader carries the request ID across HTTP hops
const RequestIDHeader = "X-Request-ID"

// HTTPMiddleware logs each HTTP request and attaches a request context
func HTTPMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		if reqID := req.Header.Get(RequestIDHeader); reqID != "" {
			ctx = WithRequestID(ctx, reqID)
		}
		ctx = NewRequestContext(ctx, req.Method+" "+req.URL.Path)
		requestID := GetRequestID(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, req.WithContext(ctx))

		attrs := []any{
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("request_id", requestID),
			slog.Int("status_code", wrapped.statusCode),
			slog.Duration("duration", GetDuration(ctx)),
		}
		if wrapped.statusCode >= 400 {
			logger.WarnContext(ctx, "HTTP request completed with error", attrs...)
		} else {
			logger.DebugContext(ctx, "HTTP request completed successfully", attrs...)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.headerWritten {
		return
	}
	rw.statusCode = statusCode
	rw.headerWritten = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.headerWritten = true
	return rw.ResponseWriter.Write(b)
}

// OperationTimer helps track operation latencies
type OperationTimer struct {
	logger    *slog.Logger
	operation string
	startTime time.Time
	ctx       context.Context
}

// StartTimer creates a new operation timer
func StartTimer(ctx context.Context, logger *slog.Logger, operation string) *OperationTimer {
	if GetRequestID(ctx) == "" {
		ctx = NewRequestContext(ctx, operation)
	}

	timer := &OperationTimer{
		logger:    logger,
		operation: operation,
		startTime: time.Now(),
		ctx:       ctx,
	}

	logger.DebugContext(ctx, "Operation started",
		slog.String("operation", operation),
		slog.String("request_id", GetRequestID(ctx)),
	)
	return timer
}

// End completes the timer and logs the duration
func (t *OperationTimer) End() time.Duration {
	return t.EndWithError(nil)
}

// EndWithError completes the timer and logs the duration with an error
func (t *OperationTimer) EndWithError(err error) time.Duration {
	duration := time.Since(t.startTime)
	LogLatency(t.ctx, t.logger, t.operation, duration, err)
	return duration
}

// LogLatency is a helper function to log operation latencies
func LogLatency(ctx context.Context, logger *slog.Logger, operation string, duration time.Duration, err error) {
	requestID := GetRequestID(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Operation failed",
			slog.String("operation", operation),
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.DebugContext(ctx, "Operation completed",
		slog.String("operation", operation),
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
	)
}
