package errors

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/JamesPrial/mcp-fleet/pkg/logging"
)

// Logger provides centralized error logging
type Logger struct {
	logger *slog.Logger
}

// NewLoggerWithSlog creates a new error logger with a specific slog logger
func NewLoggerWithSlog(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// LogError logs an error with full context and returns it unchanged
func (l *Logger) LogError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("error_type", fmt.Sprintf("%T", err)),
	}
	if requestID := logging.GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	appErr, ok := as(err)
	if !ok {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.logger.LogAttrs(ctx, slog.LevelError, "Unexpected error occurred", attrs...)
		return err
	}

	attrs = append(attrs,
		slog.String("error_code", string(appErr.Code)),
		slog.String("error_message", appErr.Message),
	)
	if appErr.Internal != nil {
		attrs = append(attrs, slog.String("internal_error", appErr.Internal.Error()))
	}
	if appErr.Details != nil {
		attrs = append(attrs, slog.Any("error_details", appErr.Details))
	}

	l.logger.LogAttrs(ctx, logLevel(appErr.Code), "Application error occurred", attrs...)
	return err
}

// LogAndWrap logs an error and wraps it with an AppError
func (l *Logger) LogAndWrap(ctx context.Context, err error, code ErrorCode, message, operation string) *AppError {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, code, message)
	l.LogError(ctx, wrapped, operation)
	return wrapped
}

// LogPanic logs a recovered panic with its stack and returns an AppError
func (l *Logger) LogPanic(ctx context.Context, recovered interface{}, operation string) error {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)

	l.logger.LogAttrs(ctx, slog.LevelError, "Panic recovered",
		slog.String("operation", operation),
		slog.String("request_id", logging.GetRequestID(ctx)),
		slog.Any("panic", recovered),
		slog.String("stack_trace", string(buf[:n])),
	)

	return Newf(ErrCodePanic, "Internal error during %s", operation)
}

// logLevel determines the appropriate log level for an error code
func logLevel(code ErrorCode) slog.Level {
	switch {
	case strings.HasPrefix(string(code), "VALIDATION_"):
		return slog.LevelWarn
	case code == ErrCodeEntityNotFound || code == ErrCodeEntityAlreadyExists:
		return slog.LevelInfo
	case strings.HasPrefix(string(code), "STORAGE_"):
		return slog.LevelError
	case code == ErrCodeInternal || code == ErrCodePanic:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
