package logging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Context keys for logging metadata
type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeySessionID contextKey = "session_id"
	contextKeyOperation contextKey = "operation"
	contextKeyComponent contextKey = "component"
	contextKeyStartTime contextKey = "start_time"
)

// RequestContext holds request-scoped metadata
type RequestContext struct {
	RequestID string
	SessionID string
	Operation string
	Component string
	StartTime time.Time
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if str, ok := ctx.Value(key).(string); ok {
		return str
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, contextKeyRequestID)
}

// WithSessionID adds a transport session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID, sessionID)
}

// GetSessionID retrieves the session ID from context
func GetSessionID(ctx context.Context) string {
	return stringValue(ctx, contextKeySessionID)
}

// WithOperation adds an operation name to the context
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextKeyOperation, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	return stringValue(ctx, contextKeyOperation)
}

// WithComponent adds a component name to the context
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, contextKeyComponent, component)
}

// GetComponent retrieves the component name from context
func GetComponent(ctx context.Context) string {
	return stringValue(ctx, contextKeyComponent)
}

// WithStartTime records when the request started
func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, contextKeyStartTime, startTime)
}

// GetStartTime retrieves the start time from context
func GetStartTime(ctx context.Context) time.Time {
	if ctx == nil {
		return time.Time{}
	}
	if t, ok := ctx.Value(contextKeyStartTime).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// GetDuration returns the time elapsed since the request started
func GetDuration(ctx context.Context) time.Duration {
	start := GetStartTime(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

// NewRequestContext creates a new context with a request ID, operation and
// start time. An existing request ID is preserved.
func NewRequestContext(ctx context.Context, operation string) context.Context {
	if GetRequestID(ctx) == "" {
		ctx = WithRequestID(ctx, GenerateID())
	}
	ctx = WithOperation(ctx, operation)
	return WithStartTime(ctx, time.Now())
}

// ExtractRequestContext extracts all request metadata from context
func ExtractRequestContext(ctx context.Context) *RequestContext {
	return &RequestContext{
		RequestID: GetRequestID(ctx),
		SessionID: GetSessionID(ctx),
		Operation: GetOperation(ctx),
		Component: GetComponent(ctx),
		StartTime: GetStartTime(ctx),
	}
}

// GenerateID generates a random request ID
func GenerateID() string {
	return uuid.NewString()
}
