package logging

import (
	"context"
	"log/slog"
)

// LevelHandler gates records below a component's level before they reach
// the shared handler. The level is a LevelVar so it can change at runtime
// without rebuilding loggers that were already handed out.
type LevelHandler struct {
	level   *slog.LevelVar
	handler slog.Handler
}

// NewLevelHandler wraps handler with a dynamic minimum level
func NewLevelHandler(handler slog.Handler, level *slog.LevelVar) *LevelHandler {
	if h, ok := handler.(*LevelHandler); ok {
		handler = h.handler
	}
	return &LevelHandler{level: level, handler: handler}
}

// Enabled implements slog.Handler
func (h *LevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *LevelHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.handler.Handle(ctx, record)
}

// WithAttrs implements slog.Handler
func (h *LevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler
func (h *LevelHandler) WithGroup(name string) slog.Handler {
	return &LevelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}

// Level returns the current minimum level
func (h *LevelHandler) Level() slog.Level {
	return h.level.Level()
}
