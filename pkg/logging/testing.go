package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestLogger captures logs for testing and verification
type TestLogger struct {
	mu      sync.Mutex
	entries []TestLogEntry
	buffer  *syncBuffer
}

// TestLogEntry represents a captured log entry
type TestLogEntry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	RequestID string
	Operation string
	Error     string
	Attrs     map[string]interface{}
}

// syncBuffer lets handlers cloned through With share one buffer safely.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) drain() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	b.buf.Reset()
	return s
}

// NewTestLogger creates a new test logger that captures log output
func NewTestLogger() *TestLogger {
	return &TestLogger{buffer: &syncBuffer{}}
}

// GetHandler returns a slog.Handler that writes to this test logger
func (tl *TestLogger) GetHandler() slog.Handler {
	return slog.NewJSONHandler(tl.buffer, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// GetLogger returns a slog.Logger that writes to this test logger
func (tl *TestLogger) GetLogger() *slog.Logger {
	return slog.New(tl.GetHandler())
}

// GetEntries returns all captured log entries
func (tl *TestLogger) GetEntries() []TestLogEntry {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.parseBuffer()
	entries := make([]TestLogEntry, len(tl.entries))
	copy(entries, tl.entries)
	return entries
}

// GetEntriesWithLevel returns log entries matching the specified level
func (tl *TestLogger) GetEntriesWithLevel(level string) []TestLogEntry {
	var filtered []TestLogEntry
	for _, entry := range tl.GetEntries() {
		if strings.EqualFold(entry.Level, level) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// GetEntriesWithMessage returns log entries containing the specified message
func (tl *TestLogger) GetEntriesWithMessage(message string) []TestLogEntry {
	var filtered []TestLogEntry
	for _, entry := range tl.GetEntries() {
		if strings.Contains(entry.Message, message) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// GetEntriesWithComponent returns log entries matching the specified component
func (tl *TestLogger) GetEntriesWithComponent(component string) []TestLogEntry {
	var filtered []TestLogEntry
	for _, entry := range tl.GetEntries() {
		if entry.Component == component {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// parseBuffer moves newly written JSON lines into entries. Callers hold tl.mu.
func (tl *TestLogger) parseBuffer() {
	content := tl.buffer.drain()
	if content == "" {
		return
	}

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		if line == "" {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}

		entry := TestLogEntry{Attrs: make(map[string]interface{})}
		if ts, ok := raw["time"].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				entry.Time = t
			}
		}
		entry.Level, _ = raw["level"].(string)
		entry.Message, _ = raw["msg"].(string)
		entry.Component, _ = raw["component"].(string)
		entry.RequestID, _ = raw["request_id"].(string)
		entry.Operation, _ = raw["operation"].(string)
		entry.Error, _ = raw["error"].(string)

		for key, value := range raw {
			if !isStandardField(key) {
				entry.Attrs[key] = value
			}
		}
		tl.entries = append(tl.entries, entry)
	}
}

func isStandardField(field string) bool {
	switch field {
	case "time", "level", "msg", "component", "request_id", "operation", "error":
		return true
	}
	return false
}

// Clear resets all captured entries and buffer
func (tl *TestLogger) Clear() {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.entries = tl.entries[:0]
	tl.buffer.drain()
}

// Count returns the total number of captured entries
func (tl *TestLogger) Count() int {
	return len(tl.GetEntries())
}

// AssertLogged verifies that a log entry with the specified level and message was captured
func (tl *TestLogger) AssertLogged(t *testing.T, level, message string) {
	t.Helper()

	entries := tl.GetEntries()
	for _, entry := range entries {
		if strings.EqualFold(entry.Level, level) && strings.Contains(entry.Message, message) {
			return
		}
	}

	t.Errorf("Expected log entry with level=%s message=%s not found. Captured entries:", level, message)
	for i, entry := range entries {
		t.Errorf("  [%d] %s: %s", i, entry.Level, entry.Message)
	}
}

// AssertNotLogged verifies that no log entry with the specified level and message was captured
func (tl *TestLogger) AssertNotLogged(t *testing.T, level, message string) {
	t.Helper()

	for _, entry := range tl.GetEntries() {
		if strings.EqualFold(entry.Level, level) && strings.Contains(entry.Message, message) {
			t.Errorf("Unexpected log entry found with level=%s message=%s", level, message)
			return
		}
	}
}

// CreateTestFactory returns a factory whose loggers all write to a TestLogger
func CreateTestFactory(config *Config) (*Factory, *TestLogger, error) {
	if config == nil {
		config = DefaultConfig()
		config.Level = LogLevelDebug
		config.Metrics.Enabled = false
	}
	testLogger := NewTestLogger()
	factory, err := NewFactoryWithHandler(config, testLogger.GetHandler())
	if err != nil {
		return nil, nil, err
	}
	return factory, testLogger, nil
}
