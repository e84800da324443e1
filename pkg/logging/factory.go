package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Factory creates and manages loggers for different components
type Factory struct {
	config  *Config
	loggers map[string]*slog.Logger
	levels  map[string]*slog.LevelVar
	mu      sync.RWMutex

	handler          slog.Handler
	closer           io.Closer
	metricsCollector *MetricsCollector
}

// NewFactory creates a new logger factory
func NewFactory(config *Config) (*Factory, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	f := &Factory{
		config:  config,
		loggers: make(map[string]*slog.Logger),
		levels:  make(map[string]*slog.LevelVar),
	}

	writer, err := f.openWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize handler: %w", err)
	}
	f.handler = newHandler(writer, config)

	if config.Metrics.Enabled {
		f.metricsCollector = NewMetricsCollector(config.Metrics)
	}

	return f, nil
}

// NewFactoryWithHandler creates a factory that writes to an existing handler
func NewFactoryWithHandler(config *Config, handler slog.Handler) (*Factory, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	f := &Factory{
		config:  config,
		loggers: make(map[string]*slog.Logger),
		levels:  make(map[string]*slog.LevelVar),
		handler: handler,
	}
	if config.Metrics.Enabled {
		f.metricsCollector = NewMetricsCollector(config.Metrics)
	}
	return f, nil
}

func (f *Factory) openWriter() (io.Writer, error) {
	switch f.config.Output {
	case LogOutputStdout:
		return os.Stdout, nil
	case LogOutputFile:
		file, err := os.OpenFile(f.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		f.closer = file
		return file, nil
	default:
		return os.Stderr, nil
	}
}

// newHandler builds the shared base handler. It admits everything down to
// debug; per-component gating happens in LevelHandler.
func newHandler(w io.Writer, config *Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: config.EnableCaller,
	}
	if config.Format == LogFormatText {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// GetLogger returns a logger for a specific component
func (f *Factory) GetLogger(component string) *slog.Logger {
	f.mu.RLock()
	if logger, exists := f.loggers[component]; exists {
		f.mu.RUnlock()
		return logger
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring write lock
	if logger, exists := f.loggers[component]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(f.config.GetLevelForComponent(component).SlogLevel())
	f.levels[component] = levelVar

	logger := slog.New(NewLevelHandler(f.handler, levelVar)).With(
		slog.String("component", component),
	)
	f.loggers[component] = logger
	return logger
}

// GetMetricsCollector returns the metrics collector, nil when disabled
func (f *Factory) GetMetricsCollector() *MetricsCollector {
	return f.metricsCollector
}

// WithContext adds request metadata from ctx to logger
func (f *Factory) WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = f.GetLogger("default")
	}
	return WithContextAttrs(ctx, logger)
}

// WithContextAttrs adds request_id and operation from ctx to logger
func WithContextAttrs(ctx context.Context, logger *slog.Logger) *slog.Logger {
	args := make([]any, 0, 4)
	if reqID := GetRequestID(ctx); reqID != "" {
		args = append(args, slog.String("request_id", reqID))
	}
	if operation := GetOperation(ctx); operation != "" {
		args = append(args, slog.String("operation", operation))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}

// UpdateLevel changes the level of a component. Loggers already handed out
// for that component pick up the change immediately.
func (f *Factory) UpdateLevel(component string, level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch component {
	case "", "default":
		f.config.Level = level
	default:
		if f.config.ComponentLevels == nil {
			f.config.ComponentLevels = make(map[string]LogLevel)
		}
		f.config.ComponentLevels[component] = level
	}

	for name, levelVar := range f.levels {
		levelVar.Set(f.config.GetLevelForComponent(name).SlogLevel())
	}
}

// Levels returns the effective level of every component seen so far
func (f *Factory) Levels() map[string]LogLevel {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.levels))
	for name := range f.levels {
		names = append(names, name)
	}
	sort.Strings(names)

	levels := make(map[string]LogLevel, len(names)+1)
	levels["default"] = f.config.Level
	for _, name := range names {
		levels[name] = f.config.GetLevelForComponent(name)
	}
	return levels
}

// Close closes all resources
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closer != nil {
		if err := f.closer.Close(); err != nil {
			return fmt.Errorf("failed to close log output: %w", err)
		}
		f.closer = nil
	}
	return nil
}

// Global factory instance
var (
	globalFactory *Factory
	globalMu      sync.RWMutex
)

// Initialize sets up the global logger factory
func Initialize(config *Config) error {
	factory, err := NewFactory(config)
	if err != nil {
		return err
	}
	return SetGlobalFactory(factory)
}

// SetGlobalFactory replaces the global factory, closing the previous one
func SetGlobalFactory(factory *Factory) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalFactory != nil {
		if err := globalFactory.Close(); err != nil {
			return fmt.Errorf("failed to close existing factory: %w", err)
		}
	}
	globalFactory = factory
	return nil
}

// GetGlobalFactory returns the global factory, nil if not initialized
func GetGlobalFactory() *Factory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// GetGlobalLogger returns a logger from the global factory
func GetGlobalLogger(component string) *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return slog.Default().With(slog.String("component", component))
	}
	return globalFactory.GetLogger(component)
}

// GetGlobalMetricsCollector returns the global metrics collector
func GetGlobalMetricsCollector() *MetricsCollector {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetMetricsCollector()
}

// UpdateGlobalLevel dynamically updates the log level for a component
func UpdateGlobalLevel(component string, level LogLevel) {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return
	}
	globalFactory.UpdateLevel(component, level)
}

// Shutdown gracefully shuts down the global logging factory
func Shutdown() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalFactory == nil {
		return nil
	}
	err := globalFactory.Close()
	globalFactory = nil
	return err
}
