package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/JamesPrial/mcp-fleet/pkg/errors"
	"github.com/JamesPrial/mcp-fleet/pkg/logging"
)

// Backend persists one entity type. Missing records are reported as nil
// or false, never as errors.
type Backend[T Entity] interface {
	Create(ctx context.Context, entity T) (T, error)
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, filter *Filter) ([]T, error)
	Update(ctx context.Context, id string, patch map[string]interface{}) (*T, error)
	Delete(ctx context.Context, id string) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	Name() string
	Close() error
}

// Backend type names
const (
	BackendJSONFile = "json_file"
	BackendMemory   = "memory"
	BackendSqlite   = "sqlite"
)

// BackendOption configures a backend.
type BackendOption func(*backendOptions)

type backendOptions struct {
	logger  *slog.Logger
	metrics *logging.MetricsCollector
	policy  AttributePolicy
	backup  bool
	now     func() time.Time
}

func newBackendOptions(component string, opts []BackendOption) backendOptions {
	o := backendOptions{
		policy: MissingAttributePolicy,
		now:    CurrentTimestamp,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.GetGlobalLogger(component)
	}
	if o.metrics == nil {
		o.metrics = logging.GetGlobalMetricsCollector()
	}
	return o
}

// WithLogger sets the backend logger.
func WithLogger(logger *slog.Logger) BackendOption {
	return func(o *backendOptions) { o.logger = logger }
}

// WithMetrics sets the collector that records storage operations.
func WithMetrics(mc *logging.MetricsCollector) BackendOption {
	return func(o *backendOptions) { o.metrics = mc }
}

// WithMissingAttributePolicy overrides MissingAttributePolicy.
func WithMissingAttributePolicy(policy AttributePolicy) BackendOption {
	return func(o *backendOptions) { o.policy = policy }
}

// WithBackup keeps the previous version of a record before it is
// overwritten or deleted. Only the JSON file backend supports it.
func WithBackup(enabled bool) BackendOption {
	return func(o *backendOptions) { o.backup = enabled }
}

// WithClock replaces the clock used to stamp updated_at.
func WithClock(now func() time.Time) BackendOption {
	return func(o *backendOptions) { o.now = now }
}

// begin starts timing op and returns the function that records its outcome.
func (o *backendOptions) begin(ctx context.Context, backend, op string) func(error) {
	timer := logging.StartTimer(ctx, o.logger, op)
	return func(err error) {
		duration := timer.EndWithError(err)
		o.metrics.RecordStorageOperation(backend, op, duration, err)
	}
}

// corrupt logs and counts a record that could not be decoded.
func (o *backendOptions) corrupt(ctx context.Context, backend, id string, err error) {
	o.logger.WarnContext(ctx, "Skipping corrupt record",
		slog.String("entity_id", id),
		slog.String("error", err.Error()),
	)
	o.metrics.RecordCorruptRecord(backend)
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Canceled(err)
	}
	return nil
}
