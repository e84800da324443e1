package logging

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector provides performance metrics collection using Prometheus.
// All methods are safe to call on a nil collector.
type MetricsCollector struct {
	// Request metrics
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Tool metrics
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec

	// Storage metrics
	storageOperations *prometheus.CounterVec
	storageLatency    *prometheus.HistogramVec
	storageCorrupt    *prometheus.CounterVec

	registry *prometheus.Registry
	config   MetricsConfig
}

// MetricsConfig defines configuration for metrics collection
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	Path          string `yaml:"path,omitempty" json:"path,omitempty"`
	Namespace     string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Subsystem     string `yaml:"subsystem,omitempty" json:"subsystem,omitempty"`
	EnableRuntime bool   `yaml:"enableRuntime" json:"enableRuntime"`
}

// DefaultMetricsConfig returns default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:       true,
		Path:          "/metrics",
		Namespace:     "mcp_fleet",
		EnableRuntime: true,
	}
}

// NewMetricsCollector creates a collector backed by a private registry
func NewMetricsCollector(config MetricsConfig) *MetricsCollector {
	if !config.Enabled {
		return nil
	}

	registry := prometheus.NewRegistry()
	mc := &MetricsCollector{
		registry: registry,
		config:   config,
	}
	mc.initializeMetrics()

	registry.MustRegister(
		mc.requestCounter,
		mc.requestDuration,
		mc.toolCalls,
		mc.toolDuration,
		mc.storageOperations,
		mc.storageLatency,
		mc.storageCorrupt,
	)

	if config.EnableRuntime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return mc
}

// initializeMetrics initializes all Prometheus metrics
func (mc *MetricsCollector) initializeMetrics() {
	ns, sub := mc.config.Namespace, mc.config.Subsystem

	mc.requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "rpc_requests_total",
			Help:      "Total number of JSON-RPC requests",
		},
		[]string{"transport", "method", "status"},
	)

	mc.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "rpc_request_duration_seconds",
			Help:      "Duration of JSON-RPC requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"transport", "method"},
	)

	mc.toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "tool_calls_total",
			Help:      "Total number of MCP tool calls",
		},
		[]string{"server", "tool", "status"},
	)

	mc.toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of MCP tool calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "tool"},
	)

	mc.storageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "storage_operations_total",
			Help:      "Total number of storage backend operations",
		},
		[]string{"backend", "operation", "status"},
	)

	mc.storageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "storage_operation_duration_seconds",
			Help:      "Duration of storage backend operations in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"backend", "operation"},
	)

	mc.storageCorrupt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "storage_corrupt_records_total",
			Help:      "Stored records skipped because they could not be decoded",
		},
		[]string{"backend"},
	)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordRequest records a JSON-RPC request
func (mc *MetricsCollector) RecordRequest(transport, method string, duration time.Duration, err error) {
	if mc == nil {
		return
	}
	mc.requestCounter.WithLabelValues(transport, method, status(err)).Inc()
	mc.requestDuration.WithLabelValues(transport, method).Observe(duration.Seconds())
}

// RecordToolCall records an MCP tool invocation
func (mc *MetricsCollector) RecordToolCall(server, tool string, duration time.Duration, err error) {
	if mc == nil {
		return
	}
	mc.toolCalls.WithLabelValues(server, tool, status(err)).Inc()
	mc.toolDuration.WithLabelValues(server, tool).Observe(duration.Seconds())
}

// RecordStorageOperation records a storage backend operation
func (mc *MetricsCollector) RecordStorageOperation(backend, operation string, duration time.Duration, err error) {
	if mc == nil {
		return
	}
	mc.storageOperations.WithLabelValues(backend, operation, status(err)).Inc()
	mc.storageLatency.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordCorruptRecord counts a stored record that failed to decode
func (mc *MetricsCollector) RecordCorruptRecord(backend string) {
	if mc == nil {
		return
	}
	mc.storageCorrupt.WithLabelValues(backend).Inc()
}

// Registry exposes the underlying registry for tests and custom collectors
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	return mc.registry
}

// Path returns the configured scrape path
func (mc *MetricsCollector) Path() string {
	if mc == nil || mc.config.Path == "" {
		return "/metrics"
	}
	return mc.config.Path
}

// GetHTTPHandler returns the HTTP handler for metrics endpoint
func (mc *MetricsCollector) GetHTTPHandler() http.Handler {
	if mc == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
