package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JamesPrial/mcp-fleet/pkg/logging"
)

// DefaultIDField is the field that carries an entity's ID.
const DefaultIDField = "id"

// Stats summarizes the contents of an EntityStorage.
type Stats struct {
	TotalCount  int    `json:"total_count"`
	EntityType  string `json:"entity_type"`
	BackendType string `json:"backend_type"`
}

// StorageOption configures an EntityStorage.
type StorageOption func(*storageOptions)

type storageOptions struct {
	idField    string
	entityType string
	generateID IDGenerator
	logger     *slog.Logger
	now        func() time.Time
}

// WithIDGenerator replaces DefaultIDGenerator.
func WithIDGenerator(gen IDGenerator) StorageOption {
	return func(o *storageOptions) { o.generateID = gen }
}

// WithIDField overrides DefaultIDField.
func WithIDField(field string) StorageOption {
	return func(o *storageOptions) { o.idField = field }
}

// WithEntityType names the entity type reported by GetStats.
func WithEntityType(name string) StorageOption {
	return func(o *storageOptions) { o.entityType = name }
}

// WithStorageLogger sets the logger.
func WithStorageLogger(logger *slog.Logger) StorageOption {
	return func(o *storageOptions) { o.logger = logger }
}

// EntityStorage assigns IDs and builds typed entities from raw input on
// top of a Backend. Every other operation passes straight through.
type EntityStorage[T Entity] struct {
	backend Backend[T]
	opts    storageOptions
}

// NewEntityStorage wraps backend.
func NewEntityStorage[T Entity](backend Backend[T], opts ...StorageOption) *EntityStorage[T] {
	o := storageOptions{
		idField:    DefaultIDField,
		entityType: typeName[T](),
		generateID: DefaultIDGenerator,
		now:        CurrentTimestamp,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.GetGlobalLogger("storage")
	}
	return &EntityStorage[T]{backend: backend, opts: o}
}

func typeName[T any]() string {
	var zero T
	name := fmt.Sprintf("%T", zero)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Backend returns the underlying backend.
func (s *EntityStorage[T]) Backend() Backend[T] {
	return s.backend
}

// EntityType returns the configured entity type name.
func (s *EntityStorage[T]) EntityType() string {
	return s.opts.entityType
}

// Create builds an entity from input (a struct or field map), generating
// an ID when the ID field is missing or empty, and persists it.
func (s *EntityStorage[T]) Create(ctx context.Context, input interface{}) (T, error) {
	var zero T
	fields, err := toFieldMap(input)
	if err != nil {
		return zero, err
	}
	if isEmptyValue(fields[s.opts.idField]) {
		fields[s.opts.idField] = s.opts.generateID()
	}

	entity, err := fromFieldMap[T](fields)
	if err != nil {
		return zero, err
	}
	if d, ok := any(&entity).(Defaulter); ok {
		d.SetDefaults(s.opts.now())
	}
	if err := validateEntity(entity); err != nil {
		return zero, err
	}

	created, err := s.backend.Create(ctx, entity)
	if err != nil {
		return zero, err
	}
	s.opts.logger.DebugContext(ctx, "Entity created",
		slog.String("entity_type", s.opts.entityType),
		slog.String("entity_id", created.EntityID()),
	)
	return created, nil
}

// isEmptyValue reports whether v counts as "no ID supplied".
func isEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	case float64:
		return val == 0
	}
	return false
}

func (s *EntityStorage[T]) Get(ctx context.Context, id string) (*T, error) {
	return s.backend.Get(ctx, id)
}

func (s *EntityStorage[T]) List(ctx context.Context, filter *Filter) ([]T, error) {
	return s.backend.List(ctx, filter)
}

func (s *EntityStorage[T]) Update(ctx context.Context, id string, patch map[string]interface{}) (*T, error) {
	return s.backend.Update(ctx, id, patch)
}

func (s *EntityStorage[T]) Delete(ctx context.Context, id string) (bool, error) {
	return s.backend.Delete(ctx, id)
}

func (s *EntityStorage[T]) Exists(ctx context.Context, id string) (bool, error) {
	return s.backend.Exists(ctx, id)
}

// GetStats counts entities with a full List.
func (s *EntityStorage[T]) GetStats(ctx context.Context) (*Stats, error) {
	entities, err := s.backend.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalCount:  len(entities),
		EntityType:  s.opts.entityType,
		BackendType: s.backend.Name(),
	}, nil
}

// Close releases the backend.
func (s *EntityStorage[T]) Close() error {
	return s.backend.Close()
}
