package storage

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/JamesPrial/mcp-fleet/pkg/errors"
)

// MemoryBackend keeps encoded records in a map. Records are stored as JSON
// so every read returns an independent copy, as with the file backends.
type MemoryBackend[T Entity] struct {
	mu      sync.RWMutex
	records map[string][]byte
	backendOptions
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend[T Entity](opts ...BackendOption) *MemoryBackend[T] {
	b := &MemoryBackend[T]{
		records:        make(map[string][]byte),
		backendOptions: newBackendOptions("storage.memory", opts),
	}
	b.logger.Info("Creating memory backend")
	return b
}

func (m *MemoryBackend[T]) Name() string {
	return BackendMemory
}

func (m *MemoryBackend[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string][]byte)
	return nil
}

func (m *MemoryBackend[T]) Create(ctx context.Context, entity T) (_ T, err error) {
	done := m.begin(ctx, BackendMemory, "create")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return entity, err
	}
	id := entity.EntityID()
	if strings.TrimSpace(id) == "" {
		return entity, errors.New(errors.ErrCodeValidationRequired, "Entity ID cannot be empty or whitespace-only")
	}

	data, err := encodeEntity(entity)
	if err != nil {
		return entity, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; exists {
		m.logger.WarnContext(ctx, "Entity already exists", slog.String("entity_id", id))
		return entity, errors.DuplicateID(id)
	}
	m.records[id] = data
	return entity, nil
}

func (m *MemoryBackend[T]) Get(ctx context.Context, id string) (_ *T, err error) {
	done := m.begin(ctx, BackendMemory, "get")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	entity, err := decodeEntity[T](data)
	if err != nil {
		m.corrupt(ctx, BackendMemory, id, err)
		return nil, nil
	}
	return &entity, nil
}

func (m *MemoryBackend[T]) List(ctx context.Context, filter *Filter) (_ []T, err error) {
	done := m.begin(ctx, BackendMemory, "list")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	ids := make([]string, 0, len(m.records))
	snapshot := make(map[string][]byte, len(m.records))
	for id, data := range m.records {
		ids = append(ids, id)
		snapshot[id] = data
	}
	m.mu.RUnlock()
	sort.Strings(ids)

	entities := make([]T, 0, len(ids))
	for _, id := range ids {
		entity, err := decodeEntity[T](snapshot[id])
		if err != nil {
			m.corrupt(ctx, BackendMemory, id, err)
			continue
		}
		entities = append(entities, entity)
	}
	return ApplyFilter(entities, filter, m.policy), nil
}

func (m *MemoryBackend[T]) Update(ctx context.Context, id string, patch map[string]interface{}) (_ *T, err error) {
	done := m.begin(ctx, BackendMemory, "update")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	current, err := decodeEntity[T](data)
	if err != nil {
		m.corrupt(ctx, BackendMemory, id, err)
		return nil, nil
	}

	updated, err := mergePatch(current, patch, m.now())
	if err != nil {
		return nil, err
	}
	encoded, err := encodeEntity(updated)
	if err != nil {
		return nil, err
	}
	m.records[id] = encoded
	return &updated, nil
}

func (m *MemoryBackend[T]) Delete(ctx context.Context, id string) (_ bool, err error) {
	done := m.begin(ctx, BackendMemory, "delete")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

func (m *MemoryBackend[T]) Exists(ctx context.Context, id string) (_ bool, err error) {
	done := m.begin(ctx, BackendMemory, "exists")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[id]
	return ok, nil
}

