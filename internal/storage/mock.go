package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a testify mock of Backend for tool handler tests.
type MockBackend[T Entity] struct {
	mock.Mock
}

func (m *MockBackend[T]) Create(ctx context.Context, entity T) (T, error) {
	args := m.Called(ctx, entity)
	if args.Get(0) == nil {
		return entity, args.Error(1)
	}
	return args.Get(0).(T), args.Error(1)
}

func (m *MockBackend[T]) Get(ctx context.Context, id string) (*T, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockBackend[T]) List(ctx context.Context, filter *Filter) ([]T, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *MockBackend[T]) Update(ctx context.Context, id string, patch map[string]interface{}) (*T, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockBackend[T]) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend[T]) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend[T]) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockBackend[T]) Close() error {
	args := m.Called()
	return args.Error(0)
}
