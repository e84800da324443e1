package logging

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetSessionID(ctx))
	assert.Empty(t, GetOperation(ctx))
	assert.Empty(t, GetComponent(ctx))
	assert.True(t, GetStartTime(ctx).IsZero())
	assert.Zero(t, GetDuration(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithOperation(ctx, "create_memory")
	ctx = WithComponent(ctx, "memry")

	rc := ExtractRequestContext(ctx)
	assert.Equal(t, "req-1", rc.RequestID)
	assert.Equal(t, "sess-1", rc.SessionID)
	assert.Equal(t, "create_memory", rc.Operation)
	assert.Equal(t, "memry", rc.Component)
}

func TestNewRequestContext(t *testing.T) {
	ctx := NewRequestContext(context.Background(), "tools/list")

	_, err := uuid.Parse(GetRequestID(ctx))
	assert.NoError(t, err)
	assert.Equal(t, "tools/list", GetOperation(ctx))
	assert.WithinDuration(t, time.Now(), GetStartTime(ctx), time.Second)

	preserved := NewRequestContext(WithRequestID(context.Background(), "keep-me"), "ping")
	assert.Equal(t, "keep-me", GetRequestID(preserved))
}

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
