package logging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	testLogger := NewTestLogger()
	var seenRequestID string

	handler := HTTPMiddleware(testLogger.GetLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRequestID = GetRequestID(r.Context())
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("propagates incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seenRequestID)
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
		testLogger.AssertLogged(t, "DEBUG", "HTTP request completed successfully")
	})

	t.Run("generates request id and warns on errors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/missing", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.NotEmpty(t, seenRequestID)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		entries := testLogger.GetEntriesWithMessage("HTTP request completed with error")
		require.Len(t, entries, 1)
		assert.Equal(t, float64(http.StatusNotFound), entries[0].Attrs["status_code"])
	})
}

func TestOperationTimer(t *testing.T) {
	testLogger := NewTestLogger()
	logger := testLogger.GetLogger()

	timer := StartTimer(context.Background(), logger, "list")
	d := timer.End()
	assert.GreaterOrEqual(t, int64(d), int64(0))
	testLogger.AssertLogged(t, "DEBUG", "Operation started")
	testLogger.AssertLogged(t, "DEBUG", "Operation completed")

	timer = StartTimer(WithRequestID(context.Background(), "req-9"), logger, "create")
	timer.EndWithError(errors.New("disk full"))

	failed := testLogger.GetEntriesWithMessage("Operation failed")
	require.Len(t, failed, 1)
	assert.Equal(t, "req-9", failed[0].RequestID)
	assert.Equal(t, "disk full", failed[0].Error)
	assert.Equal(t, "create", failed[0].Operation)
}
