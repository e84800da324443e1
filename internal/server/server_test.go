package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/mcp-fleet/internal/memry"
	"github.com/JamesPrial/mcp-fleet/internal/storage"
	"github.com/JamesPrial/mcp-fleet/internal/transport"
	"github.com/JamesPrial/mcp-fleet/pkg/errors"
	"github.com/JamesPrial/mcp-fleet/pkg/logging"
	"github.com/JamesPrial/mcp-fleet/pkg/mcp"
)

type mockTools struct {
	mock.Mock
}

func (m *mockTools) Name() string { return "mock" }

func (m *mockTools) HandleListTools() []mcp.Tool {
	args := m.Called()
	return args.Get(0).([]mcp.Tool)
}

func (m *mockTools) HandleCallTool(ctx context.Context, name string, arguments map[string]interface{}) (interface{}, error) {
	args := m.Called(ctx, name, arguments)
	return args.Get(0), args.Error(1)
}

func request(id interface{}, method string, params map[string]interface{}) *transport.JSONRPCRequest {
	return &transport.JSONRPCRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
}

func TestServer_Initialize(t *testing.T) {
	s := New(&mockTools{}, "1.2.3")

	resp := s.HandleRequest(context.Background(), request(1, "initialize", map[string]interface{}{
		"protocolVersion": "2024-11-05",
	}))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result := resp.Result.(mcp.InitializeResult)
	assert.Equal(t, mcp.ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, mcp.ServerInfo{Name: "mock", Version: "1.2.3"}, result.ServerInfo)
	assert.Contains(t, result.Capabilities, "tools")
}

func TestServer_NotificationsAndPing(t *testing.T) {
	s := New(&mockTools{}, "dev")

	assert.Nil(t, s.HandleRequest(context.Background(), request(nil, "notifications/initialized", nil)))

	resp := s.HandleRequest(context.Background(), request("p", "ping", nil))
	require.NotNil(t, resp)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]interface{}{}, resp.Result)
}

func TestServer_RequestsWithoutIDGetNoReply(t *testing.T) {
	tools := &mockTools{}
	s := New(tools, "dev")
	ctx := context.Background()

	tools.On("HandleCallTool", mock.Anything, "record_tool", map[string]interface{}{"a": "b"}).
		Return(map[string]interface{}{"success": true}, nil).Once()
	tools.On("HandleCallTool", mock.Anything, "boom_tool", mock.Anything).
		Run(func(mock.Arguments) { panic("tool exploded") })

	assert.Nil(t, s.HandleRequest(ctx, request(nil, "ping", nil)))
	assert.Nil(t, s.HandleRequest(ctx, request(nil, "resources/list", nil)))
	assert.Nil(t, s.HandleRequest(ctx, request(nil, "tools/call", map[string]interface{}{
		"name": "record_tool", "arguments": map[string]interface{}{"a": "b"},
	})))
	assert.Nil(t, s.HandleRequest(ctx, request(nil, "tools/call", map[string]interface{}{"name": "boom_tool"})))

	// the call still ran even though nothing was returned
	tools.AssertNumberOfCalls(t, "HandleCallTool", 2)
}

func TestServer_InvalidRequests(t *testing.T) {
	s := New(&mockTools{}, "dev")

	tests := []struct {
		name string
		req  *transport.JSONRPCRequest
		code int
	}{
		{"nil request", nil, transport.InvalidRequest},
		{"wrong version", &transport.JSONRPCRequest{JSONRPC: "1.0", ID: 1, Method: "ping"}, transport.InvalidRequest},
		{"empty method", request(1, "", nil), transport.InvalidRequest},
		{"bad method chars", request(1, "tools list!", nil), transport.InvalidRequest},
		{"path traversal", request(1, "tools/../list", nil), transport.InvalidRequest},
		{"unknown method", request(1, "resources/list", nil), transport.MethodNotFound},
		{"call without params", request(1, "tools/call", nil), transport.InvalidParams},
		{"call without name", request(1, "tools/call", map[string]interface{}{}), transport.InvalidParams},
		{"name not string", request(1, "tools/call", map[string]interface{}{"name": 5}), transport.InvalidParams},
		{"name with spaces", request(1, "tools/call", map[string]interface{}{"name": "drop table"}), transport.InvalidParams},
		{"arguments not object", request(1, "tools/call", map[string]interface{}{"name": "x", "arguments": "str"}), transport.InvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.HandleRequest(context.Background(), tt.req)
			require.NotNil(t, resp)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestServer_ToolsCall(t *testing.T) {
	tools := &mockTools{}
	s := New(tools, "dev")
	ctx := context.Background()

	tools.On("HandleCallTool", mock.Anything, "ok_tool", map[string]interface{}{"a": "b"}).
		Return(map[string]interface{}{"success": true}, nil)
	tools.On("HandleCallTool", mock.Anything, "ok_tool", map[string]interface{}{}).
		Return("plain text", nil)
	tools.On("HandleCallTool", mock.Anything, "failing_tool", mock.Anything).
		Return(nil, errors.NotFound("Memory 'm1'"))
	tools.On("HandleCallTool", mock.Anything, "hidden_tool", mock.Anything).
		Return(nil, errors.Wrap(assert.AnError, errors.ErrCodeStorageIO, "Failed to read record"))
	tools.On("HandleCallTool", mock.Anything, "nope", mock.Anything).
		Return(nil, errors.Newf(errors.ErrCodeTransportMethodNotFound, "unknown tool: %s", "nope"))

	resp := s.HandleRequest(ctx, request(1, "tools/call", map[string]interface{}{
		"name": "ok_tool", "arguments": map[string]interface{}{"a": "b"},
	}))
	require.Nil(t, resp.Error)
	result := resp.Result.(*mcp.CallToolResult)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.JSONEq(t, `{"success": true}`, result.Content[0].Text)

	resp = s.HandleRequest(ctx, request(2, "tools/call", map[string]interface{}{"name": "ok_tool", "arguments": nil}))
	require.Nil(t, resp.Error)
	assert.Equal(t, "plain text", resp.Result.(*mcp.CallToolResult).Content[0].Text)

	resp = s.HandleRequest(ctx, request(3, "tools/call", map[string]interface{}{"name": "failing_tool"}))
	require.Nil(t, resp.Error)
	result = resp.Result.(*mcp.CallToolResult)
	assert.True(t, result.IsError)
	assert.Equal(t, "Memory 'm1' not found", result.Content[0].Text)

	resp = s.HandleRequest(ctx, request(4, "tools/call", map[string]interface{}{"name": "hidden_tool"}))
	result = resp.Result.(*mcp.CallToolResult)
	assert.True(t, result.IsError)
	assert.Equal(t, "Failed to read record", result.Content[0].Text)

	resp = s.HandleRequest(ctx, request(5, "tools/call", map[string]interface{}{"name": "nope"}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, transport.MethodNotFound, resp.Error.Code)

	tools.AssertExpectations(t)
}

func TestServer_RecoversFromPanic(t *testing.T) {
	tools := &mockTools{}
	tools.On("HandleListTools").Run(func(mock.Arguments) { panic("boom") }).Return([]mcp.Tool(nil))
	s := New(tools, "dev")

	resp := s.HandleRequest(context.Background(), request(1, "tools/list", nil))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, transport.InternalError, resp.Error.Code)
	assert.Equal(t, 1, resp.ID)
}

func TestServer_MemryEndToEnd(t *testing.T) {
	backend, err := storage.NewJSONFileBackend[memry.Memory](t.TempDir(),
		storage.WithLogger(logging.NewTestLogger().GetLogger()))
	require.NoError(t, err)
	s := New(memry.NewManager(storage.NewEntityStorage[memry.Memory](backend)), "dev")
	ctx := context.Background()

	resp := s.HandleRequest(ctx, request(1, "tools/list", nil))
	require.Nil(t, resp.Error)
	assert.Len(t, resp.Result.(mcp.ToolsListResult).Tools, 7)

	resp = s.HandleRequest(ctx, request(2, "tools/call", map[string]interface{}{
		"name": "create_memory",
		"arguments": map[string]interface{}{
			"title": "Fleet notes", "content": "Storage is generic", "tags": []interface{}{"go"},
		},
	}))
	require.Nil(t, resp.Error)
	result := resp.Result.(*mcp.CallToolResult)
	require.False(t, result.IsError, result.Content[0].Text)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &created))
	assert.Equal(t, true, created["success"])
	assert.NotEmpty(t, created["id"])

	resp = s.HandleRequest(ctx, request(3, "tools/call", map[string]interface{}{
		"name": "create_memory", "arguments": map[string]interface{}{"content": "no title"},
	}))
	require.Nil(t, resp.Error)
	assert.True(t, resp.Result.(*mcp.CallToolResult).IsError)
}
