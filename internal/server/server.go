// Package server dispatches MCP JSON-RPC methods to a tool handler.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JamesPrial/mcp-fleet/internal/transport"
	"github.com/JamesPrial/mcp-fleet/pkg/errors"
	"github.com/JamesPrial/mcp-fleet/pkg/logging"
	"github.com/JamesPrial/mcp-fleet/pkg/mcp"
)

// ToolHandler is implemented by each MCP tool server
type ToolHandler interface {
	Name() string
	HandleListTools() []mcp.Tool
	HandleCallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
}

// Server answers initialize, ping, tools/list and tools/call for one ToolHandler
type Server struct {
	tools   ToolHandler
	version string
	logger  *slog.Logger
	errLog  *errors.Logger
	metrics *logging.MetricsCollector
}

// New creates a server for tools reporting version in serverInfo
func New(tools ToolHandler, version string) *Server {
	logger := logging.GetGlobalLogger("server." + tools.Name())
	return &Server{
		tools:   tools,
		version: version,
		logger:  logger,
		errLog:  errors.NewLoggerWithSlog(logger),
		metrics: logging.GetGlobalMetricsCollector(),
	}
}

// validateRequest returns an error response when req is not a usable
// JSON-RPC 2.0 request
func validateRequest(req *transport.JSONRPCRequest) *transport.JSONRPCResponse {
	if req == nil {
		return transport.NewInvalidRequestError(nil, "Request cannot be null")
	}
	if req.JSONRPC != transport.JSONRPCVersion {
		return transport.NewInvalidRequestError(req.ID, "Invalid or missing 'jsonrpc' field, must be '2.0'")
	}
	if req.Method == "" {
		return transport.NewInvalidRequestError(req.ID, "Missing or empty 'method' field")
	}
	if !isValidMethodName(req.Method) {
		return transport.NewInvalidRequestError(req.ID, fmt.Sprintf("Invalid method format: '%s'", req.Method))
	}
	return nil
}

// isValidMethodName accepts slash separated lowercase identifiers
func isValidMethodName(method string) bool {
	if len(method) > 100 || strings.Contains(method, "..") || strings.Contains(method, "//") {
		return false
	}
	for _, r := range method {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '/' || r == '_' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}

// isValidToolName accepts letters, digits, underscores and hyphens
func isValidToolName(name string) bool {
	if name == "" || len(name) > 100 {
		return false
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// HandleRequest processes one request. It returns nil for notifications.
func (s *Server) HandleRequest(ctx context.Context, req *transport.JSONRPCRequest) (resp *transport.JSONRPCResponse) {
	if invalid := validateRequest(req); invalid != nil {
		return invalid
	}

	defer func() {
		if r := recover(); r != nil {
			err := s.errLog.LogPanic(ctx, r, req.Method)
			if !req.IsNotification() {
				resp = transport.ToJSONRPCResponse(req.ID, err)
			}
		}
	}()

	if req.IsNotification() {
		s.logger.DebugContext(ctx, "Notification received", slog.String("method", req.Method))
		if !strings.HasPrefix(req.Method, "notifications/") {
			// processed for its effects, the reply is dropped
			s.dispatch(ctx, req)
		}
		return nil
	}
	return s.dispatch(ctx, req)
}

func (s *Server) dispatch(ctx context.Context, req *transport.JSONRPCRequest) *transport.JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return transport.NewResult(req.ID, s.initializeResult())
	case "ping":
		return transport.NewResult(req.ID, map[string]interface{}{})
	case "tools/list":
		return transport.NewResult(req.ID, mcp.ToolsListResult{Tools: s.tools.HandleListTools()})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return transport.NewMethodNotFoundError(req.ID, req.Method)
	}
}

func (s *Server) initializeResult() mcp.InitializeResult {
	return mcp.InitializeResult{
		ProtocolVersion: mcp.ProtocolVersion,
		ServerInfo: mcp.ServerInfo{
			Name:    s.tools.Name(),
			Version: s.version,
		},
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	}
}

// handleToolsCall handles the tools/call method. Tool failures become
// isError results; malformed calls become JSON-RPC errors.
func (s *Server) handleToolsCall(ctx context.Context, req *transport.JSONRPCRequest) *transport.JSONRPCResponse {
	if req.Params == nil {
		return transport.NewInvalidParamsError(req.ID, "Missing 'params' field for tools/call method")
	}

	name, ok := req.Params["name"]
	if !ok {
		return transport.NewInvalidParamsError(req.ID, "Missing 'name' field in params")
	}
	toolName, ok := name.(string)
	if !ok {
		return transport.NewInvalidParamsError(req.ID, "Field 'name' must be a string")
	}
	if !isValidToolName(toolName) {
		return transport.NewInvalidParamsError(req.ID, "Field 'name' contains invalid characters")
	}

	arguments := make(map[string]interface{})
	if args, exists := req.Params["arguments"]; exists && args != nil {
		argsMap, ok := args.(map[string]interface{})
		if !ok {
			return transport.NewInvalidParamsError(req.ID, "Field 'arguments' must be an object")
		}
		arguments = argsMap
	}

	ctx = logging.WithOperation(ctx, toolName)
	start := time.Now()
	result, err := s.tools.HandleCallTool(ctx, toolName, arguments)
	s.metrics.RecordToolCall(s.tools.Name(), toolName, time.Since(start), err)

	if err != nil {
		if errors.Is(err, errors.ErrCodeTransportMethodNotFound) {
			return transport.ToJSONRPCResponse(req.ID, err)
		}
		s.errLog.LogError(ctx, err, toolName)
		return transport.NewResult(req.ID, mcp.ErrorResult(transport.SafeErrorMessage(err)))
	}

	content, err := mcp.TextResult(result)
	if err != nil {
		marshalErr := s.errLog.LogAndWrap(ctx, err, errors.ErrCodeTransportMarshal, "Failed to serialize tool result", toolName)
		return transport.ToJSONRPCResponse(req.ID, marshalErr)
	}
	return transport.NewResult(req.ID, content)
}
