package transport

import (
	"context"
	"encoding/json"
)

// JSONRPCVersion is the only protocol version accepted
const JSONRPCVersion = "2.0"

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      interface{}            `json:"id,omitempty"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response. Any
// request without an id is a notification, whatever its method.
func (r *JSONRPCRequest) IsNotification() bool {
	return r.ID == nil
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RequestHandler handles one JSON-RPC request. A nil response means the
// request was a notification and nothing is written back.
type RequestHandler func(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse

// Transport defines the interface for different transport mechanisms
type Transport interface {
	// Start serves requests until ctx is canceled or input ends
	Start(ctx context.Context, handler RequestHandler) error

	// Stop gracefully shuts down the transport
	Stop(ctx context.Context) error

	// Name returns the name of the transport
	Name() string
}

// Session represents an HTTP client session
type Session struct {
	ID           string
	Transport    string
	CreatedAt    int64
	LastActivity int64
}

// Common JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// NewResult creates a successful response
func NewResult(id interface{}, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// NewParseError creates a parse error response
func NewParseError() *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      nil,
		Error: &JSONRPCError{
			Code:    ParseError,
			Message: "Parse error",
			Data:    "Invalid JSON format",
		},
	}
}

// NewInvalidRequestError creates an invalid request error response
func NewInvalidRequestError(id interface{}, data string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    InvalidRequest,
			Message: "Invalid Request",
			Data:    data,
		},
	}
}

// NewInvalidParamsError creates an invalid params error response
func NewInvalidParamsError(id interface{}, data string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    InvalidParams,
			Message: "Invalid params",
			Data:    data,
		},
	}
}

// NewMethodNotFoundError creates a method not found error response
func NewMethodNotFoundError(id interface{}, method string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    MethodNotFound,
			Message: "Method not found",
			Data:    "Method '" + method + "' is not supported",
		},
	}
}

// ParseRequest parses a JSON byte array into a JSONRPCRequest
func ParseRequest(data []byte) (*JSONRPCRequest, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
