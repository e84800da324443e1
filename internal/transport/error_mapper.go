package transport

import (
	"net/http"

	"github.com/JamesPrial/mcp-fleet/pkg/errors"
	"github.com/JamesPrial/mcp-fleet/pkg/mcp"
)

// Application error codes in the JSON-RPC server-defined range
const (
	AppNotFound      = -32001
	AppAlreadyExists = -32002
	AppConflict      = -32003
	AppGeneric       = -32000
)

// ToJSONRPCError maps internal AppError codes to JSON-RPC error codes
func ToJSONRPCError(err error) mcp.Error {
	if err == nil {
		return mcp.Error{}
	}

	code := errors.GetCode(err)

	var jsonRPCCode int
	switch code {
	case errors.ErrCodeTransportMethodNotFound, errors.ErrCodeNotImplemented:
		jsonRPCCode = MethodNotFound
	case errors.ErrCodeTransportInvalidParams,
		errors.ErrCodeValidationRequired, errors.ErrCodeValidationInvalid,
		errors.ErrCodeValidationFormat, errors.ErrCodeValidationRange:
		jsonRPCCode = InvalidParams
	case errors.ErrCodeTransportInvalidJSON, errors.ErrCodeTransportMarshal, errors.ErrCodeTransportUnmarshal:
		jsonRPCCode = ParseError

	case errors.ErrCodeInternal, errors.ErrCodePanic, errors.ErrCodeTransportTimeout,
		errors.ErrCodeContextCanceled, errors.ErrCodeContextTimeout,
		errors.ErrCodeServiceUnavailable, errors.ErrCodeConfiguration,
		errors.ErrCodeStorageConnection, errors.ErrCodeStorageIO,
		errors.ErrCodeStorageCorrupt, errors.ErrCodeStorageInitialization:
		jsonRPCCode = InternalError

	case errors.ErrCodeEntityNotFound, errors.ErrCodeStorageNotFound:
		jsonRPCCode = AppNotFound
	case errors.ErrCodeEntityAlreadyExists:
		jsonRPCCode = AppAlreadyExists
	case errors.ErrCodeInvalidOperation, errors.ErrCodeStorageConflict:
		jsonRPCCode = AppConflict
	default:
		jsonRPCCode = AppGeneric
	}

	return mcp.Error{
		Code:    jsonRPCCode,
		Message: SafeErrorMessage(err),
		Data:    map[string]interface{}{"error_code": string(code)},
	}
}

// ToJSONRPCResponse creates a complete JSONRPCResponse with error
func ToJSONRPCResponse(id interface{}, err error) *JSONRPCResponse {
	if err == nil {
		return NewResult(id, map[string]interface{}{"success": true})
	}

	mcpError := ToJSONRPCError(err)
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    mcpError.Code,
			Message: mcpError.Message,
			Data:    mcpError.Data,
		},
	}
}

// statusForCode maps error codes to HTTP status codes.
// Transport-level failures get HTTP error codes; application errors are
// reported with HTTP 200 and the JSON-RPC error in the body.
func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeTransportInvalidJSON, errors.ErrCodeTransportMarshal, errors.ErrCodeTransportUnmarshal:
		return http.StatusBadRequest
	case errors.ErrCodeTransportTimeout:
		return http.StatusRequestTimeout
	case errors.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodePanic, errors.ErrCodeConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// responseStatus picks the HTTP status for a handled request
func responseStatus(resp *JSONRPCResponse) int {
	if resp == nil || resp.Error == nil {
		return http.StatusOK
	}
	if data, ok := resp.Error.Data.(map[string]interface{}); ok {
		if code, ok := data["error_code"].(string); ok {
			return statusForCode(errors.ErrorCode(code))
		}
	}
	return http.StatusOK
}

// CreateFallbackErrorResponse creates a safe fallback error response for critical failures
func CreateFallbackErrorResponse(id interface{}, message string) *JSONRPCResponse {
	if message == "" {
		message = "An unexpected error occurred"
	}

	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    InternalError,
			Message: message,
			Data:    map[string]interface{}{"error_code": "FALLBACK_ERROR"},
		},
	}
}

// SafeErrorMessage returns a client-safe error message. Internal causes
// stay in the logs.
func SafeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if message := errors.GetMessage(err); message != "" {
		return message
	}
	return "An internal error occurred"
}
