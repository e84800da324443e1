package errors

import (
	"net/http"
	"strings"
)

// HTTPStatusCode returns the appropriate HTTP status code for an error
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return HTTPStatusFromCode(GetCode(err))
}

// HTTPStatusFromCode returns the HTTP status for an error code
func HTTPStatusFromCode(code ErrorCode) int {
	switch code {
	case ErrCodeValidationRequired,
		ErrCodeValidationInvalid,
		ErrCodeValidationFormat,
		ErrCodeValidationRange,
		ErrCodeTransportInvalidJSON,
		ErrCodeTransportInvalidParams:
		return http.StatusBadRequest

	case ErrCodeEntityNotFound,
		ErrCodeStorageNotFound,
		ErrCodeTransportMethodNotFound:
		return http.StatusNotFound

	case ErrCodeEntityAlreadyExists,
		ErrCodeStorageConflict:
		return http.StatusConflict

	case ErrCodeTransportTimeout,
		ErrCodeContextTimeout:
		return http.StatusRequestTimeout

	case ErrCodeInvalidOperation,
		ErrCodeTransportMarshal,
		ErrCodeTransportUnmarshal:
		return http.StatusUnprocessableEntity

	case ErrCodeInternal,
		ErrCodePanic,
		ErrCodeStorageConnection,
		ErrCodeStorageIO,
		ErrCodeStorageCorrupt,
		ErrCodeStorageInitialization,
		ErrCodeConfiguration:
		return http.StatusInternalServerError

	case ErrCodeNotImplemented:
		return http.StatusNotImplemented

	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable

	// 499 Client Closed Request (non-standard but commonly used)
	case ErrCodeContextCanceled:
		return 499

	default:
		codeStr := string(code)
		switch {
		case strings.HasPrefix(codeStr, "VALIDATION_"):
			return http.StatusBadRequest
		case strings.HasPrefix(codeStr, "TRANSPORT_"):
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}
}

// HTTPError represents an HTTP-specific error response
type HTTPError struct {
	Status  int         `json:"status"`
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ToHTTPError converts an error to an HTTP error response
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{Status: http.StatusOK, Message: "OK"}
	}

	appErr, ok := as(err)
	if !ok {
		appErr = Internal(err)
	}

	return HTTPError{
		Status:  HTTPStatusFromCode(appErr.Code),
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
}

// IsClientError returns true if the error is a client error (4xx)
func IsClientError(err error) bool {
	status := HTTPStatusCode(err)
	return status >= 400 && status < 500
}

// IsServerError returns true if the error is a server error (5xx)
func IsServerError(err error) bool {
	status := HTTPStatusCode(err)
	return status >= 500 && status < 600
}
