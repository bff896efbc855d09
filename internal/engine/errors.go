package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// BoundaryError defines the interface for errors raised at the engine boundary
type BoundaryError interface {
	error
	Code() string    // Error code for categorization
	Message() string // Human-readable error message
	Temporary() bool // Whether the error is temporary and retryable
}

// APIError represents an error response from an inference backend
type APIError struct {
	HTTPStatus int    `json:"http_status"`
	ErrorCode  string `json:"error_code"`
	ErrorMsg   string `json:"error_message"`
	Details    string `json:"details"`
	Retryable  bool   `json:"retryable"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s - %s", e.HTTPStatus, e.ErrorCode, e.ErrorMsg)
}

func (e APIError) Code() string {
	return e.ErrorCode
}

func (e APIError) Message() string {
	return e.ErrorMsg
}

func (e APIError) Temporary() bool {
	return e.Retryable
}

// NetworkError represents connection and timeout issues
type NetworkError struct {
	Operation string `json:"operation"`
	ErrorMsg  string `json:"error_message"`
	Wrapped   error  `json:"-"`
}

func (e NetworkError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("network error during %s: %s (wrapped: %v)", e.Operation, e.ErrorMsg, e.Wrapped)
	}
	return fmt.Sprintf("network error during %s: %s", e.Operation, e.ErrorMsg)
}

func (e NetworkError) Code() string {
	return ErrorCodeNetwork
}

func (e NetworkError) Message() string {
	return e.ErrorMsg
}

func (e NetworkError) Temporary() bool {
	return true
}

func (e NetworkError) Unwrap() error {
	return e.Wrapped
}

// ConfigurationError represents invalid configuration
type ConfigurationError struct {
	Field    string `json:"field"`
	ErrorMsg string `json:"error_message"`
	Details  string `json:"details"`
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for field '%s': %s", e.Field, e.ErrorMsg)
}

func (e ConfigurationError) Code() string {
	return ErrorCodeConfiguration
}

func (e ConfigurationError) Message() string {
	return e.ErrorMsg
}

func (e ConfigurationError) Temporary() bool {
	return false
}

// EngineInitError reports that an engine could not be constructed.
// It is never cached: the next EnsureEngine call retries construction.
type EngineInitError struct {
	ModelID string
	Cause   error
}

func (e *EngineInitError) Error() string {
	return fmt.Sprintf("engine initialization failed for model %s: %v", e.ModelID, e.Cause)
}

func (e *EngineInitError) Unwrap() error {
	return e.Cause
}

func (e *EngineInitError) Code() string {
	return ErrorCodeEngineInit
}

func (e *EngineInitError) Message() string {
	return "engine initialization failed"
}

// Temporary reports true: a later attempt rebuilds the engine from scratch
func (e *EngineInitError) Temporary() bool {
	return true
}

// NewAPIError creates a new API error with appropriate retry logic
func NewAPIError(httpStatus int, errorCode, message, details string) APIError {
	return APIError{
		HTTPStatus: httpStatus,
		ErrorCode:  errorCode,
		ErrorMsg:   message,
		Details:    details,
		Retryable:  isRetryableHTTPStatus(httpStatus),
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(operation, message string, wrapped error) NetworkError {
	return NetworkError{
		Operation: operation,
		ErrorMsg:  message,
		Wrapped:   wrapped,
	}
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field, message, details string) ConfigurationError {
	return ConfigurationError{
		Field:    field,
		ErrorMsg: message,
		Details:  details,
	}
}

// NewEngineInitError wraps cause unless it already is an EngineInitError
func NewEngineInitError(modelID string, cause error) *EngineInitError {
	var initErr *EngineInitError
	if errors.As(cause, &initErr) {
		return initErr
	}
	return &EngineInitError{ModelID: modelID, Cause: cause}
}

// IsEngineInitError reports whether err is or wraps an EngineInitError
func IsEngineInitError(err error) bool {
	var initErr *EngineInitError
	return errors.As(err, &initErr)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var boundaryErr BoundaryError
	if errors.As(err, &boundaryErr) {
		return boundaryErr.Temporary()
	}
	return false
}

func isRetryableHTTPStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Error constants for common scenarios
const (
	ErrorCodeInvalidAPIKey      = "INVALID_API_KEY"
	ErrorCodeModelNotFound      = "MODEL_NOT_FOUND"
	ErrorCodeInvalidRequest     = "INVALID_REQUEST"
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrorCodePullFailed         = "PULL_FAILED"
	ErrorCodeEmptyResponse      = "EMPTY_RESPONSE"
	ErrorCodeNetwork            = "NETWORK_ERROR"
	ErrorCodeConfiguration      = "CONFIGURATION_ERROR"
	ErrorCodeEngineInit         = "ENGINE_INIT_FAILED"
	ErrorCodeUnknown            = "UNKNOWN_ERROR"
)
