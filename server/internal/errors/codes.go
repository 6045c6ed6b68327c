package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies the kind of failure reported by the API.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the requested resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeFailedPrecondition indicates the resource is not in a state that allows the operation.
	ErrCodeFailedPrecondition ErrorCode = "FAILED_PRECONDITION"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeServiceUnavailable indicates the service is not available.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeInternal indicates an unexpected server failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

var httpStatus = map[ErrorCode]int{
	ErrCodeInvalidArgument:    http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeFailedPrecondition: http.StatusConflict,
	ErrCodeRateLimitExceeded:  http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeContextCanceled:    499,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// AppError represents a structured API error.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Context map[string]any `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HTTPStatus returns the HTTP status code for the error.
func (e *AppError) HTTPStatus() int {
	if status, ok := httpStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AppError {
	return &AppError{Code: ErrCodeInvalidArgument, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: msg}
}

// FailedPrecondition creates a failed precondition error.
func FailedPrecondition(msg string) *AppError {
	return &AppError{Code: ErrCodeFailedPrecondition, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *AppError {
	return &AppError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{Code: ErrCodeServiceUnavailable, Message: msg}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *AppError {
	return &AppError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// Internal creates an internal error.
func Internal(msg string, cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AppError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return defaultCode
}
