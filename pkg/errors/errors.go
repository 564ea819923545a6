// Package errors provides typed errors for cicd-status
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// ErrConfig indicates missing or invalid settings
	ErrConfig ErrorType = iota
	// ErrAuthentication indicates the remote service rejected the credentials
	ErrAuthentication
	// ErrNotFound indicates the remote resource does not exist
	ErrNotFound
	// ErrNetwork indicates a transport failure talking to the remote service
	ErrNetwork
	// ErrAPI indicates any other non-2xx response
	ErrAPI
	// ErrValidation indicates an input validation error
	ErrValidation
)

// Error is the base error type for all cicd-status errors
type Error struct {
	Type       ErrorType
	Message    string
	Cause      error
	StatusCode int
	Body       string
	Context    map[string]interface{}
}

// Error returns the error message
func (e *Error) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", errorTypeString(e.Type), msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", errorTypeString(e.Type), msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error
func New(errType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	e.Context[key] = value
	return e
}

// WithResponse attaches the HTTP status and body of the failed call
func (e *Error) WithResponse(statusCode int, body string) *Error {
	e.StatusCode = statusCode
	e.Body = body
	return e
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if err == nil {
		return false
	}
	if errors.As(err, &e) {
		return e.Type == errType
	}
	return false
}

// IsRetryable returns true if the error is transient and retryable.
// Only transport failures and server-side API errors qualify; a
// rejected credential or an unknown sha will not fix itself.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrNetwork:
		return true
	case ErrAPI:
		return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// StatusCode returns the HTTP status attached to err, or 0
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func errorTypeString(et ErrorType) string {
	switch et {
	case ErrConfig:
		return "CONFIG"
	case ErrAuthentication:
		return "AUTHENTICATION"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrNetwork:
		return "NETWORK"
	case ErrAPI:
		return "API"
	case ErrValidation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// Convenience functions for common errors

// ConfigError creates a configuration error
func ConfigError(message string, cause error) *Error {
	return New(ErrConfig, message, cause)
}

// AuthenticationError creates an authentication error
func AuthenticationError(message string, cause error) *Error {
	return New(ErrAuthentication, message, cause)
}

// NotFoundError creates a not-found error
func NotFoundError(message string, cause error) *Error {
	return New(ErrNotFound, message, cause)
}

// NetworkError creates a transport error
func NetworkError(message string, cause error) *Error {
	return New(ErrNetwork, message, cause)
}

// APIError creates an error for an unexpected API response
func APIError(message string, statusCode int, body string) *Error {
	return New(ErrAPI, message, nil).WithResponse(statusCode, body)
}

// ValidationError creates a validation error
func ValidationError(message string, cause error) *Error {
	return New(ErrValidation, message, cause)
}

// FromResponse classifies a non-2xx HTTP response into the error taxonomy.
func FromResponse(message string, statusCode int, body string) *Error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return AuthenticationError(message, nil).WithResponse(statusCode, body)
	case http.StatusNotFound:
		return NotFoundError(message, nil).WithResponse(statusCode, body)
	default:
		return APIError(message, statusCode, body)
	}
}
