package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeHTTP            ErrorType = "http"
	ErrorTypeInvalidResponse ErrorType = "invalid_response"
	ErrorTypeAuth            ErrorType = "auth"
	ErrorTypeConfiguration   ErrorType = "configuration"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeInternal        ErrorType = "internal"
)

// AppError represents a structured application error.
// HTTPStatus is the status returned by the remote classifier, 0 when no
// response was received. Attempt is the upload attempt that produced it.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Attempt    int       `json:"attempt,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithAttempt records which upload attempt produced the error.
func (e *AppError) WithAttempt(n int) *AppError {
	e.Attempt = n
	return e
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Cause: cause}
}

// NewNetworkError creates a new network error (connectivity, DNS, aborted transport)
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeNetwork, Message: message, Cause: cause}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeTimeout, Message: message, Cause: cause}
}

// NewHTTPError creates an error for a non-2xx upstream response
func NewHTTPError(status int, message string) *AppError {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &AppError{Type: ErrorTypeHTTP, Message: message, HTTPStatus: status}
}

// NewAuthError creates an error for 401/403 upstream responses
func NewAuthError(status int, message string) *AppError {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &AppError{Type: ErrorTypeAuth, Message: message, HTTPStatus: status}
}

// NewInvalidResponseError creates an error for a 2xx body that is not usable JSON
func NewInvalidResponseError(status int, cause error) *AppError {
	return &AppError{Type: ErrorTypeInvalidResponse, Message: "invalid response", HTTPStatus: status, Cause: cause}
}

// NewConfigurationError creates an error for missing or malformed runtime settings
func NewConfigurationError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeConfiguration, Message: message, Cause: cause}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message, Cause: cause}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Cause: cause}
}

// FromStatus classifies an upstream non-2xx status.
func FromStatus(status int, message string) *AppError {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return NewAuthError(status, message)
	}
	return NewHTTPError(status, message)
}

// FromTransport classifies an error returned by http.Client.Do.
func FromTransport(err error) *AppError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("request timed out", err)
	}
	return NewNetworkError("network request failed", err)
}

// As extracts an *AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable reports whether a different upload attempt could succeed.
// Credential and configuration problems are never retried.
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return true
	}
	switch appErr.Type {
	case ErrorTypeAuth, ErrorTypeConfiguration, ErrorTypeValidation:
		return false
	}
	return true
}

// GetStatusCode maps an error to the status the local HTTP API answers with
func GetStatusCode(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeAuth:
		if appErr.HTTPStatus == http.StatusForbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeNetwork, ErrorTypeHTTP, ErrorTypeInvalidResponse:
		return http.StatusBadGateway
	case ErrorTypeConfiguration:
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}
