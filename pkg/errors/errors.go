// Package errors provides custom error types for the application.
// It defines domain-specific errors with error codes so callers can branch on
// the failure kind without matching message text.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application error codes
type ErrorCode string

// Error codes for different error categories
const (
	// General errors (1xxx)
	ErrCodeInternal     ErrorCode = "E1000"
	ErrCodeValidation   ErrorCode = "E1001"
	ErrCodeNotFound     ErrorCode = "E1002"
	ErrCodeUnauthorized ErrorCode = "E1005"

	// Document session errors (2xxx)
	ErrCodeInvalidConfiguration ErrorCode = "E2001"
	ErrCodeNoActiveCache        ErrorCode = "E2002"
	ErrCodeInvalidState         ErrorCode = "E2003"

	// Reporting service errors (3xxx)
	ErrCodeService       ErrorCode = "E3001"
	ErrCodeServiceDecode ErrorCode = "E3002"
	ErrCodeTransport     ErrorCode = "E3003"

	// Database errors (5xxx)
	ErrCodeDBConnection ErrorCode = "E5001"
	ErrCodeDBQuery      ErrorCode = "E5002"
	ErrCodeDBMigration  ErrorCode = "E5003"

	// Configuration errors (6xxx)
	ErrCodeConfigNotFound ErrorCode = "E6001"
	ErrCodeConfigInvalid  ErrorCode = "E6002"
	ErrCodeConfigParse    ErrorCode = "E6003"
)

// Exit codes for CLI failures
const (
	// ExitCodeConfigValidation indicates configuration validation failure
	ExitCodeConfigValidation = 2
)

// AppError represents an application-level error with code and context
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	Details any       `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for the error
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFound, ErrCodeNoActiveCache:
		return http.StatusNotFound
	case ErrCodeValidation, ErrCodeInvalidConfiguration:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeInvalidState:
		return http.StatusConflict
	case ErrCodeService, ErrCodeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ErrInvalidConfiguration reports a session that cannot talk to the service
// because the service url, file path or report name is missing.
func ErrInvalidConfiguration(message string) *AppError {
	return New(ErrCodeInvalidConfiguration, message)
}

// ErrNoActiveCache reports a cache-scoped operation without a cache id.
func ErrNoActiveCache(operation string) *AppError {
	return New(ErrCodeNoActiveCache, fmt.Sprintf("%s requires an active document cache", operation))
}

// ErrInvalidState reports an operation that is not allowed in the current status.
func ErrInvalidState(message string) *AppError {
	return New(ErrCodeInvalidState, message)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError attempts to convert an error to AppError, unwrapping as needed
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err (or anything it wraps) is an AppError with the given code
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
