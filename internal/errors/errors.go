package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeValidation indicates invalid input data (unrecognized field,
	// malformed nesting, mode/payload mismatch).
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInvalidState indicates an operation attempted against a job
	// whose current state forbids it.
	ErrCodeInvalidState ErrorCode = "invalid_state"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeUnsupportedPlatform indicates an unregistered platform identifier.
	ErrCodeUnsupportedPlatform ErrorCode = "unsupported_platform"
	// ErrCodeUnsupportedOperation indicates an operation the platform cannot
	// perform (e.g. raw query bypass on a REST-only platform).
	ErrCodeUnsupportedOperation ErrorCode = "unsupported_operation"
	// ErrCodeAuthentication indicates a credential was rejected. Fatal, never retried.
	ErrCodeAuthentication ErrorCode = "authentication"
	// ErrCodeRateLimited indicates the remote API throttled the request.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeTransient indicates a retryable transport failure (timeout, 5xx).
	ErrCodeTransient ErrorCode = "transient"
	// ErrCodeJobNotReady indicates a plugin was invoked against a job that has
	// not produced analyzable data.
	ErrCodeJobNotReady ErrorCode = "job_not_ready"
	// ErrCodeUnknownPlugin indicates an unregistered plugin identifier.
	ErrCodeUnknownPlugin ErrorCode = "unknown_plugin"
	// ErrCodePlugin indicates an analyzer failed during execution.
	ErrCodePlugin ErrorCode = "plugin_failed"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and
// optional cause. It supports error wrapping and unwrapping for use with
// errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return Newf(ErrCodeValidation, format, args...)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// InvalidState creates a new InvalidState error.
func InvalidState(message string) *AppError {
	return New(ErrCodeInvalidState, message)
}

// InvalidStatef creates a new InvalidState error with formatted message.
func InvalidStatef(format string, args ...any) *AppError {
	return Newf(ErrCodeInvalidState, format, args...)
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return Newf(ErrCodeNotFound, format, args...)
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInvalidState checks if an error is an InvalidState error.
func IsInvalidState(err error) bool {
	return isCode(err, ErrCodeInvalidState)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsUnsupportedPlatform checks if an error is an UnsupportedPlatform error.
func IsUnsupportedPlatform(err error) bool {
	return isCode(err, ErrCodeUnsupportedPlatform)
}

// IsUnsupportedOperation checks if an error is an UnsupportedOperation error.
func IsUnsupportedOperation(err error) bool {
	return isCode(err, ErrCodeUnsupportedOperation)
}

// IsAuthentication checks if an error is an Authentication error.
func IsAuthentication(err error) bool {
	return isCode(err, ErrCodeAuthentication)
}

// IsRateLimited checks if an error is a RateLimited error.
func IsRateLimited(err error) bool {
	return isCode(err, ErrCodeRateLimited)
}

// IsTransient checks if an error is a Transient transport error.
func IsTransient(err error) bool {
	return isCode(err, ErrCodeTransient)
}

// IsJobNotReady checks if an error is a JobNotReady error.
func IsJobNotReady(err error) bool {
	return isCode(err, ErrCodeJobNotReady)
}

// IsUnknownPlugin checks if an error is an UnknownPlugin error.
func IsUnknownPlugin(err error) bool {
	return isCode(err, ErrCodeUnknownPlugin)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError
// or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
