package apperrors

import (
	"errors"
	"fmt"
)

// Machine codes. Every error surfaced to a caller carries one of these;
// nothing surfaces as "unknown" on a normal path.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeInvalidState  = "INVALID_STATE"
	CodeConflict      = "CONFLICT"
	CodeIOError       = "IO_ERROR"
	CodeUpstreamError = "UPSTREAM_ERROR"
	CodeUnknown       = "UNKNOWN"
)

// AppError carries a stable machine code, a user-safe message, whether the
// operation can be retried as-is, and an optional suggested action.
type AppError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
	Suggestion  string `json:"suggestion,omitempty"`

	cause error
}

// Error formats as "CODE: message" so string matching on the code prefix
// keeps working for callers that treat errors as opaque strings.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// WithSuggestion attaches a suggested next action and returns the error.
func (e *AppError) WithSuggestion(s string) *AppError {
	e.Suggestion = s
	return e
}

// WithCause records the underlying error for wrapping chains.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func NotFound(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

// Conflict errors are recoverable: retrying once the in-flight operation
// finishes is the expected recovery.
func Conflict(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeConflict, Message: fmt.Sprintf(format, args...), Recoverable: true}
}

func IOError(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeIOError, Message: fmt.Sprintf(format, args...), Recoverable: true}
}

func Upstream(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeUpstreamError, Message: fmt.Sprintf(format, args...), Recoverable: true}
}

// CodeOf returns the machine code of err, or CodeUnknown when err carries
// no AppError anywhere in its chain.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// Is reports whether err carries the given machine code.
func Is(err error, code string) bool {
	return CodeOf(err) == code
}
