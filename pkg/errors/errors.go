// Package errors provides structured error types for the choropleth engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and library packages
//   - Machine-readable error codes for programmatic handling
//   - A split between recoverable per-region problems and fatal
//     configuration or serialization failures
//
// # Error Codes
//
// Styling-pass codes mirror the stages where they occur:
//   - UNRESOLVED_REGION: a data code matches no element (recoverable)
//   - INSUFFICIENT_DATA: too few distinct values to classify
//   - INVALID_CLASSIFICATION: malformed thresholds or bin count (fatal)
//   - INVALID_SCALE: palette and bin count do not fit together (fatal)
//   - MALFORMED_STYLE: unparsable inline style, treated as empty (recoverable)
//   - NAMESPACE_MISSING: the document cannot be serialized safely (fatal)
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidScale, "binary scale needs 2 bins, got %d", k)
//	if errors.Is(err, errors.ErrCodeInvalidScale) {
//	    // Handle misconfiguration
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFileNotFound, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Styling pass errors
	ErrCodeUnresolvedRegion      Code = "UNRESOLVED_REGION"
	ErrCodeInsufficientData      Code = "INSUFFICIENT_DATA"
	ErrCodeInvalidClassification Code = "INVALID_CLASSIFICATION"
	ErrCodeInvalidScale          Code = "INVALID_SCALE"
	ErrCodeMalformedStyle        Code = "MALFORMED_STYLE"
	ErrCodeNamespaceMissing      Code = "NAMESPACE_MISSING"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// recoverable lists the codes that never abort a styling pass.
var recoverable = map[Code]bool{
	ErrCodeUnresolvedRegion: true,
	ErrCodeInsufficientData: true,
	ErrCodeMalformedStyle:   true,
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Recoverable reports whether err carries a code that is handled per region
// and never aborts a run. Errors without a code are treated as fatal.
func Recoverable(err error) bool {
	return recoverable[GetCode(err)]
}
