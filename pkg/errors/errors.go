// Package errors provides structured error types for dephell.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - PARSE_ERROR, UNSUPPORTED_CONSTRUCT: converter failures
//   - CONSTRAINT_CONFLICT, UNRESOLVED_GRAPH, FETCH_FAILURE: resolver failures
//   - NETWORK_*, TIMEOUT: transport failures
//   - INTERNAL_*: Unexpected internal errors
//
// Domain packages return their own typed errors; [Classify] maps any of
// them to a code for the CLI exit status and the HTTP API.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid package name: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	switch errors.Classify(err) {
//	case errors.ErrCodeConstraintConflict:
//	    // ...
//	}
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/httputil"
	"github.com/ko3luhbka/dephell/pkg/resolver"
	"github.com/ko3luhbka/dephell/pkg/source"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// Converter errors
	ErrCodeParse                Code = "PARSE_ERROR"
	ErrCodeUnsupportedConstruct Code = "UNSUPPORTED_CONSTRUCT"

	// Resolver errors
	ErrCodeConstraintConflict Code = "CONSTRAINT_CONFLICT"
	ErrCodeUnresolvedGraph    Code = "UNRESOLVED_GRAPH"
	ErrCodeFetchFailure       Code = "FETCH_FAILURE"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

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

// Classify returns the code describing err. An *Error anywhere in the
// chain wins; otherwise the domain error types are inspected, outermost
// first. Nil maps to the empty code, anything unrecognized to
// ErrCodeInternal.
func Classify(err error) Code {
	if err == nil {
		return ""
	}
	if code := GetCode(err); code != "" {
		return code
	}

	var (
		parseErr    *converters.ParseError
		unsupported *converters.UnsupportedConstructError
		conflict    *resolver.ConstraintConflictError
		conflicts   *resolver.ConflictsError
		unresolved  *resolver.UnresolvedGraphError
		fetch       *resolver.FetchFailure
		retryable   *httputil.RetryableError
	)
	switch {
	case errors.As(err, &parseErr):
		return ErrCodeParse
	case errors.As(err, &unsupported):
		return ErrCodeUnsupportedConstruct
	case errors.As(err, &conflicts), errors.As(err, &conflict):
		return ErrCodeConstraintConflict
	case errors.As(err, &unresolved):
		return ErrCodeUnresolvedGraph
	case errors.As(err, &fetch):
		return ErrCodeFetchFailure
	case errors.Is(err, converters.ErrUnknownFormat):
		return ErrCodeInvalidFormat
	case errors.Is(err, os.ErrNotExist):
		return ErrCodeFileNotFound
	case errors.Is(err, httputil.ErrNotFound), errors.Is(err, source.ErrNotFound):
		return ErrCodePackageNotFound
	case errors.Is(err, source.ErrUnsupportedLink):
		return ErrCodeUnsupported
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, httputil.ErrNetwork), errors.As(err, &retryable):
		return ErrCodeNetwork
	}
	return ErrCodeInternal
}

// HTTPStatus maps a code to the status the API responds with.
func HTTPStatus(code Code) int {
	switch code {
	case "":
		return http.StatusOK
	case ErrCodeInvalidInput, ErrCodeInvalidPackage, ErrCodeInvalidFormat, ErrCodeInvalidPath:
		return http.StatusBadRequest
	case ErrCodeParse, ErrCodeUnsupportedConstruct, ErrCodeUnsupported:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound, ErrCodePackageNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeConstraintConflict, ErrCodeUnresolvedGraph:
		return http.StatusConflict
	case ErrCodeFetchFailure, ErrCodeNetwork:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// ExitCode maps a code to a CLI exit status: 0 on success, 2 for bad
// input, 3 for resolution failures and 1 for everything else.
func ExitCode(code Code) int {
	switch code {
	case "":
		return 0
	case ErrCodeInvalidInput, ErrCodeInvalidPackage, ErrCodeInvalidFormat, ErrCodeInvalidPath,
		ErrCodeParse, ErrCodeUnsupportedConstruct, ErrCodeFileNotFound:
		return 2
	case ErrCodeConstraintConflict, ErrCodeUnresolvedGraph, ErrCodeFetchFailure, ErrCodePackageNotFound:
		return 3
	}
	return 1
}

// RateLimitedError provides additional information for rate-limited responses.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying
	Message    string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
