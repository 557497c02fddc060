package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/httputil"
	"github.com/ko3luhbka/dephell/pkg/resolver"
	"github.com/ko3luhbka/dephell/pkg/source"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeNetwork, cause, "failed to fetch")

	if err.Code != ErrCodeNetwork {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNetwork)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	// Test Unwrap
	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Test errors.Is with wrapped error
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeNetwork,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeNetwork, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeNetwork,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidPackage, "test"),
			expected: ErrCodeInvalidPackage,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRateLimitedError(t *testing.T) {
	t.Run("with retry after", func(t *testing.T) {
		err := &RateLimitedError{RetryAfter: 60}
		expected := "rate limited: retry after 60 seconds"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("without retry after", func(t *testing.T) {
		err := &RateLimitedError{}
		expected := "rate limited"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("code method", func(t *testing.T) {
		err := &RateLimitedError{}
		if err.Code() != ErrCodeRateLimited {
			t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeRateLimited)
		}
	})
}

func TestClassify(t *testing.T) {
	conflict := &resolver.ConstraintConflictError{Name: "idna", Reason: "no version satisfies >=4,<3"}
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"coded", Wrap(ErrCodeInvalidPath, os.ErrNotExist, "bad"), ErrCodeInvalidPath},
		{"parse", fmt.Errorf("load: %w", converters.Errorf(3, 1, "bad line")), ErrCodeParse},
		{"unsupported", converters.Unsupported(1, "include"), ErrCodeUnsupportedConstruct},
		{"conflict", conflict, ErrCodeConstraintConflict},
		{"conflicts", &resolver.ConflictsError{Conflicts: []*resolver.ConstraintConflictError{conflict}}, ErrCodeConstraintConflict},
		{"unresolved", &resolver.UnresolvedGraphError{}, ErrCodeUnresolvedGraph},
		{"fetch", &resolver.FetchFailure{Name: "x", Err: httputil.ErrNetwork}, ErrCodeFetchFailure},
		{"format", fmt.Errorf("%w: toml", converters.ErrUnknownFormat), ErrCodeInvalidFormat},
		{"missing file", &os.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}, ErrCodeFileNotFound},
		{"missing package", fmt.Errorf("%w: pypi package x", httputil.ErrNotFound), ErrCodePackageNotFound},
		{"memory miss", source.ErrNotFound, ErrCodePackageNotFound},
		{"link", source.ErrUnsupportedLink, ErrCodeUnsupported},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"network", &httputil.RetryableError{Err: errors.New("reset")}, ErrCodeNetwork},
		{"plain", errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Code]int{
		"":                          http.StatusOK,
		ErrCodeInvalidFormat:        http.StatusBadRequest,
		ErrCodeParse:                http.StatusUnprocessableEntity,
		ErrCodePackageNotFound:      http.StatusNotFound,
		ErrCodeConstraintConflict:   http.StatusConflict,
		ErrCodeFetchFailure:         http.StatusBadGateway,
		ErrCodeTimeout:              http.StatusGatewayTimeout,
		ErrCodeInternal:             http.StatusInternalServerError,
		ErrCodeUnsupportedConstruct: http.StatusUnprocessableEntity,
	}
	for code, want := range tests {
		if got := HTTPStatus(code); got != want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := map[Code]int{
		"":                        0,
		ErrCodeParse:              2,
		ErrCodeFileNotFound:       2,
		ErrCodeUnresolvedGraph:    3,
		ErrCodeConstraintConflict: 3,
		ErrCodeNetwork:            1,
	}
	for code, want := range tests {
		if got := ExitCode(code); got != want {
			t.Errorf("ExitCode(%q) = %d, want %d", code, got, want)
		}
	}
}
