package converters

import (
	"errors"
	"fmt"
)

// ParseError reports malformed source text.
type ParseError struct {
	Path   string // File path (empty for Loads)
	Line   int    // 1-based line, 0 if unknown
	Column int    // 1-based column, 0 if unknown
	Reason string
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
		if e.Column > 0 {
			loc = fmt.Sprintf("%s:%d", loc, e.Column)
		}
	}
	return fmt.Sprintf("parse error at %s: %s", loc, e.Reason)
}

// Errorf builds a ParseError at line:col.
func Errorf(line, col int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Column: col, Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedConstructError reports valid source that has no canonical
// representation. Converters return it instead of dropping data.
type UnsupportedConstructError struct {
	Path      string
	Line      int
	Construct string
}

func (e *UnsupportedConstructError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	return fmt.Sprintf("unsupported construct at %s: %s", loc, e.Construct)
}

// Unsupported builds an UnsupportedConstructError.
func Unsupported(line int, format string, args ...any) *UnsupportedConstructError {
	return &UnsupportedConstructError{Line: line, Construct: fmt.Sprintf(format, args...)}
}

// ErrUnknownFormat is returned by [Registry.Get] and [Registry.Detect].
var ErrUnknownFormat = errors.New("unknown format")

func withPath(err error, path string) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Path == "" {
		pe.Path = path
	}
	var ue *UnsupportedConstructError
	if errors.As(err, &ue) && ue.Path == "" {
		ue.Path = path
	}
	return err
}
