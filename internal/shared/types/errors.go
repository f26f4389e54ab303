package types

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrEmptyReferenceSet is returned when no interval exists to define an origin
	ErrEmptyReferenceSet = errors.New("empty reference set: no non-empty interval sequence")

	// ErrInsufficientData is returned by reductions that need more samples than given
	ErrInsufficientData = errors.New("insufficient data")

	// ErrParse marks every ParseError so callers can match without errors.As
	ErrParse = errors.New("parse error")
)

// ParseError identifies a malformed line in a log file
type ParseError struct {
	File   string
	Line   int
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %q", e.File, e.Line, e.Reason, e.Raw)
}

// Is matches ErrParse
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// MissingFileError reports an expected path that does not exist
type MissingFileError struct {
	Path string
	Kind string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing %s: %s", e.Kind, e.Path)
}

// IsParseError reports whether err carries a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
