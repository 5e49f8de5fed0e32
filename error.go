// FILE: lixenwraith/config/error.go
package config

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is; the concrete message
// carries the offending token, path or position.
var (
	// ErrConfigNotFound is returned when a file-backed source points at a missing file
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidArgument reports a nil or empty required input at construction time
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidSwitchMapping reports a malformed switch mapping table
	ErrInvalidSwitchMapping = errors.New("invalid switch mapping")

	// ErrFormat is the parent of every load-time input format error
	ErrFormat = errors.New("invalid configuration format")

	// ErrCLIParse wraps every command-line load failure
	ErrCLIParse = errors.New("failed to parse command-line arguments")

	ErrUnrecognizedArgument  = fmt.Errorf("%w: unrecognized argument format", ErrFormat)
	ErrShortSwitchNotDefined = fmt.Errorf("%w: short switch is not defined in the switch mappings", ErrFormat)
	ErrValueMissing          = fmt.Errorf("%w: value is missing", ErrFormat)
	ErrNamespaceNotSupported = fmt.Errorf("%w: XML namespaces are not supported", ErrFormat)
	ErrDuplicateKey          = fmt.Errorf("%w: duplicate key", ErrFormat)

	// ErrSecurity reports input rejected to prevent entity expansion or external fetches
	ErrSecurity = errors.New("configuration rejected for security reasons")
)

// LineError attaches a 1-based input position to an error.
type LineError struct {
	Line   int
	Column int
	Err    error
}

func (e *LineError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("%v (line %d, position %d)", e.Err, e.Line, e.Column)
	}
	return fmt.Sprintf("%v (line %d)", e.Err, e.Line)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// SourceError reports the source whose Load aborted a configuration load
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("failed to load source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// atLine wraps err with position information
func atLine(line, column int, err error) error {
	return &LineError{Line: line, Column: column, Err: err}
}

// duplicateKeyError builds the conflict error shared by the file parsers
func duplicateKeyError(path string) error {
	return fmt.Errorf("%w %q", ErrDuplicateKey, path)
}
