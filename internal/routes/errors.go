package routes

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned for a route whose kind is not supported.
	ErrUnknownKind = errors.New("unknown route kind")

	// ErrUnknownHandler is returned when a route names a handler that was
	// not provided.
	ErrUnknownHandler = errors.New("unknown route handler")

	// ErrUnsupportedFormat is returned for files that are neither YAML nor
	// TOML.
	ErrUnsupportedFormat = errors.New("unsupported route table format")
)

// ParseError reports a route table that could not be read or compiled.
type ParseError struct {
	// Path is the file or "<reader>" the table came from.
	Path string

	// Route is the index of the offending route, or -1 for file-level
	// errors.
	Route int

	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Route >= 0 {
		return fmt.Sprintf("%s: route %d: %v", e.Path, e.Route, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
