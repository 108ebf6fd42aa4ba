package config

import (
	"errors"
	"fmt"
)

// ErrInvalid indicates a loaded configuration failed validation.
var ErrInvalid = errors.New("invalid configuration")

// ParseError reports a configuration file that could not be parsed.
type ParseError struct {
	// Path is the file being parsed.
	Path string

	// Err is the underlying parser error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing config %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
