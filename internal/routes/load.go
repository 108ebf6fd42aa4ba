package routes

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Formats accepted by Parse.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// FormatOf returns the table format implied by a file extension.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads and parses the table at path.
func Load(path string) (*Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, &ParseError{Path: path, Route: -1, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading route table %s: %w", path, err)
	}
	return parse(path, data, format)
}

// Parse parses a table in the given format. Patterns are not compiled
// until the table is applied.
func Parse(data []byte, format string) (*Table, error) {
	return parse("<reader>", data, format)
}

func parse(source string, data []byte, format string) (*Table, error) {
	var t Table
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
			return nil, &ParseError{Path: source, Route: -1, Err: err}
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&t); err != nil {
			return nil, &ParseError{Path: source, Route: -1, Err: err}
		}
	default:
		return nil, &ParseError{Path: source, Route: -1, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)}
	}
	t.Source = source
	return &t, nil
}
