// Package routes reads declarative route tables and applies them to a
// registry.
//
// A table lists routes, each naming a selector kind, its pattern and the
// handler to bind:
//
//	routes:
//	  - name: users
//	    kind: uri
//	    pattern: /users/{id}
//	    handler: audit
//	  - kind: json
//	    pattern: user.role
//	    value: admin
//	    handler: alert
//
// The same structure is accepted as TOML using [[routes]] tables.
package routes

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dshills/eventroute/internal/selector"
)

// Route kinds.
const (
	KindExact = "exact"
	KindGlob  = "glob"
	KindRegex = "regex"
	KindTopic = "topic"
	KindURI   = "uri"
	KindType  = "type"
	KindJSON  = "json"
	KindLua   = "lua"
)

// Route is one entry of a route table.
type Route struct {
	Name    string `yaml:"name" toml:"name"`
	Kind    string `yaml:"kind" toml:"kind"`
	Pattern string `yaml:"pattern" toml:"pattern"`
	// Value is the expected field value for json routes.
	Value   string `yaml:"value,omitempty" toml:"value,omitempty"`
	Handler string `yaml:"handler" toml:"handler"`
}

// Table is a parsed route table.
type Table struct {
	Routes []Route `yaml:"routes" toml:"routes"`

	// Source is the path the table was loaded from.
	Source string `yaml:"-" toml:"-"`
}

// typeNames are the types a type route may name.
var typeNames = map[string]reflect.Type{
	"string":       reflect.TypeFor[string](),
	"bool":         reflect.TypeFor[bool](),
	"int":          reflect.TypeFor[int](),
	"int64":        reflect.TypeFor[int64](),
	"float64":      reflect.TypeFor[float64](),
	"[]byte":       reflect.TypeFor[[]byte](),
	"error":        reflect.TypeFor[error](),
	"fmt.Stringer": reflect.TypeFor[fmt.Stringer](),
}

// Selector compiles the route into a selector.
func (r Route) Selector() (selector.Selector, error) {
	switch strings.ToLower(r.Kind) {
	case KindExact, "":
		return selector.Exact(r.Pattern)
	case KindGlob:
		return selector.Glob(r.Pattern)
	case KindRegex:
		return selector.Regex(r.Pattern)
	case KindTopic:
		return selector.Topic(r.Pattern)
	case KindURI:
		return selector.URI(r.Pattern)
	case KindType:
		t, ok := typeNames[r.Pattern]
		if !ok {
			return selector.Selector{}, fmt.Errorf("%w: unknown type %q", selector.ErrInvalidSelector, r.Pattern)
		}
		return selector.Type(t)
	case KindJSON:
		return selector.JSONField(r.Pattern, r.Value)
	case KindLua:
		return selector.Lua(r.Pattern)
	default:
		return selector.Selector{}, fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
}

// Label returns the route name, or kind and pattern when unnamed.
func (r Route) Label() string {
	if r.Name != "" {
		return r.Name
	}
	kind := r.Kind
	if kind == "" {
		kind = KindExact
	}
	return kind + ":" + r.Pattern
}
