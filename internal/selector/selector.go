package selector

import (
	"fmt"
	"math"
	"reflect"
	"sync/atomic"
)

// Kind classifies a selector for the registry's two-tier lookup.
type Kind uint8

const (
	// KindExact selectors match a single key by equality and are served
	// from the registry's direct index.
	KindExact Kind = iota

	// KindPattern selectors match through a predicate and are resolved by
	// scanning, with results cached per lookup key.
	KindPattern
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindPattern:
		return "pattern"
	default:
		return "unknown"
	}
}

// Matcher is the predicate half of a pattern selector.
type Matcher interface {
	Matches(key any) bool
}

// MatcherFunc is a function adapter for Matcher.
type MatcherFunc func(key any) bool

// Matches implements the Matcher interface.
func (f MatcherFunc) Matches(key any) bool {
	return f(key)
}

// Selector is an immutable matching rule. The zero value matches nothing
// and is rejected by the registry.
type Selector struct {
	kind    Kind
	subject any
	matcher Matcher
}

// Exact returns a selector matching keys equal to key.
// The key's dynamic type must be comparable.
func Exact(key any) (Selector, error) {
	if key == nil {
		return Selector{}, fmt.Errorf("%w: exact key is nil", ErrInvalidSelector)
	}
	if !Hashable(key) {
		return Selector{}, fmt.Errorf("%w: exact key of type %T is not comparable", ErrInvalidSelector, key)
	}
	return Selector{kind: KindExact, subject: key}, nil
}

// MustExact is like Exact but panics on an invalid key.
func MustExact(key any) Selector {
	s, err := Exact(key)
	if err != nil {
		panic(err)
	}
	return s
}

// New returns a pattern selector. The subject describes the pattern
// (its source text, type, etc.) and is reported by Subject.
func New(subject any, m Matcher) (Selector, error) {
	if m == nil {
		return Selector{}, fmt.Errorf("%w: nil matcher", ErrInvalidSelector)
	}
	return Selector{kind: KindPattern, subject: subject, matcher: m}, nil
}

// Predicate returns a pattern selector backed by fn.
func Predicate(name string, fn func(key any) bool) Selector {
	return Selector{kind: KindPattern, subject: name, matcher: MatcherFunc(fn)}
}

// Kind reports whether the selector is exact or pattern-based.
func (s Selector) Kind() Kind {
	return s.kind
}

// Subject returns the exact key for exact selectors or the pattern
// description for pattern selectors.
func (s Selector) Subject() any {
	return s.subject
}

// Matcher returns the predicate of a pattern selector, nil for exact ones.
func (s Selector) Matcher() Matcher {
	return s.matcher
}

// IsZero reports whether s was never constructed.
func (s Selector) IsZero() bool {
	return s.subject == nil && s.matcher == nil
}

// Matches reports whether key satisfies the selector.
func (s Selector) Matches(key any) bool {
	switch s.kind {
	case KindExact:
		return s.subject != nil && Hashable(key) && key == s.subject
	case KindPattern:
		return s.matcher != nil && s.matcher.Matches(key)
	}
	return false
}

// String describes the selector for logs.
func (s Selector) String() string {
	return fmt.Sprintf("%s(%v)", s.kind, s.subject)
}

// Hashable reports whether key can be used as a map key without panicking.
func Hashable(key any) bool {
	if key == nil {
		return false
	}
	return reflect.TypeOf(key).Comparable() && comparableValue(reflect.ValueOf(key))
}

// Cacheable reports whether key can be memoized in a map. A key holding
// NaN is hashable but never equal to itself, so each lookup would add a
// fresh entry.
func Cacheable(key any) bool {
	return Hashable(key) && !hasNaN(reflect.ValueOf(key))
}

func hasNaN(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return math.IsNaN(v.Float())
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		return math.IsNaN(real(c)) || math.IsNaN(imag(c))
	case reflect.Interface:
		return !v.IsNil() && hasNaN(v.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if hasNaN(v.Field(i)) {
				return true
			}
		}
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if hasNaN(v.Index(i)) {
				return true
			}
		}
	}
	return false
}

// comparableValue walks interface-typed fields and array elements, whose
// static type is comparable but whose dynamic value may not be.
func comparableValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return true
		}
		e := v.Elem()
		return e.Type().Comparable() && comparableValue(e)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !comparableValue(v.Field(i)) {
				return false
			}
		}
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if !comparableValue(v.Index(i)) {
				return false
			}
		}
	}
	return true
}

// Object is an opaque identity key. Two Objects are equal only if they
// came from the same call to NewObject.
type Object struct {
	id uint64
}

var objectSeq atomic.Uint64

// NewObject allocates a fresh identity key.
func NewObject() Object {
	return Object{id: objectSeq.Add(1)}
}

// String implements fmt.Stringer.
func (o Object) String() string {
	return fmt.Sprintf("object#%d", o.id)
}

// Anonymous returns an exact selector together with the fresh key it
// matches, for callers that only need a private routing address.
func Anonymous() (Selector, Object) {
	o := NewObject()
	return Selector{kind: KindExact, subject: o}, o
}
