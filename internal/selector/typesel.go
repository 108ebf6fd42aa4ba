package selector

import (
	"fmt"
	"reflect"
)

// TypeMatcher matches reflect.Type keys assignable to a target type.
// For an interface target this means the key type implements it.
type TypeMatcher struct {
	target reflect.Type
}

// Matches implements Matcher.
func (t *TypeMatcher) Matches(key any) bool {
	kt, ok := key.(reflect.Type)
	return ok && kt != nil && kt.AssignableTo(t.target)
}

// String returns the target type name.
func (t *TypeMatcher) String() string {
	return t.target.String()
}

// Type returns a pattern selector over reflect.Type keys.
func Type(target reflect.Type) (Selector, error) {
	if target == nil {
		return Selector{}, fmt.Errorf("%w: nil type", ErrInvalidSelector)
	}
	return New(target, &TypeMatcher{target: target})
}

// T is shorthand for Type that panics on a nil type.
func T(target reflect.Type) Selector {
	s, err := Type(target)
	if err != nil {
		panic(err)
	}
	return s
}

// TypeOf returns a type selector for the type parameter, which may be an
// interface.
func TypeOf[V any]() Selector {
	return T(reflect.TypeFor[V]())
}
