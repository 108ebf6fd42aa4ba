package selector

import "errors"

// ErrInvalidSelector is returned when a selector cannot be constructed
// from the given key or pattern.
var ErrInvalidSelector = errors.New("invalid selector")
