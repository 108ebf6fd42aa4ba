package registry

import "errors"

// Sentinel errors for the registry. Both are returned before any state
// is touched.
var (
	// ErrNilKey is returned when a lookup or unregister key is nil.
	ErrNilKey = errors.New("registry key cannot be nil")

	// ErrNilSelector is returned when registering a zero Selector.
	ErrNilSelector = errors.New("registry selector cannot be nil")
)
