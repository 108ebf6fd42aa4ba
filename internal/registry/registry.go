package registry

import (
	"iter"
	"slices"
	"sync"

	"github.com/dshills/eventroute/internal/selector"
)

// Registry holds registrations of handlers of type T. It is safe for
// concurrent use.
type Registry[T any] struct {
	mu sync.RWMutex

	// registrations is the insertion-ordered source of truth.
	registrations []*Registration[T]

	// direct indexes exact selectors by their key.
	direct map[any][]*Registration[T]

	// cache holds pattern scan results by lookup key. Only non-empty
	// results are stored.
	cache map[any][]*Registration[T]

	// refreshRequired marks cache as stale; the next pattern lookup
	// drops it.
	refreshRequired bool

	cfg config
}

// New creates an empty registry.
func New[T any](opts ...Option) *Registry[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry[T]{
		direct: make(map[any][]*Registration[T]),
		cache:  make(map[any][]*Registration[T]),
		cfg:    cfg,
	}
}

// Register binds handler to sel and returns the registration handle.
// Exact selectors go to the direct index; pattern selectors mark the
// pattern cache stale.
func (r *Registry[T]) Register(sel selector.Selector, handler T) (*Registration[T], error) {
	if sel.IsZero() {
		return nil, ErrNilSelector
	}

	reg := newRegistration(r, sel, handler)

	r.mu.Lock()
	defer r.mu.Unlock()

	if sel.Kind() == selector.KindExact {
		key := sel.Subject()
		r.direct[key] = append(r.direct[key], reg)
	} else {
		r.refreshRequired = true
	}
	r.registrations = append(r.registrations, reg)
	r.cfg.metrics.setRegistrations(len(r.registrations))

	r.cfg.logger.Debug().
		Str("id", reg.id).
		Stringer("selector", sel).
		Msg("registered")

	return reg, nil
}

// Unregister removes every registration whose selector matches key and
// reports whether any was removed. Removed registrations are cancelled.
func (r *Registry[T]) Unregister(key any) (bool, error) {
	if key == nil {
		return false, ErrNilKey
	}

	removed := r.unregister(key)
	for _, reg := range removed {
		if reg.lifecycle != nil {
			reg.lifecycle.Cancel()
		}
	}
	return len(removed) > 0, nil
}

// unregister returns the registrations it cancelled.
func (r *Registry[T]) unregister(key any) []*Registration[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.registrations) == 0 {
		return nil
	}

	matched := r.scan(key)
	if len(matched) == 0 {
		return nil
	}

	var cancelled []*Registration[T]
	for _, reg := range matched {
		if reg.markCancelled() {
			cancelled = append(cancelled, reg)
		}
		r.detach(reg)
	}
	r.registrations = slices.DeleteFunc(r.registrations, func(reg *Registration[T]) bool {
		return slices.Contains(matched, reg)
	})
	r.refreshRequired = true
	r.cfg.metrics.setRegistrations(len(r.registrations))

	return cancelled
}

// Select returns the registrations matching key in registration order.
// The result is a copy and is never nil.
func (r *Registry[T]) Select(key any) ([]*Registration[T], error) {
	if key == nil {
		return nil, ErrNilKey
	}

	regs, scanned := r.lookup(key)
	if scanned && r.cfg.onMiss != nil {
		r.cfg.onMiss(key)
	}
	return regs, nil
}

// lookup returns a copy of the matching registrations and reports whether
// they came from a scan.
func (r *Registry[T]) lookup(key any) (regs []*Registration[T], scanned bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if selector.Hashable(key) {
		if bucket, ok := r.direct[key]; ok {
			r.cfg.metrics.lookup(PathDirect)
			return clone(bucket), false
		}
	}

	// Unhashable and NaN-bearing keys cannot be cached.
	if !selector.Cacheable(key) || !r.cfg.cache {
		r.cfg.metrics.lookup(PathScan)
		return clone(r.scan(key)), true
	}

	if r.refreshRequired {
		r.escalate(
			func() bool { return r.refreshRequired },
			r.resetCache,
		)
	}

	var ok, direct bool
	regs, ok = r.cache[key]
	if !ok {
		r.escalate(
			func() bool {
				// An exact registration added while the read lock was
				// released is served from the direct index and stays
				// out of the cache.
				if bucket, found := r.direct[key]; found {
					regs, direct = bucket, true
					return false
				}
				if r.refreshRequired {
					r.resetCache()
				}
				regs, ok = r.cache[key]
				return !ok
			},
			func() {
				regs = r.scanPatterns(key)
				scanned = true
				if len(regs) > 0 {
					r.cache[key] = regs
				}
			},
		)
	}

	switch {
	case direct:
		r.cfg.metrics.lookup(PathDirect)
	case scanned:
		r.cfg.metrics.lookup(PathScan)
	default:
		r.cfg.metrics.lookup(PathCache)
	}
	return clone(regs), scanned
}

// scan collects matching registrations in insertion order. Caller holds
// r.mu in either mode.
func (r *Registry[T]) scan(key any) []*Registration[T] {
	var regs []*Registration[T]
	for _, reg := range r.registrations {
		if reg.selector.Matches(key) {
			regs = append(regs, reg)
		}
	}
	if len(regs) == 0 {
		r.cfg.logger.Trace().Interface("key", key).Msg("no registrations for key")
	}
	return regs
}

// scanPatterns is scan restricted to non-exact registrations, used to
// populate the cache. Caller holds the write lock.
func (r *Registry[T]) scanPatterns(key any) []*Registration[T] {
	var regs []*Registration[T]
	for _, reg := range r.registrations {
		if reg.selector.Kind() != selector.KindExact && reg.selector.Matches(key) {
			regs = append(regs, reg)
		}
	}
	return regs
}

// resetCache drops every cached result. Caller holds the write lock.
func (r *Registry[T]) resetCache() {
	clear(r.cache)
	r.refreshRequired = false
	r.cfg.metrics.invalidated()
	r.cfg.logger.Debug().Msg("pattern cache invalidated")
}

// cancel removes reg and reports whether this call cancelled it.
func (r *Registry[T]) cancel(reg *Registration[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !reg.markCancelled() {
		return false
	}

	if i := slices.Index(r.registrations, reg); i >= 0 {
		r.registrations = slices.Delete(r.registrations, i, i+1)
		r.detach(reg)
		r.cfg.metrics.setRegistrations(len(r.registrations))
	}
	return true
}

// detach removes reg from the direct index, or marks the cache stale for
// pattern registrations. Caller holds the write lock.
func (r *Registry[T]) detach(reg *Registration[T]) {
	if reg.selector.Kind() != selector.KindExact {
		r.refreshRequired = true
		return
	}

	key := reg.selector.Subject()
	bucket := slices.DeleteFunc(r.direct[key], func(o *Registration[T]) bool {
		return o == reg
	})
	if len(bucket) == 0 {
		delete(r.direct, key)
	} else {
		r.direct[key] = bucket
	}
}

// Clear drops all registrations, marking each cancelled.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.registrations {
		reg.markCancelled()
	}
	r.registrations = nil
	r.direct = make(map[any][]*Registration[T])
	r.cache = make(map[any][]*Registration[T])
	r.refreshRequired = false
	r.cfg.metrics.setRegistrations(0)
}

// Len returns the number of live registrations.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.registrations)
}

// Snapshot returns a point-in-time copy of all live registrations in
// registration order.
func (r *Registry[T]) Snapshot() []*Registration[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return clone(r.registrations)
}

// Iterate yields the registrations of a snapshot taken when iteration
// starts; later mutations are not observed.
func (r *Registry[T]) Iterate() iter.Seq[*Registration[T]] {
	return func(yield func(*Registration[T]) bool) {
		for _, reg := range r.Snapshot() {
			if !yield(reg) {
				return
			}
		}
	}
}

// clone copies regs into a non-nil slice.
func clone[T any](regs []*Registration[T]) []*Registration[T] {
	out := make([]*Registration[T], len(regs))
	copy(out, regs)
	return out
}
