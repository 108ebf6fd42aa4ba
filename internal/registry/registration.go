package registry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/eventroute/internal/selector"
)

// Lifecycle is implemented by handlers that follow the state of their
// registration. Cancel, Pause and Resume on a Registration are forwarded
// to it.
type Lifecycle interface {
	Cancel()
	Pause()
	Resume()
}

// Registration binds one selector to one handler. Its flags may be read
// from any goroutine.
type Registration[T any] struct {
	id        string
	selector  selector.Selector
	handler   T
	lifecycle Lifecycle
	owner     *Registry[T]

	// mu serializes flag transitions so that none happen after cancel.
	mu             sync.Mutex
	cancelled      atomic.Bool
	paused         atomic.Bool
	cancelAfterUse atomic.Bool
}

func newRegistration[T any](owner *Registry[T], sel selector.Selector, handler T) *Registration[T] {
	reg := &Registration[T]{
		id:       uuid.NewString(),
		selector: sel,
		handler:  handler,
		owner:    owner,
	}
	if lc, ok := any(handler).(Lifecycle); ok {
		reg.lifecycle = lc
	}
	return reg
}

// ID returns the unique registration identifier.
func (r *Registration[T]) ID() string {
	return r.id
}

// Selector returns the selector the registration was created with.
func (r *Registration[T]) Selector() selector.Selector {
	return r.selector
}

// Handler returns the registered handler.
func (r *Registration[T]) Handler() T {
	return r.handler
}

// Cancel removes the registration from its registry and forwards the
// cancel to a Lifecycle handler. Only the first call has any effect.
func (r *Registration[T]) Cancel() *Registration[T] {
	r.TryCancel()
	return r
}

// TryCancel cancels the registration and reports whether this call did
// it. Dispatchers use it to deliver cancel-after-use registrations once.
func (r *Registration[T]) TryCancel() bool {
	if !r.owner.cancel(r) {
		return false
	}
	if r.lifecycle != nil {
		r.lifecycle.Cancel()
	}
	return true
}

// IsCancelled reports whether the registration was cancelled.
func (r *Registration[T]) IsCancelled() bool {
	return r.cancelled.Load()
}

// Pause marks the registration paused. Paused registrations are still
// returned by lookups; skipping them is up to the dispatcher.
func (r *Registration[T]) Pause() *Registration[T] {
	if r.setPaused(true) && r.lifecycle != nil {
		r.lifecycle.Pause()
	}
	return r
}

// Resume clears the paused flag.
func (r *Registration[T]) Resume() *Registration[T] {
	if r.setPaused(false) && r.lifecycle != nil {
		r.lifecycle.Resume()
	}
	return r
}

// IsPaused reports whether the registration is paused.
func (r *Registration[T]) IsPaused() bool {
	return r.paused.Load()
}

// CancelAfterUse toggles whether the dispatcher should cancel the
// registration after its first delivery.
func (r *Registration[T]) CancelAfterUse() *Registration[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cancelled.Load() {
		r.cancelAfterUse.Store(!r.cancelAfterUse.Load())
	}
	return r
}

// IsCancelAfterUse reports whether the registration is single-use.
func (r *Registration[T]) IsCancelAfterUse() bool {
	return r.cancelAfterUse.Load()
}

// setPaused reports whether the flag was changed. A cancelled
// registration keeps its flags.
func (r *Registration[T]) setPaused(paused bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancelled.Load() {
		return false
	}
	r.paused.Store(paused)
	return true
}

// markCancelled reports whether this call performed the cancellation.
func (r *Registration[T]) markCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cancelled.CompareAndSwap(false, true)
}
