package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	// ErrBusNotRunning is returned when operations are attempted on a stopped bus.
	ErrBusNotRunning = errors.New("event bus is not running")

	// ErrBusAlreadyRunning is returned when Start is called on a running bus.
	ErrBusAlreadyRunning = errors.New("event bus is already running")

	// ErrQueueFull is returned when the async queue cannot accept a delivery.
	ErrQueueFull = errors.New("event queue is full")

	// ErrInvalidEvent is returned when a nil event is notified.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrHandlerPanic is matched by every PanicError.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// HandlerError wraps an error returned by a handler.
type HandlerError struct {
	// RegistrationID identifies the registration whose handler failed.
	RegistrationID string

	// Key is the key the event was notified with.
	Key any

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler error for registration %s on key %v: %v", e.RegistrationID, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a recovered handler panic.
type PanicError struct {
	// RegistrationID identifies the registration whose handler panicked.
	RegistrationID string

	// Key is the key the event was notified with.
	Key any

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic for registration %s on key %v: %v", e.RegistrationID, e.Key, e.Value)
}

// Is reports whether target is ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
