package event

import "context"

// Handler consumes events delivered by a Bus.
type Handler interface {
	Handle(ctx context.Context, ev *Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, ev *Event) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, ev *Event) error {
	return f(ctx, ev)
}

// ReceiveFunc answers an event. Its result becomes the payload of the
// reply sent to the event's ReplyTo key.
type ReceiveFunc func(ctx context.Context, ev *Event) (any, error)

// Mode selects how a Bus runs handlers.
type Mode string

// Dispatch modes.
const (
	// ModeSync runs handlers in the notifying goroutine; Notify returns
	// their errors.
	ModeSync Mode = "sync"

	// ModeAsync queues handlers on a worker pool; their errors are logged
	// and counted.
	ModeAsync Mode = "async"
)
