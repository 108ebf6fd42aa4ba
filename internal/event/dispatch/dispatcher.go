package dispatch

import (
	"context"
	"time"
)

// Task is one unit of handler work. The dispatcher owns panic recovery
// and timeouts; the task only does the work.
type Task func(ctx context.Context) error

// Result represents the outcome of a task execution.
type Result struct {
	// Error is the error returned by the task, if any.
	Error error

	// Panicked is true if the task panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the task took to execute.
	Duration time.Duration

	// Skipped is true if the task was not executed because the context
	// was already done.
	Skipped bool
}

// IsSuccess returns true if the task ran to completion without error.
func (r Result) IsSuccess() bool {
	return !r.Skipped && !r.Panicked && r.Error == nil
}

// PanicHandler is called when a task panics.
type PanicHandler func(panicValue any, stack []byte)

// ResultHandler receives the result of an asynchronously executed task.
type ResultHandler func(Result)
