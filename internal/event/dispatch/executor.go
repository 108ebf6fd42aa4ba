package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Executor runs tasks with panic recovery and timing.
type Executor struct {
	panicHandler PanicHandler
}

// NewExecutor creates an executor. A nil panic handler recovers silently.
func NewExecutor(h PanicHandler) *Executor {
	return &Executor{panicHandler: h}
}

// Execute runs task and returns its result. Panics are recovered and
// reported through the result.
func (e *Executor) Execute(ctx context.Context, task Task) (result Result) {
	if err := ctx.Err(); err != nil {
		return Result{Error: err, Skipped: true}
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			if e.panicHandler != nil {
				func() {
					// a panicking panic handler must not escape
					defer func() { _ = recover() }()
					e.panicHandler(r, stack)
				}()
			}
		}
	}()

	result.Error = task(ctx)
	return result
}

// ExecuteWithTimeout runs task under a derived context that expires after
// timeout. A non-positive timeout behaves like Execute. The task must
// observe ctx for the timeout to have effect.
func (e *Executor) ExecuteWithTimeout(ctx context.Context, task Task, timeout time.Duration) Result {
	if timeout <= 0 {
		return e.Execute(ctx, task)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return e.Execute(ctx, task)
}
