package dispatch

import "errors"

var (
	// ErrAlreadyRunning is returned by Start on a running pool.
	ErrAlreadyRunning = errors.New("dispatcher is already running")

	// ErrNotRunning is returned when tasks are enqueued on, or Stop is
	// called for, a pool that is not running.
	ErrNotRunning = errors.New("dispatcher is not running")

	// ErrQueueFull is returned by Enqueue when the queue is at capacity.
	ErrQueueFull = errors.New("task queue is full")
)
