package dispatch

import (
	"context"
	"sync/atomic"
	"time"
)

// SyncDispatcher executes tasks in the caller's goroutine.
type SyncDispatcher struct {
	executor *Executor
	timeout  time.Duration

	dispatched atomic.Uint64
	failed     atomic.Uint64
	panicked   atomic.Uint64
	skipped    atomic.Uint64
}

// SyncOption configures a SyncDispatcher.
type SyncOption func(*SyncDispatcher)

// WithPanicHandler sets the panic handler.
func WithPanicHandler(h PanicHandler) SyncOption {
	return func(d *SyncDispatcher) {
		d.executor = NewExecutor(h)
	}
}

// WithTimeout bounds each task. Zero means no timeout.
func WithTimeout(timeout time.Duration) SyncOption {
	return func(d *SyncDispatcher) {
		d.timeout = timeout
	}
}

// NewSyncDispatcher creates a synchronous dispatcher.
func NewSyncDispatcher(opts ...SyncOption) *SyncDispatcher {
	d := &SyncDispatcher{executor: NewExecutor(nil)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs task and blocks until it completes, panics or is skipped.
func (d *SyncDispatcher) Dispatch(ctx context.Context, task Task) Result {
	d.dispatched.Add(1)

	result := d.executor.ExecuteWithTimeout(ctx, task, d.timeout)
	switch {
	case result.Skipped:
		d.skipped.Add(1)
	case result.Panicked:
		d.panicked.Add(1)
	case result.Error != nil:
		d.failed.Add(1)
	}
	return result
}

// SyncStats contains counters for a sync dispatcher.
type SyncStats struct {
	Dispatched uint64
	Failed     uint64
	Panicked   uint64
	Skipped    uint64
}

// Stats returns dispatch counters. Values are read independently and may
// be slightly inconsistent under concurrent dispatch.
func (d *SyncDispatcher) Stats() SyncStats {
	return SyncStats{
		Dispatched: d.dispatched.Load(),
		Failed:     d.failed.Load(),
		Panicked:   d.panicked.Load(),
		Skipped:    d.skipped.Load(),
	}
}
