package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults for an AsyncDispatcher built without options.
const (
	DefaultQueueSize   = 1024
	DefaultWorkerCount = 4
)

// AsyncDispatcher executes tasks on a fixed pool of workers fed by a
// bounded queue. Enqueue never blocks: a full queue rejects the task.
type AsyncDispatcher struct {
	queueSize   int
	workerCount int
	timeout     time.Duration

	mu      sync.Mutex // guards queue creation and close
	queue   chan asyncTask
	running atomic.Bool
	wg      sync.WaitGroup

	executor *Executor

	enqueued  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
	dropped   atomic.Uint64
	timedOut  atomic.Uint64
}

type asyncTask struct {
	ctx  context.Context
	task Task
	done ResultHandler
}

// AsyncOption configures an AsyncDispatcher.
type AsyncOption func(*AsyncDispatcher)

// WithQueueSize sets the task queue capacity.
func WithQueueSize(size int) AsyncOption {
	return func(d *AsyncDispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) AsyncOption {
	return func(d *AsyncDispatcher) {
		if count > 0 {
			d.workerCount = count
		}
	}
}

// WithAsyncTimeout bounds each task. Zero means no timeout.
func WithAsyncTimeout(timeout time.Duration) AsyncOption {
	return func(d *AsyncDispatcher) {
		d.timeout = timeout
	}
}

// WithAsyncPanicHandler sets the panic handler used by workers.
func WithAsyncPanicHandler(h PanicHandler) AsyncOption {
	return func(d *AsyncDispatcher) {
		d.executor = NewExecutor(h)
	}
}

// NewAsyncDispatcher creates an asynchronous dispatcher. Call Start before
// enqueueing.
func NewAsyncDispatcher(opts ...AsyncOption) *AsyncDispatcher {
	d := &AsyncDispatcher{
		queueSize:   DefaultQueueSize,
		workerCount: DefaultWorkerCount,
		executor:    NewExecutor(nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker pool.
func (d *AsyncDispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return ErrAlreadyRunning
	}

	d.queue = make(chan asyncTask, d.queueSize)
	d.running.Store(true)

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(d.queue)
	}
	return nil
}

// Stop closes the queue and waits for workers to drain it, or for ctx to
// end, whichever comes first.
func (d *AsyncDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return ErrNotRunning
	}
	d.running.Store(false)
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue schedules task for execution. done, if not nil, receives the
// result on the worker goroutine and should return quickly. Enqueue
// returns ErrNotRunning when the pool is stopped and ErrQueueFull when
// the queue is at capacity.
func (d *AsyncDispatcher) Enqueue(ctx context.Context, task Task, done ResultHandler) error {
	// Holding mu keeps Stop from closing the queue under a pending send.
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return ErrNotRunning
	}

	select {
	case d.queue <- asyncTask{ctx: ctx, task: task, done: done}:
		d.enqueued.Add(1)
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

func (d *AsyncDispatcher) worker(queue <-chan asyncTask) {
	defer d.wg.Done()

	for t := range queue {
		result := d.executor.ExecuteWithTimeout(t.ctx, t.task, d.timeout)
		d.processed.Add(1)

		switch {
		case result.Panicked:
			d.panicked.Add(1)
		case result.Error != nil:
			if errors.Is(result.Error, context.DeadlineExceeded) {
				d.timedOut.Add(1)
			}
			d.failed.Add(1)
		}

		if t.done != nil {
			t.done(result)
		}
	}
}

// QueueDepth returns the number of tasks waiting in the queue.
func (d *AsyncDispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return 0
	}
	return len(d.queue)
}

// IsRunning returns true if the pool is accepting tasks.
func (d *AsyncDispatcher) IsRunning() bool {
	return d.running.Load()
}

// AsyncStats contains counters for an async dispatcher.
type AsyncStats struct {
	Enqueued   uint64
	Processed  uint64
	Failed     uint64
	Panicked   uint64
	Dropped    uint64
	TimedOut   uint64
	QueueDepth int
}

// Stats returns dispatcher counters.
func (d *AsyncDispatcher) Stats() AsyncStats {
	return AsyncStats{
		Enqueued:   d.enqueued.Load(),
		Processed:  d.processed.Load(),
		Failed:     d.failed.Load(),
		Panicked:   d.panicked.Load(),
		Dropped:    d.dropped.Load(),
		TimedOut:   d.timedOut.Load(),
		QueueDepth: d.QueueDepth(),
	}
}
