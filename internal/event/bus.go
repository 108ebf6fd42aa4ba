package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/eventroute/internal/event/dispatch"
	"github.com/dshills/eventroute/internal/registry"
	"github.com/dshills/eventroute/internal/selector"
)

// Bus routes events to handlers through a caching selector registry.
type Bus struct {
	registry *registry.Registry[Handler]

	syncDispatcher  *dispatch.SyncDispatcher
	asyncDispatcher *dispatch.AsyncDispatcher

	running atomic.Bool
	config  busConfig
	logger  zerolog.Logger
}

// NewBus creates a bus. Call Start before notifying.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	b := &Bus{
		registry: registry.New[Handler](config.registry...),
		config:   config,
		logger:   config.logger,
	}

	if config.mode == ModeAsync {
		b.asyncDispatcher = dispatch.NewAsyncDispatcher(
			dispatch.WithQueueSize(config.queueSize),
			dispatch.WithWorkerCount(config.workerCount),
			dispatch.WithAsyncTimeout(config.timeout),
		)
	} else {
		b.syncDispatcher = dispatch.NewSyncDispatcher(
			dispatch.WithTimeout(config.timeout),
		)
	}
	return b
}

// Registry exposes the bus's registry for inspection and bulk operations.
func (b *Bus) Registry() *registry.Registry[Handler] {
	return b.registry
}

// Start begins accepting notifications.
func (b *Bus) Start() error {
	if b.running.Load() {
		return ErrBusAlreadyRunning
	}
	if b.asyncDispatcher != nil {
		if err := b.asyncDispatcher.Start(); err != nil {
			return fmt.Errorf("start dispatcher: %w", err)
		}
	}
	b.running.Store(true)
	return nil
}

// Stop stops accepting notifications and, in async mode, waits for queued
// deliveries until ctx is done.
func (b *Bus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return ErrBusNotRunning
	}
	if b.asyncDispatcher != nil {
		return b.asyncDispatcher.Stop(ctx)
	}
	return nil
}

// IsRunning returns true if the bus accepts notifications.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

// On registers h for every key matched by sel.
func (b *Bus) On(sel selector.Selector, h Handler) (*registry.Registration[Handler], error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	return b.registry.Register(sel, h)
}

// OnFunc registers a function handler.
func (b *Bus) OnFunc(sel selector.Selector, fn HandlerFunc) (*registry.Registration[Handler], error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.On(sel, fn)
}

// Receive registers fn as a responder. When the handled event has a
// ReplyTo key, fn's result is notified to it as a reply event.
func (b *Bus) Receive(sel selector.Selector, fn ReceiveFunc) (*registry.Registration[Handler], error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.On(sel, &responder{bus: b, fn: fn})
}

// responder is the handler installed by Receive. Send uses its type to
// tell whether any delivery can produce a reply.
type responder struct {
	bus *Bus
	fn  ReceiveFunc
}

func (r *responder) Handle(ctx context.Context, ev *Event) error {
	data, err := r.fn(ctx, ev)
	if err != nil {
		return err
	}
	if ev.ReplyTo == nil {
		return nil
	}
	return r.bus.Notify(ctx, ev.ReplyTo, ev.Reply(data))
}

// Notify delivers ev to every active registration matching key.
//
// Paused registrations are skipped, as are registrations the event has
// already passed through. A cancel-after-use registration is cancelled
// before its delivery and receives the event at most once. In sync mode
// the handlers' failures are returned joined; in async mode only queueing
// failures are returned and handler failures are logged.
func (b *Bus) Notify(ctx context.Context, key any, ev *Event) error {
	_, err := b.notify(ctx, key, ev)
	return err
}

// Send notifies ev to key with reply routed to reply. The reply handler is
// registered under a fresh anonymous key and used once. It is dropped
// when no Receive responder accepted the event, including sync-mode
// responders that failed. An async responder that fails leaves the reply
// registration in place until it is cancelled or the registry is cleared.
func (b *Bus) Send(ctx context.Context, key any, ev *Event, reply Handler) error {
	if reply == nil {
		return ErrNilHandler
	}
	if ev == nil {
		return ErrInvalidEvent
	}

	sel, replyKey := selector.Anonymous()
	reg, err := b.On(sel, reply)
	if err != nil {
		return err
	}
	reg.CancelAfterUse()

	out := ev.Copy()
	out.ReplyTo = replyKey

	responders, err := b.notify(ctx, key, out)
	if responders == 0 {
		reg.Cancel()
	}
	return err
}

// NotifyAll notifies ev to each key concurrently, with at most the worker
// count in flight, and returns the first error.
func (b *Bus) NotifyAll(ctx context.Context, ev *Event, keys ...any) error {
	var g errgroup.Group
	g.SetLimit(b.config.workerCount)
	for _, key := range keys {
		g.Go(func() error {
			return b.Notify(ctx, key, ev)
		})
	}
	return g.Wait()
}

// notify returns the number of responders that accepted the event without
// error.
func (b *Bus) notify(ctx context.Context, key any, ev *Event) (int, error) {
	if !b.running.Load() {
		return 0, ErrBusNotRunning
	}
	if ev == nil {
		return 0, ErrInvalidEvent
	}

	regs, err := b.registry.Select(key)
	if err != nil {
		return 0, fmt.Errorf("select %v: %w", key, err)
	}
	b.config.metrics.notified()

	var errs []error
	responders := 0
	for _, reg := range regs {
		if reg.IsPaused() || ev.visited(reg.ID()) {
			continue
		}
		if reg.IsCancelAfterUse() && !reg.TryCancel() {
			continue
		}

		params := selector.ParamsOf(reg.Selector(), key)
		if err := b.deliver(ctx, key, reg, ev.deliver(key, reg.ID(), params)); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, ok := reg.Handler().(*responder); ok {
			responders++
		}
	}
	return responders, errors.Join(errs...)
}

func (b *Bus) deliver(ctx context.Context, key any, reg *registry.Registration[Handler], ev *Event) error {
	h := reg.Handler()
	task := func(ctx context.Context) error {
		return h.Handle(ctx, ev)
	}

	if b.asyncDispatcher != nil {
		err := b.asyncDispatcher.Enqueue(ctx, task, func(res dispatch.Result) {
			_ = b.observe(key, reg, res)
		})
		if err != nil {
			b.config.metrics.delivered(OutcomeDropped, 0)
			if errors.Is(err, dispatch.ErrQueueFull) {
				return fmt.Errorf("%w: registration %s", ErrQueueFull, reg.ID())
			}
			return err
		}
		return nil
	}

	return b.observe(key, reg, b.syncDispatcher.Dispatch(ctx, task))
}

// observe records and logs a dispatch result and converts it into a bus
// error.
func (b *Bus) observe(key any, reg *registry.Registration[Handler], res dispatch.Result) error {
	seconds := res.Duration.Seconds()
	switch {
	case res.Skipped:
		b.config.metrics.delivered(OutcomeSkipped, seconds)
		return &HandlerError{RegistrationID: reg.ID(), Key: key, Err: res.Error}
	case res.Panicked:
		b.config.metrics.delivered(OutcomePanic, seconds)
		b.logger.Error().
			Str("registration", reg.ID()).
			Interface("panic", res.PanicValue).
			Bytes("stack", res.PanicStack).
			Msg("handler panicked")
		return &PanicError{RegistrationID: reg.ID(), Key: key, Value: res.PanicValue, Stack: string(res.PanicStack)}
	case res.Error != nil:
		b.config.metrics.delivered(OutcomeError, seconds)
		b.logger.Error().Err(res.Error).Str("registration", reg.ID()).Msg("handler failed")
		return &HandlerError{RegistrationID: reg.ID(), Key: key, Err: res.Error}
	default:
		b.config.metrics.delivered(OutcomeOK, seconds)
		return nil
	}
}
