package routes

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dshills/eventroute/internal/registry"
)

// ErrWatcherClosed is returned by operations on a closed watcher.
var ErrWatcherClosed = errors.New("route watcher is closed")

// WatcherOption configures a Watcher.
type WatcherOption func(*watcherConfig)

type watcherConfig struct {
	debounce time.Duration
	logger   zerolog.Logger
	onReload func(*Table, error)
}

// WithDebounce sets how long the file must be quiet before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(c *watcherConfig) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(l zerolog.Logger) WatcherOption {
	return func(c *watcherConfig) {
		c.logger = l
	}
}

// WithReloadHook sets a function called after every reload triggered by a
// file change, with the new table or the error that kept the old one.
func WithReloadHook(fn func(*Table, error)) WatcherOption {
	return func(c *watcherConfig) {
		c.onReload = fn
	}
}

// Watcher keeps a registry in sync with a route table file. A reload that
// fails leaves the previous routes in place.
type Watcher[T any] struct {
	path     string
	reg      *registry.Registry[T]
	handlers map[string]T
	config   watcherConfig
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	current []*registry.Registration[T]
	closed  bool

	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// NewWatcher applies the table at path to reg and starts watching it for
// changes. The parent directory is watched so that editors replacing the
// file are noticed.
func NewWatcher[T any](path string, reg *registry.Registry[T], handlers map[string]T, opts ...WatcherOption) (*Watcher[T], error) {
	config := watcherConfig{
		debounce: 100 * time.Millisecond,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher[T]{
		path:     abs,
		reg:      reg,
		handlers: handlers,
		config:   config,
		closeCh:  make(chan struct{}),
	}
	if err := w.Reload(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		Remove(w.current)
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		Remove(w.current)
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	w.fsw = fsw

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the absolute path of the watched table.
func (w *Watcher[T]) Path() string {
	return w.path
}

// Registrations returns the registrations of the active table.
func (w *Watcher[T]) Registrations() []*registry.Registration[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*registry.Registration[T](nil), w.current...)
}

// Reload re-reads the table and swaps its routes into the registry. The new
// routes are registered before the old ones are cancelled.
func (w *Watcher[T]) Reload() error {
	_, err := w.reload()
	return err
}

func (w *Watcher[T]) reload() (*Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWatcherClosed
	}

	t, err := Load(w.path)
	if err != nil {
		return nil, err
	}
	regs, err := Apply(w.reg, t, w.handlers)
	if err != nil {
		return nil, err
	}

	Remove(w.current)
	w.current = regs

	w.config.logger.Info().
		Str("path", w.path).
		Int("routes", len(regs)).
		Msg("route table applied")
	return t, nil
}

// Close stops watching. Registered routes stay in the registry.
func (w *Watcher[T]) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.closeCh)
	err := w.fsw.Close()
	w.closedWg.Wait()
	return err
}

func (w *Watcher[T]) processLoop() {
	defer w.closedWg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.config.debounce)
			} else {
				timer.Reset(w.config.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reloadFromEvent()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.config.logger.Warn().Err(err).Str("path", w.path).Msg("route watcher error")
		}
	}
}

func (w *Watcher[T]) reloadFromEvent() {
	t, err := w.reload()
	if errors.Is(err, ErrWatcherClosed) {
		return
	}
	if err != nil {
		w.config.logger.Error().Err(err).Str("path", w.path).Msg("route table reload failed, keeping previous routes")
	}
	if w.config.onReload != nil {
		w.config.onReload(t, err)
	}
}
