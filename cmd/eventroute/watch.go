package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/eventroute/internal/event"
	"github.com/dshills/eventroute/internal/logging"
	"github.com/dshills/eventroute/internal/registry"
	"github.com/dshills/eventroute/internal/routes"
)

// Built-in handler names available to route tables used with watch.
const (
	handlerPrint   = "print"
	handlerLog     = "log"
	handlerDiscard = "discard"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Route keys read from stdin, one per line",
		Long: `watch applies the route table and notifies every line read from stdin
as an event key. Routes may name the built-in handlers "print" (write the
delivery to stdout), "log" (log it at info level) or "discard"; any other
handler name prints. With routes.watch set, edits to the table are applied
without restarting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := opts.tablePath()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, opts.app, path, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// lockedWriter serializes writes from concurrent handlers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// builtinHandlers returns the handlers watch binds route names to. Names
// in tbl that are not built in print.
func builtinHandlers(tbl *routes.Table, out io.Writer, logger zerolog.Logger) map[string]event.Handler {
	printer := event.HandlerFunc(func(_ context.Context, ev *event.Event) error {
		trail := ev.Trail()
		_, err := fmt.Fprintf(out, "%v\t%s\t%s\n", ev.Key, trail[len(trail)-1], formatParams(ev.Headers))
		return err
	})

	handlers := map[string]event.Handler{
		handlerPrint: printer,
		handlerLog: event.HandlerFunc(func(_ context.Context, ev *event.Event) error {
			logger.Info().
				Interface("key", ev.Key).
				Str("event", ev.ID).
				Interface("headers", ev.Headers).
				Msg("event routed")
			return nil
		}),
		handlerDiscard: event.HandlerFunc(func(context.Context, *event.Event) error { return nil }),
	}
	if tbl != nil {
		for _, r := range tbl.Routes {
			if _, ok := handlers[r.Handler]; !ok {
				handlers[r.Handler] = printer
			}
		}
	}
	return handlers
}

// runWatch routes stdin lines until EOF or ctx is done.
func runWatch(ctx context.Context, a *app, path string, in io.Reader, out, errOut io.Writer) error {
	bus := a.newBus()

	tbl, err := routes.Load(path)
	if err != nil {
		return err
	}
	handlers := builtinHandlers(tbl, &lockedWriter{w: out}, logging.For("watch"))

	if a.cfg.Routes.Watch {
		w, err := routes.NewWatcher(path, bus.Registry(), handlers,
			routes.WithWatchLogger(logging.For("routes")),
			routes.WithReloadHook(func(t *routes.Table, err error) {
				if err == nil {
					a.logger.Info().Int("routes", len(t.Routes)).Msg("route table reloaded")
				}
			}),
		)
		if err != nil {
			return err
		}
		defer w.Close()
	} else {
		var regs []*registry.Registration[event.Handler]
		if regs, err = routes.Apply(bus.Registry(), tbl, handlers); err != nil {
			return err
		}
		defer routes.Remove(regs)
	}

	if err := bus.Start(); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			a.logger.Error().Err(err).Msg("reading stdin")
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			key := strings.TrimSpace(line)
			if key == "" {
				continue
			}
			if err := bus.Notify(ctx, key, event.New(line)); err != nil {
				a.logger.Warn().Err(err).Str("key", key).Msg("notify failed")
			}
		}
	}

	// Drain queued deliveries even after an interrupt.
	if err := bus.Stop(context.Background()); err != nil {
		return err
	}
	return a.writeMetrics(errOut)
}
