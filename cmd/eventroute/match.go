package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/eventroute/internal/event"
	"github.com/dshills/eventroute/internal/logging"
	"github.com/dshills/eventroute/internal/routes"
)

// match is one delivery observed by the match command.
type match struct {
	keyIndex   int
	routeIndex int
	key        string
	route      routes.Route
	params     map[string]string
}

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "match KEY...",
		Short: "Show the routes each key reaches",
		Long: `match loads the route table, notifies each key through the event bus
and lists the routes whose handlers received it. URI template variables
bound by a route are shown as params.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, keys []string) error {
			path, err := opts.tablePath()
			if err != nil {
				return err
			}
			matches, err := runMatch(cmd.Context(), opts.app, path, keys, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if asJSON {
				return writeMatchesJSON(cmd.OutOrStdout(), keys, matches)
			}
			return writeMatchesTable(cmd.OutOrStdout(), keys, matches)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print matches as JSON")
	return cmd
}

// runMatch routes every key through a bus built from the table at path
// and returns the deliveries in key then route order. Metrics, when
// enabled, are written to metricsOut.
func runMatch(ctx context.Context, a *app, path string, keys []string, metricsOut io.Writer) ([]match, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	done := logging.LogOperationStart(a.logger, "match")
	defer done()

	tbl, err := routes.Load(path)
	if err != nil {
		return nil, err
	}

	bus := a.newBus()

	var (
		mu      sync.Mutex
		matches []match
		byID    = make(map[string]int)
	)
	record := event.HandlerFunc(func(_ context.Context, ev *event.Event) error {
		trail := ev.Trail()
		idx, ok := byID[trail[len(trail)-1]]
		if !ok {
			return nil
		}
		keyIndex, _ := ev.Data.(int)

		mu.Lock()
		defer mu.Unlock()
		matches = append(matches, match{
			keyIndex:   keyIndex,
			routeIndex: idx,
			key:        ev.Key.(string),
			route:      tbl.Routes[idx],
			params:     maps.Clone(ev.Headers),
		})
		return nil
	})

	handlers := make(map[string]event.Handler)
	for _, r := range tbl.Routes {
		handlers[r.Handler] = record
	}
	regs, err := routes.Apply(bus.Registry(), tbl, handlers)
	if err != nil {
		return nil, err
	}
	defer routes.Remove(regs)
	for i, reg := range regs {
		byID[reg.ID()] = i
	}

	if err := bus.Start(); err != nil {
		return nil, err
	}
	for i, key := range keys {
		if err := bus.Notify(ctx, key, event.New(i)); err != nil {
			a.logger.Warn().Err(err).Str("key", key).Msg("notify failed")
		}
	}
	if err := bus.Stop(ctx); err != nil {
		return nil, err
	}
	if err := a.writeMetrics(metricsOut); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].keyIndex != matches[j].keyIndex {
			return matches[i].keyIndex < matches[j].keyIndex
		}
		return matches[i].routeIndex < matches[j].routeIndex
	})
	return matches, nil
}

func kindOf(r routes.Route) string {
	if r.Kind == "" {
		return routes.KindExact
	}
	return r.Kind
}

func formatParams(params map[string]string) string {
	parts := make([]string, 0, len(params))
	for _, k := range slices.Sorted(maps.Keys(params)) {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, ",")
}

func writeMatchesTable(w io.Writer, keys []string, matches []match) error {
	data := pterm.TableData{{"KEY", "ROUTE", "KIND", "PATTERN", "HANDLER", "PARAMS"}}

	next := 0
	for i, key := range keys {
		found := false
		for ; next < len(matches) && matches[next].keyIndex == i; next++ {
			m := matches[next]
			data = append(data, []string{key, m.route.Label(), kindOf(m.route), m.route.Pattern, m.route.Handler, formatParams(m.params)})
			found = true
		}
		if !found {
			data = append(data, []string{key, "-", "-", "-", "-", ""})
		}
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func writeMatchesJSON(w io.Writer, keys []string, matches []match) error {
	doc := `{"matches":[],"unmatched":[]}`
	matched := make(map[int]bool)

	var err error
	for _, m := range matches {
		matched[m.keyIndex] = true
		doc, err = sjson.Set(doc, "matches.-1", map[string]any{
			"key":     m.key,
			"route":   m.route.Label(),
			"kind":    kindOf(m.route),
			"pattern": m.route.Pattern,
			"handler": m.route.Handler,
			"params":  m.params,
		})
		if err != nil {
			return fmt.Errorf("building json: %w", err)
		}
	}
	for i, key := range keys {
		if matched[i] {
			continue
		}
		if doc, err = sjson.Set(doc, "unmatched.-1", key); err != nil {
			return fmt.Errorf("building json: %w", err)
		}
	}

	_, err = w.Write(pretty.Pretty([]byte(doc)))
	return err
}
