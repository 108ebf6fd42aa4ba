package main

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dshills/eventroute/internal/config"
	"github.com/dshills/eventroute/internal/logging"
)

// errNoRoutes is returned by commands that need a route table.
var errNoRoutes = errors.New("no route table: pass --routes or set routes.path")

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	routesPath string
	verbosity  int
	noColor    bool

	app *app
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "eventroute",
		Short: "Resolve event keys against selector route tables",
		Long: `eventroute loads a route table of selectors (exact keys, globs, regular
expressions, topics, URI templates, JSON fields and Lua predicates) into a
caching selector registry and shows which routes an event key reaches.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (TOML or YAML)")
	flags.StringVarP(&opts.routesPath, "routes", "r", "", "route table file, overrides routes.path")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newMatchCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// setup loads configuration and initializes logging before any command.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	if o.noColor {
		pterm.DisableStyling()
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.routesPath != "" {
		cfg.Routes.Path = o.routesPath
	}

	level := logging.ParseLevel(cfg.Log.Level)
	if o.verbosity > 0 {
		level = logging.LevelForVerbosity(o.verbosity)
	}
	logger := logging.Setup(level, cfg.Log.Format, cmd.ErrOrStderr())
	logger.Debug().Str("command", cmd.Name()).Msg("command started")

	o.app = newApp(cfg, logger)
	return nil
}

// tablePath returns the configured route table or errNoRoutes.
func (o *rootOptions) tablePath() (string, error) {
	if o.app == nil || o.app.cfg.Routes.Path == "" {
		return "", errNoRoutes
	}
	return o.app.cfg.Routes.Path, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "eventroute version %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
