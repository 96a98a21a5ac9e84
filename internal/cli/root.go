// Package cli defines the lasttab command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/atomicstack/lasttab/internal/config"
	"github.com/atomicstack/lasttab/internal/control/client"
	"github.com/atomicstack/lasttab/internal/logging"
	"github.com/atomicstack/lasttab/internal/logging/events"
)

// ErrConfiguration marks failures to load or validate the configuration.
var ErrConfiguration = errors.New("configuration error")

// Options wires the command tree to its environment.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// Args are recorded in the startup trace. Defaults to os.Args[1:].
	Args []string
	// OnStartup runs once configuration and logging are in place.
	OnStartup func(config.Config)
}

type runner struct {
	opts    Options
	manager *config.Manager
}

// NewRootCommand builds the lasttab command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Args == nil {
		opts.Args = os.Args[1:]
	}
	r := &runner{opts: opts}
	root := &cobra.Command{
		Use:   "lasttab",
		Short: "Most-recently-used window switching for tmux",
		Long: `lasttab tracks the order in which tmux windows were used and switches
between them.

Run 'lasttab daemon' once per tmux server, then bind keys to
'lasttab quick-switch' and 'lasttab show-mru-popup' (see 'lasttab bindings').`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.setup,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		r.daemonCommand(),
		r.popupCommand(),
		r.shortcutCommand("quick-switch", "Switch to the previously used window"),
		r.shortcutCommand("show-mru-popup", "Open or close the recent windows popup"),
		r.settingsCommand(),
		r.statusCommand(),
		r.refreshCommand(),
		r.bindingsCommand(),
	)
	return root
}

// Execute runs the command tree against the process arguments.
func Execute(ctx context.Context, opts Options) error {
	return NewRootCommand(opts).ExecuteContext(ctx)
}

func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "help", "completion", "__complete":
		return nil
	}
	m, err := config.Load(cmd.Flags(), r.opts.Args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	r.manager = m
	cfg := m.Config()
	applyLogging(cfg)
	if r.opts.OnStartup != nil {
		r.opts.OnStartup(cfg)
	}
	return nil
}

func (r *runner) config() config.Config {
	return r.manager.Config()
}

func (r *runner) client() (*client.Client, error) {
	return client.New(r.config().Control.Socket)
}

func applyLogging(cfg config.Config) {
	logging.Configure(cfg.Logging.FilePath)
	if err := logging.SetLevel(cfg.Logging.Level); err != nil {
		logging.Error(err)
	}
	logging.SetTraceEnabled(cfg.Logging.Trace)
}

func reloadLogging(cfg config.Config) {
	applyLogging(cfg)
	events.App.ConfigReload(cfg.File, cfg.Logging.Trace, cfg.Logging.Level)
}
