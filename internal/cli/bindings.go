package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atomicstack/lasttab/internal/tmux"
)

func (r *runner) bindingsCommand() *cobra.Command {
	var (
		quickKey string
		popupKey string
		keyTable string
		install  bool
	)
	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "Print (or install) tmux key bindings for the shortcuts",
		Long: `Print tmux.conf lines binding the quick-switch and popup shortcuts.

With --install the bindings are applied to the running tmux server instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}
			bindings := shortcutBindings(exe, keyTable, quickKey, popupKey)
			if install {
				socket, err := tmux.ResolveSocketPath(r.config().Tmux.Socket)
				if err != nil {
					return fmt.Errorf("resolve socket path: %w", err)
				}
				defer tmux.Shutdown()
				return tmux.NewHost(socket).Bind(bindings...)
			}
			for _, b := range bindings {
				fmt.Fprintln(cmd.OutOrStdout(), b.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&quickKey, "quick-switch-key", "M-Tab", "key for quick-switch (empty to skip)")
	cmd.Flags().StringVar(&popupKey, "popup-key", "M-w", "key for show-mru-popup (empty to skip)")
	cmd.Flags().StringVar(&keyTable, "table", "root", `key table ("root" needs no prefix, "prefix" does)`)
	cmd.Flags().BoolVar(&install, "install", false, "apply the bindings to the running tmux server")
	return cmd
}

func shortcutBindings(exe, keyTable, quickKey, popupKey string) []tmux.Binding {
	var out []tmux.Binding
	if quickKey != "" {
		out = append(out, tmux.Binding{Key: quickKey, Table: keyTable, Argv: []string{exe, "quick-switch"}})
	}
	if popupKey != "" {
		out = append(out, tmux.Binding{Key: popupKey, Table: keyTable, Argv: []string{exe, "show-mru-popup"}})
	}
	return out
}
