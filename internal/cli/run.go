package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atomicstack/lasttab/internal/app"
	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/switcher"
)

func (r *runner) daemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Track window usage and serve the control socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			r.manager.OnChange(reloadLogging)
			r.manager.Watch()
			return app.RunDaemon(ctx, r.config())
		},
	}
}

func (r *runner) popupCommand() *cobra.Command {
	var (
		mode      string
		sessionID string
	)
	cmd := &cobra.Command{
		Use:   "popup",
		Short: "Render a selection session (started by the daemon inside display-popup)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := session.ParseKind(mode)
			if err != nil {
				return err
			}
			return app.RunPopup(cmd.Context(), r.config(), app.PopupRequest{SessionID: sessionID, Mode: kind})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(session.KindBrowse), "session mode: browse, quick or hold")
	cmd.Flags().StringVar(&sessionID, "session", "", "daemon session id to attach to")
	return cmd
}

func (r *runner) shortcutCommand(name, short string) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := r.client()
			if err != nil {
				return err
			}
			result, err := cl.Command(cmd.Context(), switcher.Shortcut(name))
			if err != nil {
				return err
			}
			if verbose {
				if result.Mode != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", result.Action, result.Mode)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), result.Action)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print what the daemon did")
	return cmd
}

func (r *runner) refreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ask the daemon to poll tmux immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := r.client()
			if err != nil {
				return err
			}
			return cl.Refresh(cmd.Context())
		},
	}
}
