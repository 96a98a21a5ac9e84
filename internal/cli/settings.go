package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/atomicstack/lasttab/internal/format/table"
	"github.com/atomicstack/lasttab/internal/settings"
)

func (r *runner) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the feature toggles",
	}
	var asYAML bool
	get := &cobra.Command{
		Use:   "get [name...]",
		Short: "Print the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := r.client()
			if err != nil {
				return err
			}
			s, err := cl.Settings(cmd.Context())
			if err != nil {
				return err
			}
			if asYAML {
				return writeYAML(cmd.OutOrStdout(), s)
			}
			return writeSettings(cmd.OutOrStdout(), s, args)
		},
	}
	get.Flags().BoolVar(&asYAML, "yaml", false, "print as YAML")

	set := &cobra.Command{
		Use:   "set name=value...",
		Short: "Update one or more settings",
		Example: `  lasttab settings set holdModeEnabled=true
  lasttab settings set quickSwitchEnabled=false mruPopupEnabled=false`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := settings.ParseAssignments(args)
			if err != nil {
				return err
			}
			cl, err := r.client()
			if err != nil {
				return err
			}
			s, err := cl.UpdateSettings(cmd.Context(), patch)
			if err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), s, nil)
		},
	}
	cmd.AddCommand(get, set)
	return cmd
}

func writeSettings(w io.Writer, s settings.Settings, names []string) error {
	rows, err := settingsRows(s, names)
	if err != nil {
		return err
	}
	return table.Write(w, nil, rows, nil)
}

func settingsRows(s settings.Settings, names []string) ([][]string, error) {
	if len(names) == 0 {
		names = settings.Names()
	}
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		v, ok := s.Value(name)
		if !ok {
			return nil, fmt.Errorf("unknown setting %q", name)
		}
		rows = append(rows, []string{name, strconv.FormatBool(v)})
	}
	return rows, nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
