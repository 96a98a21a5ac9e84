package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/atomicstack/lasttab/internal/control/client"
	"github.com/atomicstack/lasttab/internal/format/table"
)

func (r *runner) statusCommand() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the MRU stack, settings and open session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := r.client()
			if err != nil {
				return err
			}
			st, err := cl.Status(cmd.Context())
			if err != nil {
				return err
			}
			if asYAML {
				return writeYAML(cmd.OutOrStdout(), st)
			}
			return writeStatus(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as YAML")
	return cmd
}

func writeStatus(w io.Writer, st client.Status) error {
	fmt.Fprintln(w, "stack:")
	if len(st.Stack) == 0 {
		fmt.Fprintln(w, "  (empty)")
	} else {
		rows := make([][]string, 0, len(st.Stack))
		for i, ref := range st.Stack {
			rows = append(rows, []string{"  " + strconv.Itoa(i+1), ref.TabID, ref.WindowID})
		}
		if err := table.Write(w, nil, rows, []table.Alignment{table.AlignRight}); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "session:")
	if s := st.Session; s == nil {
		fmt.Fprintln(w, "  none")
	} else {
		fmt.Fprintf(w, "  %s %s attached=%t pending=%d\n", s.ID, s.Mode, s.Attached, s.Pending)
	}
	fmt.Fprintln(w, "settings:")
	rows, err := settingsRows(st.Settings, nil)
	if err != nil {
		return err
	}
	for _, row := range rows {
		row[0] = "  " + row[0]
	}
	return table.Write(w, nil, rows, nil)
}
