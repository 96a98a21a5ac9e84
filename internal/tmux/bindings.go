package tmux

import (
	"fmt"
	"strings"
)

// Binding is a tmux key binding that runs a lasttab command through
// run-shell.
type Binding struct {
	Key string
	// Table is the key table: "root" binds without the prefix, empty or
	// "prefix" binds after it.
	Table string
	Argv  []string
}

func (b Binding) args() []string {
	args := []string{"bind-key"}
	switch b.Table {
	case "", "prefix":
	case "root":
		args = append(args, "-n")
	default:
		args = append(args, "-T", b.Table)
	}
	return append(args, b.Key, "run-shell", "-b", joinArgs(b.Argv))
}

// String renders the binding as a tmux.conf line.
func (b Binding) String() string {
	args := b.args()
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// Bind installs bindings on the running server.
func (h *Host) Bind(bindings ...Binding) error {
	c, err := client(h.socketPath)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		if strings.TrimSpace(b.Key) == "" {
			return fmt.Errorf("bind-key: empty key")
		}
		if _, err := c.Command(b.args()...); err != nil {
			if !isNotFound(err) {
				invalidate(c)
			}
			return fmt.Errorf("bind-key %s: %w", b.Key, err)
		}
	}
	return nil
}
