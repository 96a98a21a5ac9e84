package tmux

import (
	"context"
	"fmt"
	"strings"

	"github.com/atomicstack/lasttab/internal/controller"
)

// PopupOptions sizes and labels the popup surface.
type PopupOptions struct {
	Width  string
	Height string
	Title  string
}

// DefaultPopupOptions matches the size the popup renders best at.
func DefaultPopupOptions() PopupOptions {
	return PopupOptions{Width: "60%", Height: "50%", Title: " lasttab "}
}

// PopupLauncher opens selection sessions in a tmux popup on the focused
// terminal client.
type PopupLauncher struct {
	host    *Host
	command []string
	opts    PopupOptions
}

// NewPopupLauncher returns a launcher that runs command (the popup binary
// and its leading arguments) with the session mode and id appended.
func NewPopupLauncher(h *Host, command []string, opts PopupOptions) *PopupLauncher {
	def := DefaultPopupOptions()
	if opts.Width == "" {
		opts.Width = def.Width
	}
	if opts.Height == "" {
		opts.Height = def.Height
	}
	return &PopupLauncher{host: h, command: append([]string(nil), command...), opts: opts}
}

func (l *PopupLauncher) Launch(ctx context.Context, req controller.LaunchRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(l.command) == 0 {
		return fmt.Errorf("launch popup: no command configured")
	}
	c, err := client(l.host.socketPath)
	if err != nil {
		return err
	}
	target, ok := focusedClient(c)
	if !ok {
		return fmt.Errorf("launch popup: %w", errNoClient)
	}
	args := popupArgs(target.name, l.opts, l.commandLine(req))
	if _, err := c.Command(args...); err != nil {
		if !isNotFound(err) {
			invalidate(c)
		}
		return fmt.Errorf("display-popup: %w", err)
	}
	return nil
}

func (l *PopupLauncher) commandLine(req controller.LaunchRequest) string {
	argv := append([]string(nil), l.command...)
	argv = append(argv, "--mode", string(req.Mode), "--session", req.SessionID)
	return joinArgs(argv)
}

func joinArgs(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func popupArgs(clientName string, opts PopupOptions, command string) []string {
	args := []string{"display-popup", "-E"}
	if clientName != "" {
		args = append(args, "-c", clientName)
	}
	args = append(args, "-w", opts.Width, "-h", opts.Height)
	if opts.Title != "" {
		args = append(args, "-T", opts.Title)
	}
	return append(args, command)
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r == '-' || r == '_' || r == '.' || r == '/' || r == '=' || r == ':' || r == '%' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
