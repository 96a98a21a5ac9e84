// Package tmux implements the lasttab host on top of a tmux server: every
// tmux window is a tab, every tmux session is a host window, and the focused
// window is the session of the most recently active terminal client.
package tmux

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gotmux "github.com/atomicstack/gotmuxcc/gotmuxcc"

	"github.com/atomicstack/lasttab/internal/host"
)

const (
	windowFormat = "#{window_id}\t#{session_id}\t#{session_name}\t#{window_active}\t#{window_name}\t#{pane_current_path}\t#{pane_current_command}"
	clientFormat = "#{client_name}\t#{client_session}\t#{client_activity}\t#{client_control_mode}"
)

// Host talks to one tmux server through a shared control-mode client.
type Host struct {
	socketPath string
}

// NewHost returns a host bound to socketPath. An empty path uses the tmux
// default server.
func NewHost(socketPath string) *Host {
	return &Host{socketPath: socketPath}
}

// SocketPath reports the server socket the host talks to.
func (h *Host) SocketPath() string { return h.socketPath }

func (h *Host) Snapshot(ctx context.Context) (host.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return host.Snapshot{}, err
	}
	c, err := client(h.socketPath)
	if err != nil {
		return host.Snapshot{}, err
	}
	raw, err := c.ListWindowsFormat("", "", windowFormat)
	if err != nil {
		invalidate(c)
		return host.Snapshot{}, fmt.Errorf("list windows: %w", err)
	}
	focused, _ := focusedClient(c)
	return buildSnapshot(parseWindowLines(raw), focused.session), nil
}

func (h *Host) ActivateTab(ctx context.Context, tabID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := client(h.socketPath)
	if err != nil {
		return err
	}
	if err := c.SelectWindow(tabID); err != nil {
		if !isNotFound(err) {
			invalidate(c)
		}
		return fmt.Errorf("select-window %s: %w", tabID, classify(err, host.ErrTabNotFound))
	}
	return nil
}

func (h *Host) FocusWindow(ctx context.Context, windowID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := client(h.socketPath)
	if err != nil {
		return err
	}
	target, ok := focusedClient(c)
	if !ok {
		return fmt.Errorf("switch-client %s: %w", windowID, errNoClient)
	}
	opts := &gotmux.SwitchClientOptions{TargetSession: windowID, TargetClient: target.name}
	if err := c.SwitchClient(opts); err != nil {
		if !isNotFound(err) {
			invalidate(c)
		}
		return fmt.Errorf("switch-client %s: %w", windowID, classify(err, host.ErrWindowNotFound))
	}
	return nil
}

// FocusedClient returns the name of the terminal client lasttab steers.
func (h *Host) FocusedClient() string {
	c, err := client(h.socketPath)
	if err != nil {
		return ""
	}
	target, _ := focusedClient(c)
	return target.name
}

func parseWindowLines(raw []string) []windowLine {
	lines := make([]windowLine, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 7)
		if len(parts) < 5 {
			continue
		}
		for len(parts) < 7 {
			parts = append(parts, "")
		}
		wl := windowLine{
			windowID:    strings.TrimSpace(parts[0]),
			sessionID:   strings.TrimSpace(parts[1]),
			sessionName: parts[2],
			active:      strings.TrimSpace(parts[3]) == "1",
			name:        parts[4],
			path:        parts[5],
			command:     parts[6],
		}
		if wl.windowID == "" || wl.sessionID == "" {
			continue
		}
		lines = append(lines, wl)
	}
	return lines
}

// buildSnapshot groups window lines by session in listing order. A window
// linked into several sessions is reported once, under the first session
// that lists it.
func buildSnapshot(lines []windowLine, focusedSession string) host.Snapshot {
	var snap host.Snapshot
	index := make(map[string]int)
	seen := make(map[string]bool)
	for _, wl := range lines {
		if seen[wl.windowID] {
			continue
		}
		seen[wl.windowID] = true
		i, ok := index[wl.sessionID]
		if !ok {
			i = len(snap.Windows)
			index[wl.sessionID] = i
			snap.Windows = append(snap.Windows, host.Window{
				ID:      wl.sessionID,
				Focused: focusedSession != "" && wl.sessionName == focusedSession,
			})
		}
		snap.Windows[i].Tabs = append(snap.Windows[i].Tabs, host.Tab{
			ID:       wl.windowID,
			WindowID: wl.sessionID,
			Title:    wl.name,
			URL:      wl.path,
			Icon:     wl.command,
			Active:   wl.active,
		})
	}
	return snap
}

// focusedClient finds the most recently active terminal client. Control-mode
// clients, including our own connection, are ignored.
func focusedClient(c tmuxClient) (clientLine, bool) {
	if out, err := c.Command("list-clients", "-F", clientFormat); err == nil {
		if best, ok := pickClient(parseClientLines(out)); ok {
			return best, true
		}
	}
	clients, err := c.ListClients()
	if err != nil {
		return clientLine{}, false
	}
	for _, cl := range clients {
		if cl == nil || cl.ControlMode || cl.Session == "" {
			continue
		}
		return clientLine{name: cl.Name, session: cl.Session}, true
	}
	return clientLine{}, false
}

func parseClientLines(out string) []clientLine {
	var lines []clientLine
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 4 {
			continue
		}
		activity, _ := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
		lines = append(lines, clientLine{
			name:        strings.TrimSpace(parts[0]),
			session:     parts[1],
			activity:    activity,
			controlMode: strings.TrimSpace(parts[3]) == "1",
		})
	}
	return lines
}

func pickClient(lines []clientLine) (clientLine, bool) {
	var best clientLine
	found := false
	for _, cl := range lines {
		if cl.controlMode || cl.session == "" || cl.name == "" {
			continue
		}
		if !found || cl.activity > best.activity {
			best = cl
			found = true
		}
	}
	return best, found
}
