package tmux

import (
	gotmux "github.com/atomicstack/gotmuxcc/gotmuxcc"
)

type tmuxClient interface {
	ListWindowsFormat(target, filter, format string) ([]string, error)
	ListClients() ([]*gotmux.Client, error)
	SelectWindow(target string) error
	SwitchClient(*gotmux.SwitchClientOptions) error
	DisplayMessage(target, format string) (string, error)
	Command(parts ...string) (string, error)
	Close() error
}

// windowLine is one parsed row of the window listing.
type windowLine struct {
	windowID    string
	sessionID   string
	sessionName string
	active      bool
	name        string
	path        string
	command     string
}

// clientLine is one parsed row of the client listing.
type clientLine struct {
	name        string
	session     string
	activity    int64
	controlMode bool
}
