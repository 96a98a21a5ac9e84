// Package control carries requests between the lasttab daemon, its popup
// surfaces, and the CLI over a unix socket. Every message is one JSON value
// per line.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/settings"
	"github.com/atomicstack/lasttab/internal/switcher"
)

const (
	// SocketFileName is the filename of the control socket within the runtime dir.
	SocketFileName = "control.sock"

	ActionCommand        = "command"
	ActionCandidatesGet  = "candidates.get"
	ActionTabActivate    = "tab.activate"
	ActionSettingsGet    = "settings.get"
	ActionSettingsUpdate = "settings.update"
	ActionSessionAttach  = "session.attach"
	ActionSessionClose   = "session.close"
	ActionStatus         = "status"
	ActionRefresh        = "refresh"

	StatusOK    = "ok"
	StatusError = "error"
)

// Request represents a control API request.
type Request struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewRequest encodes params into a request for action.
func NewRequest(action string, params any) (Request, error) {
	req := Request{Action: action}
	if params == nil {
		return req, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s params: %w", action, err)
	}
	req.Params = raw
	return req, nil
}

// Decode unmarshals the request params into out. Missing params leave out
// untouched.
func (r Request) Decode(out any) error {
	if len(r.Params) == 0 || string(r.Params) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Params, out); err != nil {
		return fmt.Errorf("decode %s params: %w", r.Action, err)
	}
	return nil
}

// Response represents a control API response. Attach streams additional
// responses whose Data is a SignalMessage.
type Response struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type CommandParams struct {
	Command switcher.Shortcut `json:"command"`
}

// CommandResult reports what the daemon did with a shortcut.
type CommandResult struct {
	Action string       `json:"action"`
	Mode   session.Kind `json:"mode,omitempty"`
}

type CandidatesParams struct {
	Limit int `json:"limit,omitempty"`
}

type CandidatesResult struct {
	Entries []session.Entry `json:"entries"`
}

type ActivateParams = host.TabRef

type SettingsUpdateParams struct {
	Partial settings.Patch `json:"partial"`
}

type SessionParams struct {
	ID string `json:"id"`
}

// SignalMessage is streamed to an attached surface.
type SignalMessage struct {
	Signal session.Signal `json:"signal"`
}

// DefaultSocketPath returns the expected location of the lasttab control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("LASTTAB_CONTROL_SOCKET"); env != "" {
		return env, nil
	}
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "lasttab", SocketFileName), nil
}
