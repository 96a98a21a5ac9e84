// Package client talks to a running lasttab daemon over its control socket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/atomicstack/lasttab/internal/control"
	"github.com/atomicstack/lasttab/internal/controller"
	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/settings"
	"github.com/atomicstack/lasttab/internal/switcher"
)

const (
	// defaultTimeout is used when the caller does not provide a context deadline.
	defaultTimeout = 3 * time.Second
)

// ErrDaemonUnavailable is returned when nothing listens on the socket.
var ErrDaemonUnavailable = errors.New("lasttab daemon is not running")

// Client talks to the running lasttab daemon over its control socket.
type Client struct {
	socketPath string
}

type (
	// CommandResult reports what the daemon did with a shortcut.
	CommandResult = control.CommandResult
	// Status is the daemon's stack, settings, and open session.
	Status = controller.Status
)

// New creates a client that connects to the provided socket path. When path is
// empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// SocketPath reports the socket the client dials.
func (c *Client) SocketPath() string { return c.socketPath }

// Command dispatches a shortcut to the daemon.
func (c *Client) Command(ctx context.Context, sc switcher.Shortcut) (CommandResult, error) {
	var result CommandResult
	if err := c.call(ctx, control.ActionCommand, control.CommandParams{Command: sc}, &result); err != nil {
		return CommandResult{}, err
	}
	return result, nil
}

// Candidates fetches the popup candidate list.
func (c *Client) Candidates(ctx context.Context, limit int) ([]session.Entry, error) {
	var result control.CandidatesResult
	if err := c.call(ctx, control.ActionCandidatesGet, control.CandidatesParams{Limit: limit}, &result); err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// Activate asks the daemon to activate ref.
func (c *Client) Activate(ctx context.Context, ref host.TabRef) error {
	if ref.TabID == "" {
		return errors.New("tab id cannot be empty")
	}
	return c.call(ctx, control.ActionTabActivate, ref, nil)
}

// Settings fetches the current settings.
func (c *Client) Settings(ctx context.Context) (settings.Settings, error) {
	var st settings.Settings
	if err := c.call(ctx, control.ActionSettingsGet, nil, &st); err != nil {
		return settings.Settings{}, err
	}
	return st, nil
}

// UpdateSettings applies a partial update and returns the merged settings.
func (c *Client) UpdateSettings(ctx context.Context, p settings.Patch) (settings.Settings, error) {
	var st settings.Settings
	if err := c.call(ctx, control.ActionSettingsUpdate, control.SettingsUpdateParams{Partial: p}, &st); err != nil {
		return settings.Settings{}, err
	}
	return st, nil
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := c.call(ctx, control.ActionStatus, nil, &st); err != nil {
		return Status{}, err
	}
	return st, nil
}

// Refresh asks the daemon to poll the host immediately.
func (c *Client) Refresh(ctx context.Context) error {
	return c.call(ctx, control.ActionRefresh, nil, nil)
}

// CloseSession tells the daemon the surface for id has finished.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("session id cannot be empty")
	}
	return c.call(ctx, control.ActionSessionClose, control.SessionParams{ID: id}, nil)
}

// Subscription streams signals for an attached session.
type Subscription struct {
	conn    net.Conn
	signals chan session.Signal
	done    chan struct{}
	once    sync.Once
}

// Signals delivers daemon signals. It closes when the session ends or the
// connection drops.
func (s *Subscription) Signals() <-chan session.Signal { return s.signals }

// Close hangs up, which detaches the session on the daemon side.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// Attach registers this process as the surface of session id. The context
// bounds only the handshake.
func (c *Client) Attach(ctx context.Context, id string) (*Subscription, error) {
	if id == "" {
		return nil, errors.New("session id cannot be empty")
	}
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	req, err := control.NewRequest(control.ActionSessionAttach, control.SessionParams{ID: id})
	if err != nil {
		return nil, err
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	dec := json.NewDecoder(conn)
	if err := exchange(conn, dec, req, nil); err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	sub := &Subscription{conn: conn, signals: make(chan session.Signal, 16), done: make(chan struct{})}
	go func() {
		defer close(sub.signals)
		for {
			var msg control.SignalMessage
			if err := readResponse(dec, &msg); err != nil {
				return
			}
			select {
			case sub.signals <- msg.Signal:
			case <-sub.done:
				return
			}
		}
	}()
	return sub, nil
}

func (c *Client) call(ctx context.Context, action string, params, out any) error {
	req, err := control.NewRequest(action, params)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req control.Request, out any) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return exchange(conn, json.NewDecoder(conn), req, out)
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
		}
		return nil, fmt.Errorf("dial control socket: %w", err)
	}
	return conn, nil
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultTimeout)
}

func exchange(conn net.Conn, dec *json.Decoder, req control.Request, out any) error {
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return readResponse(dec, out)
}

func readResponse(dec *json.Decoder, out any) error {
	var resp control.Response
	if err := dec.Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != control.StatusOK {
		if resp.Error == "" {
			resp.Error = "unknown control error"
		}
		return errors.New(resp.Error)
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
