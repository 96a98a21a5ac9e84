// Package controller owns the MRU stack and settings for the daemon.
//
// All state lives on a single loop goroutine started by Run. Public methods
// post closures onto the loop and wait for them; host calls, popup launches,
// and store writes run off the loop and post their completions back, so the
// stack and settings are never touched concurrently.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/logging"
	"github.com/atomicstack/lasttab/internal/logging/events"
	"github.com/atomicstack/lasttab/internal/mru"
	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/settings"
	"github.com/atomicstack/lasttab/internal/store"
	"github.com/atomicstack/lasttab/internal/switcher"
)

var (
	ErrStopped        = errors.New("controller stopped")
	ErrUnknownSession = errors.New("unknown session")
)

// DefaultCandidateLimit caps the MRU section of a popup when callers pass
// no limit.
const DefaultCandidateLimit = 20

// Launcher opens the popup surface for a session.
type Launcher interface {
	Launch(ctx context.Context, req LaunchRequest) error
}

// LaunchRequest identifies the session the surface must attach to.
type LaunchRequest struct {
	SessionID string
	Mode      session.Kind
}

// Options tunes the controller's timing.
type Options struct {
	PersistDelay    time.Duration
	AutoSwitchDelay time.Duration
	AttachTimeout   time.Duration
	HostTimeout     time.Duration
	// SelfMarker identifies the popup's own tab in candidate lists.
	SelfMarker string
}

func DefaultOptions() Options {
	return Options{
		PersistDelay:    500 * time.Millisecond,
		AutoSwitchDelay: 50 * time.Millisecond,
		AttachTimeout:   3 * time.Second,
		HostTimeout:     2 * time.Second,
	}
}

type Controller struct {
	host      host.Host
	store     store.Store
	launcher  Launcher
	activator switcher.Activator
	opts      Options
	poke      func()

	ops     chan func()
	stopped chan struct{}
	writes  sync.WaitGroup

	// loop-owned
	stack        *mru.Stack
	settings     settings.Settings
	open         *openSession
	baseline     host.Snapshot
	focused      string
	persist      *debouncer
	stackDirty   bool
	stackVersion uint64
	settingsVer  uint64

	stackWriter    versionedWriter
	settingsWriter versionedWriter
}

// New builds a controller. Zero option values fall back to DefaultOptions.
func New(h host.Host, st store.Store, launcher Launcher, opts Options) *Controller {
	def := DefaultOptions()
	if opts.PersistDelay <= 0 {
		opts.PersistDelay = def.PersistDelay
	}
	if opts.AutoSwitchDelay <= 0 {
		opts.AutoSwitchDelay = def.AutoSwitchDelay
	}
	if opts.AttachTimeout <= 0 {
		opts.AttachTimeout = def.AttachTimeout
	}
	if opts.HostTimeout <= 0 {
		opts.HostTimeout = def.HostTimeout
	}
	c := &Controller{
		host:      h,
		store:     st,
		launcher:  launcher,
		activator: switcher.Activator{Host: h},
		opts:      opts,
		ops:       make(chan func(), 64),
		stopped:   make(chan struct{}),
		stack:     mru.New(),
		settings:  settings.Defaults(),
	}
	c.persist = &debouncer{delay: opts.PersistDelay, fire: func() { c.post(c.flushStack) }}
	return c
}

// SetPoke registers a callback asking the event source for an immediate
// refresh. It must be called before Run.
func (c *Controller) SetPoke(fn func()) {
	c.poke = fn
}

// Init loads settings and the persisted stack, reconciles the stack against
// the host, and writes the result back. It must be called before Run.
// Failures degrade to defaults and are logged.
func (c *Controller) Init(ctx context.Context) error {
	s, err := c.store.LoadSettings(ctx)
	if err != nil {
		logging.Error(err)
	}
	c.settings = s
	persisted, err := c.store.LoadStack(ctx)
	if err != nil {
		logging.Error(err)
		persisted = nil
	}
	snap, err := c.host.Snapshot(ctx)
	if err != nil {
		logging.Error(fmt.Errorf("enumerate tabs: %w", err))
		c.stack.Restore(persisted)
	} else {
		c.stack.Reconcile(persisted, snap)
		c.baseline = snap
		if w, ok := snap.FocusedWindow(); ok {
			c.focused = w.ID
		}
	}
	if top, ok := c.stack.Top(); ok && c.focused == "" {
		c.focused = top.WindowID
	}
	events.Stack.Reconcile(len(persisted), len(snap.Tabs()), c.stack.Len())
	if err := ctx.Err(); err != nil {
		return err
	}
	c.stackVersion++
	c.saveStack(c.stack.Entries(), c.stackVersion)
	return nil
}

// Baseline is the snapshot Init reconciled against, for seeding a watcher.
func (c *Controller) Baseline() host.Snapshot {
	return c.baseline
}

// Run processes posted operations until ctx is cancelled. A pending stack
// write is flushed before it returns.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case op := <-c.ops:
			op()
		}
	}
}

func (c *Controller) shutdown() {
	c.persist.stop()
	if c.stackDirty {
		c.stackDirty = false
		c.stackVersion++
		c.saveStack(c.stack.Entries(), c.stackVersion)
	}
	if c.open != nil {
		c.closeOpen(events.SessionReasonDetached)
	}
	c.writes.Wait()
}

// post enqueues fn from a goroutine other than the loop.
func (c *Controller) post(fn func()) {
	select {
	case c.ops <- fn:
	case <-c.stopped:
	}
}

// do runs fn on the loop and waits for it.
func (c *Controller) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	op := func() {
		fn()
		close(done)
	}
	select {
	case c.ops <- op:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Settings returns the current settings record.
func (c *Controller) Settings(ctx context.Context) (settings.Settings, error) {
	var s settings.Settings
	err := c.do(ctx, func() { s = c.settings })
	return s, err
}

// UpdateSettings merges p over the current settings and persists the full
// record before returning.
func (c *Controller) UpdateSettings(ctx context.Context, p settings.Patch) (settings.Settings, error) {
	var (
		s       settings.Settings
		version uint64
	)
	if err := c.do(ctx, func() {
		c.settings = c.settings.Apply(p)
		c.settingsVer++
		s, version = c.settings, c.settingsVer
	}); err != nil {
		return settings.Settings{}, err
	}
	events.Switch.Settings(map[string]interface{}{
		"quickSwitchEnabled":       s.QuickSwitchEnabled,
		"mruPopupEnabled":          s.MRUPopupEnabled,
		"autoSwitchOnCloseEnabled": s.AutoSwitchOnCloseEnabled,
		"showPopupOnQuickSwitch":   s.ShowPopupOnQuickSwitch,
		"holdModeEnabled":          s.HoldModeEnabled,
	})
	err := c.settingsWriter.write(version, func() error {
		return c.store.SaveSettings(ctx, s)
	})
	return s, err
}

// Stack returns a copy of the MRU stack.
func (c *Controller) Stack(ctx context.Context) ([]host.TabRef, error) {
	var refs []host.TabRef
	err := c.do(ctx, func() { refs = c.stack.Entries() })
	return refs, err
}

// Status summarises controller state for the status command.
type Status struct {
	Stack    []host.TabRef     `json:"stack" yaml:"stack"`
	Settings settings.Settings `json:"settings" yaml:"settings"`
	Session  *SessionStatus    `json:"session,omitempty" yaml:"session,omitempty"`
}

type SessionStatus struct {
	ID       string       `json:"id" yaml:"id"`
	Mode     session.Kind `json:"mode" yaml:"mode"`
	Attached bool         `json:"attached" yaml:"attached"`
	Pending  int          `json:"pending" yaml:"pending"`
}

func (c *Controller) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, func() {
		st.Stack = c.stack.Entries()
		st.Settings = c.settings
		if s := c.open; s != nil {
			st.Session = &SessionStatus{ID: s.id, Mode: s.kind, Attached: s.attached, Pending: s.pending}
		}
	})
	return st, err
}

// Refresh asks the event source for an immediate poll.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.poke != nil {
		c.poke()
	}
	return ctx.Err()
}
