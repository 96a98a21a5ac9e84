package controller

import (
	"context"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/logging"
	"github.com/atomicstack/lasttab/internal/logging/events"
	"github.com/atomicstack/lasttab/internal/switcher"
)

// QuickSwitch handles the quick-switch shortcut.
func (c *Controller) QuickSwitch(ctx context.Context) (switcher.Decision, error) {
	return c.Dispatch(ctx, switcher.ShortcutQuickSwitch)
}

// ShowPopup handles the browse shortcut.
func (c *Controller) ShowPopup(ctx context.Context) (switcher.Decision, error) {
	return c.Dispatch(ctx, switcher.ShortcutShowPopup)
}

// Dispatch decides what a shortcut does and starts doing it. Activations
// and launches complete asynchronously.
func (c *Controller) Dispatch(ctx context.Context, sc switcher.Shortcut) (switcher.Decision, error) {
	var d switcher.Decision
	err := c.do(ctx, func() {
		d = switcher.DecideShortcut(sc, c.settings, c.openState())
		events.Switch.Decision(string(sc), d.Action.String(), string(d.Mode))
		switch d.Action {
		case switcher.ActionActivatePrevious:
			if prev, ok := c.stack.PeekPrevious(); ok {
				c.activateAsync(prev)
			}
		case switcher.ActionOpenSession:
			c.openSession(d.Mode)
		case switcher.ActionAdvanceSession:
			c.advance()
		case switcher.ActionCloseSession:
			c.closeOpen(events.SessionReasonToggle)
		}
	})
	return d, err
}

// Activate applies an activation request from a session surface and waits
// for the host. Failures prune the reference when it is dead.
func (c *Controller) Activate(ctx context.Context, ref host.TabRef) error {
	var focused string
	if err := c.do(ctx, func() { focused = c.focusedWindow() }); err != nil {
		return err
	}
	events.Switch.Activate(ref.TabID, ref.WindowID)
	return c.runActivation(ref, focused)
}

// activateAsync starts an activation from the loop.
func (c *Controller) activateAsync(ref host.TabRef) {
	focused := c.focusedWindow()
	events.Switch.Activate(ref.TabID, ref.WindowID)
	go func() {
		_ = c.runActivation(ref, focused)
	}()
}

func (c *Controller) runActivation(ref host.TabRef, focused string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.HostTimeout)
	defer cancel()
	err := c.activator.Activate(ctx, ref, focused)
	if err != nil {
		logging.Error(err)
		events.Action.Error(err)
		if switcher.Prunable(err) {
			c.post(func() { c.prune(ref.TabID, events.PruneReasonActivation) })
		}
		return err
	}
	c.post(func() { c.apply(host.Activated(ref)) })
	if c.poke != nil {
		c.poke()
	}
	return nil
}

// focusedWindow is the window of the most recently observed activation.
// Removals leave it alone, so closing the top tab does not pretend focus
// moved to the window of the next stack entry.
func (c *Controller) focusedWindow() string {
	return c.focused
}
