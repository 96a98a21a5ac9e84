package controller

import (
	"context"
	"time"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/logging/events"
)

// HandleEvent applies one host notification.
func (c *Controller) HandleEvent(ctx context.Context, e host.Event) error {
	return c.HandleEvents(ctx, []host.Event{e})
}

// HandleEvents applies a batch of notifications in order, in a single loop
// turn.
func (c *Controller) HandleEvents(ctx context.Context, batch []host.Event) error {
	if len(batch) == 0 {
		return nil
	}
	return c.do(ctx, func() {
		for _, e := range batch {
			c.apply(e)
		}
	})
}

func (c *Controller) apply(e host.Event) {
	switch e.Kind {
	case host.EventActivated:
		c.stack.RecordActivation(e.TabID, e.WindowID)
		if e.WindowID != "" {
			c.focused = e.WindowID
		}
		events.Stack.Activate(e.TabID, e.WindowID, c.stack.Len())
		c.markStackDirty()
	case host.EventRemoved:
		wasTop := c.stack.RecordRemoval(e.TabID)
		events.Stack.Remove(e.TabID, wasTop, c.stack.Len())
		c.markStackDirty()
		if wasTop && c.settings.AutoSwitchOnCloseEnabled {
			if target, ok := c.stack.Top(); ok {
				c.scheduleAutoSwitch(target)
			}
		}
	case host.EventWindowRemoved:
		removed := c.stack.RecordWindowClosed(e.WindowID)
		if c.focused == e.WindowID {
			c.focused = ""
		}
		events.Stack.WindowClosed(e.WindowID, removed)
		if removed > 0 {
			c.markStackDirty()
		}
	}
}

// scheduleAutoSwitch activates target once the host has settled on its own
// replacement. The target is fixed now; if it has left the stack by the
// time the delay expires (its window closed in the same burst) nothing
// happens.
func (c *Controller) scheduleAutoSwitch(target host.TabRef) {
	time.AfterFunc(c.opts.AutoSwitchDelay, func() {
		c.post(func() {
			if !c.stack.Contains(target.TabID) {
				events.Switch.AutoSwitchSkipped(target.TabID)
				return
			}
			events.Switch.AutoSwitch(target.TabID)
			c.activateAsync(target)
		})
	})
}

// prune drops a reference known to be dead. It never triggers auto-switch.
func (c *Controller) prune(tabID string, reason events.PruneReason) {
	if !c.stack.Contains(tabID) {
		return
	}
	c.stack.RecordRemoval(tabID)
	events.Stack.Prune(tabID, reason)
	c.markStackDirty()
}
