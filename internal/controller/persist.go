package controller

import (
	"context"
	"sync"
	"time"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/logging"
	"github.com/atomicstack/lasttab/internal/logging/events"
)

// debouncer coalesces bursts into one deferred call; each schedule replaces
// the pending one. It is owned by the loop goroutine.
type debouncer struct {
	delay time.Duration
	fire  func()
	timer *time.Timer
}

func (d *debouncer) schedule() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *debouncer) stop() bool {
	if d.timer == nil {
		return false
	}
	pending := d.timer.Stop()
	d.timer = nil
	return pending
}

// versionedWriter serialises writes and drops any that arrive after a newer
// version has already been written.
type versionedWriter struct {
	mu      sync.Mutex
	written uint64
}

func (w *versionedWriter) write(version uint64, fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if version <= w.written {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	w.written = version
	return nil
}

func (c *Controller) markStackDirty() {
	c.stackDirty = true
	c.persist.schedule()
}

// flushStack runs on the loop when the debounce window closes.
func (c *Controller) flushStack() {
	if !c.stackDirty {
		return
	}
	c.stackDirty = false
	c.stackVersion++
	refs, version := c.stack.Entries(), c.stackVersion
	c.writes.Add(1)
	go func() {
		defer c.writes.Done()
		c.saveStack(refs, version)
	}()
}

func (c *Controller) saveStack(refs []host.TabRef, version uint64) {
	err := c.stackWriter.write(version, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.HostTimeout)
		defer cancel()
		return c.store.SaveStack(ctx, refs)
	})
	events.Stack.Persist(len(refs), err)
	if err != nil {
		logging.Error(err)
	}
}
