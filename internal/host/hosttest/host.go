// Package hosttest provides an in-memory host.Host for tests.
package hosttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/atomicstack/lasttab/internal/host"
)

// Call records one mutating request made against the fake.
type Call struct {
	Op string
	ID string
}

// Host is a goroutine-safe fake host. The zero value has no windows.
type Host struct {
	mu          sync.Mutex
	windows     []host.Window
	calls       []Call
	snapshotErr error
	activateErr error
	focusErr    error
}

// New returns a fake seeded with deep copies of windows.
func New(windows ...host.Window) *Host {
	h := &Host{}
	for _, w := range windows {
		h.windows = append(h.windows, cloneWindow(w))
	}
	return h
}

// Snapshot implements host.Host.
func (h *Host) Snapshot(ctx context.Context) (host.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.snapshotErr != nil {
		return host.Snapshot{}, h.snapshotErr
	}
	snap := host.Snapshot{Windows: make([]host.Window, 0, len(h.windows))}
	for _, w := range h.windows {
		snap.Windows = append(snap.Windows, cloneWindow(w))
	}
	return snap, nil
}

// ActivateTab implements host.Host.
func (h *Host) ActivateTab(ctx context.Context, tabID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, Call{Op: "activate", ID: tabID})
	if h.activateErr != nil {
		return h.activateErr
	}
	for wi := range h.windows {
		found := false
		for ti := range h.windows[wi].Tabs {
			if h.windows[wi].Tabs[ti].ID == tabID {
				found = true
			}
		}
		if !found {
			continue
		}
		for ti := range h.windows[wi].Tabs {
			h.windows[wi].Tabs[ti].Active = h.windows[wi].Tabs[ti].ID == tabID
		}
		return nil
	}
	return fmt.Errorf("activate %s: %w", tabID, host.ErrTabNotFound)
}

// FocusWindow implements host.Host.
func (h *Host) FocusWindow(ctx context.Context, windowID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, Call{Op: "focus", ID: windowID})
	if h.focusErr != nil {
		return h.focusErr
	}
	idx := -1
	for i, w := range h.windows {
		if w.ID == windowID {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("focus %s: %w", windowID, host.ErrWindowNotFound)
	}
	for i := range h.windows {
		h.windows[i].Focused = i == idx
	}
	return nil
}

// Calls returns the recorded activate/focus requests.
func (h *Host) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.calls...)
}

// ResetCalls clears the call log.
func (h *Host) ResetCalls() {
	h.mu.Lock()
	h.calls = nil
	h.mu.Unlock()
}

// Activations returns the tab ids passed to ActivateTab, in order.
func (h *Host) Activations() []string {
	var out []string
	for _, c := range h.Calls() {
		if c.Op == "activate" {
			out = append(out, c.ID)
		}
	}
	return out
}

// SetWindows replaces the host state.
func (h *Host) SetWindows(windows ...host.Window) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.windows = h.windows[:0]
	for _, w := range windows {
		h.windows = append(h.windows, cloneWindow(w))
	}
}

// RemoveTab deletes a tab, dropping its window when it was the last one.
func (h *Host) RemoveTab(tabID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.windows[:0]
	for _, w := range h.windows {
		tabs := w.Tabs[:0]
		for _, t := range w.Tabs {
			if t.ID != tabID {
				tabs = append(tabs, t)
			}
		}
		w.Tabs = tabs
		if len(w.Tabs) > 0 {
			out = append(out, w)
		}
	}
	h.windows = out
}

func (h *Host) SetSnapshotError(err error) {
	h.mu.Lock()
	h.snapshotErr = err
	h.mu.Unlock()
}

func (h *Host) SetActivateError(err error) {
	h.mu.Lock()
	h.activateErr = err
	h.mu.Unlock()
}

func (h *Host) SetFocusError(err error) {
	h.mu.Lock()
	h.focusErr = err
	h.mu.Unlock()
}

// Tab is a shorthand constructor for test fixtures.
func Tab(id, windowID, title string, active bool) host.Tab {
	return host.Tab{ID: id, WindowID: windowID, Title: title, URL: "/" + id, Active: active}
}

func cloneWindow(w host.Window) host.Window {
	w.Tabs = append([]host.Tab(nil), w.Tabs...)
	return w
}
