// Package host describes the tab/window provider the rest of lasttab talks to.
// A host enumerates windows and their tabs, activates tabs, and focuses
// windows. Identifiers are opaque strings meaningful only to the host.
package host

import (
	"context"
	"errors"
)

var (
	ErrTabNotFound    = errors.New("tab not found")
	ErrWindowNotFound = errors.New("window not found")
)

// TabRef names a tab within a window.
type TabRef struct {
	TabID    string `json:"tabId" yaml:"tabId"`
	WindowID string `json:"windowId" yaml:"windowId"`
}

// Tab is a live tab as reported by the host.
type Tab struct {
	ID       string
	WindowID string
	Title    string
	URL      string
	Icon     string
	Active   bool
}

// Ref returns the tab's reference pair.
func (t Tab) Ref() TabRef {
	return TabRef{TabID: t.ID, WindowID: t.WindowID}
}

// Window groups tabs. Exactly one tab per window is normally Active.
type Window struct {
	ID      string
	Focused bool
	Tabs    []Tab
}

// Snapshot is a point-in-time enumeration of every window and tab.
type Snapshot struct {
	Windows []Window
}

// Tabs flattens the snapshot in host enumeration order.
func (s Snapshot) Tabs() []Tab {
	var out []Tab
	for _, w := range s.Windows {
		out = append(out, w.Tabs...)
	}
	return out
}

// Lookup finds a tab by id.
func (s Snapshot) Lookup(tabID string) (Tab, bool) {
	for _, w := range s.Windows {
		for _, t := range w.Tabs {
			if t.ID == tabID {
				return t, true
			}
		}
	}
	return Tab{}, false
}

// FocusedWindow returns the focused window, if any.
func (s Snapshot) FocusedWindow() (Window, bool) {
	for _, w := range s.Windows {
		if w.Focused {
			return w, true
		}
	}
	return Window{}, false
}

// FocusedTab returns the active tab of the focused window.
func (s Snapshot) FocusedTab() (Tab, bool) {
	w, ok := s.FocusedWindow()
	if !ok {
		return Tab{}, false
	}
	for _, t := range w.Tabs {
		if t.Active {
			return t, true
		}
	}
	return Tab{}, false
}

// Host is implemented by tab providers.
type Host interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	// ActivateTab makes the tab active within its window. It returns an
	// error wrapping ErrTabNotFound when the id is unknown.
	ActivateTab(ctx context.Context, tabID string) error
	// FocusWindow brings the window to the foreground. It returns an error
	// wrapping ErrWindowNotFound when the id is unknown.
	FocusWindow(ctx context.Context, windowID string) error
}
