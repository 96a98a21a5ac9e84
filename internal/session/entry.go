package session

import (
	"strings"

	"github.com/atomicstack/lasttab/internal/host"
)

// UntitledPlaceholder replaces empty tab titles.
const UntitledPlaceholder = "Untitled"

// Entry is a display record for one candidate tab.
type Entry struct {
	ID       string `json:"id"`
	WindowID string `json:"windowId"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Icon     string `json:"favIconUrl,omitempty"`
	MRU      bool   `json:"isMRU"`
}

func (e Entry) Ref() host.TabRef {
	return host.TabRef{TabID: e.ID, WindowID: e.WindowID}
}

func entryFromTab(t host.Tab, mru bool) Entry {
	title := t.Title
	if strings.TrimSpace(title) == "" {
		title = UntitledPlaceholder
	}
	return Entry{
		ID:       t.ID,
		WindowID: t.WindowID,
		Title:    title,
		URL:      t.URL,
		Icon:     t.Icon,
		MRU:      mru,
	}
}

// BuildCandidates resolves MRU refs against a live snapshot. Resolved MRU
// entries come first, followed by every other open tab in host enumeration
// order. Tabs whose URL contains selfMarker (the popup's own surface) are
// left out. Refs that no longer resolve are returned as stale.
func BuildCandidates(mru []host.TabRef, snap host.Snapshot, selfMarker string) ([]Entry, []host.TabRef) {
	isSelf := func(t host.Tab) bool {
		return selfMarker != "" && strings.Contains(t.URL, selfMarker)
	}

	var (
		entries []Entry
		stale   []host.TabRef
	)
	seen := make(map[string]struct{}, len(mru))
	for _, ref := range mru {
		if _, dup := seen[ref.TabID]; dup {
			continue
		}
		seen[ref.TabID] = struct{}{}
		t, ok := snap.Lookup(ref.TabID)
		if !ok {
			stale = append(stale, ref)
			continue
		}
		if isSelf(t) {
			continue
		}
		entries = append(entries, entryFromTab(t, true))
	}
	for _, t := range snap.Tabs() {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		if isSelf(t) {
			continue
		}
		entries = append(entries, entryFromTab(t, false))
	}
	return entries, stale
}

// CloneEntries returns a copy of entries.
func CloneEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
