package mru

import "github.com/atomicstack/lasttab/internal/host"

// Seed builds the stack from a live snapshot alone: within each window the
// active tab is prepended and inactive tabs are appended, then the focused
// tab is moved to the front.
func (s *Stack) Seed(snap host.Snapshot) {
	s.Reconcile(nil, snap)
}

// Reconcile merges a persisted ordering with the live snapshot. Persisted
// entries whose tab no longer exists are dropped and surviving entries pick
// up the tab's current window. Tabs the persisted ordering does not know are
// merged in: active ones prepended, inactive ones appended. The focused tab
// always ends at index 0.
func (s *Stack) Reconcile(persisted []host.TabRef, snap host.Snapshot) {
	live := make(map[string]host.Tab)
	for _, t := range snap.Tabs() {
		if _, dup := live[t.ID]; !dup {
			live[t.ID] = t
		}
	}

	known := make(map[string]struct{}, len(persisted))
	kept := make([]host.TabRef, 0, len(persisted))
	for _, ref := range persisted {
		t, ok := live[ref.TabID]
		if !ok {
			continue
		}
		if _, dup := known[ref.TabID]; dup {
			continue
		}
		known[ref.TabID] = struct{}{}
		kept = append(kept, t.Ref())
	}

	var front, back []host.TabRef
	for _, w := range snap.Windows {
		for _, t := range w.Tabs {
			if _, ok := known[t.ID]; ok {
				continue
			}
			known[t.ID] = struct{}{}
			if t.Active {
				front = append([]host.TabRef{t.Ref()}, front...)
			} else {
				back = append(back, t.Ref())
			}
		}
	}

	merged := make([]host.TabRef, 0, len(front)+len(kept)+len(back))
	merged = append(merged, front...)
	merged = append(merged, kept...)
	merged = append(merged, back...)
	s.Restore(merged)

	if focused, ok := snap.FocusedTab(); ok {
		s.RecordActivation(focused.ID, focused.WindowID)
	}
}
