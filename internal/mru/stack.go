// Package mru maintains the most-recently-used ordering of tabs.
//
// A Stack holds TabRefs most-recent first. Index 0 is the active tab as last
// observed. Entries are unique by tab id and the stack never grows beyond
// MaxEntries; the oldest entries are evicted first. Stack is not safe for
// concurrent use; the controller owns it from a single goroutine.
package mru

import "github.com/atomicstack/lasttab/internal/host"

// MaxEntries bounds the stack length.
const MaxEntries = 100

type Stack struct {
	entries []host.TabRef
}

func New() *Stack {
	return &Stack{}
}

// RecordActivation moves tabID to the front, inserting it when absent.
func (s *Stack) RecordActivation(tabID, windowID string) {
	s.remove(tabID)
	s.entries = append([]host.TabRef{{TabID: tabID, WindowID: windowID}}, s.entries...)
	s.trim()
}

// RecordRemoval deletes tabID and reports whether it was at the top before
// the deletion.
func (s *Stack) RecordRemoval(tabID string) bool {
	wasTop := len(s.entries) > 0 && s.entries[0].TabID == tabID
	s.remove(tabID)
	return wasTop
}

// RecordWindowClosed deletes every entry belonging to windowID and returns
// how many were removed.
func (s *Stack) RecordWindowClosed(windowID string) int {
	kept := s.entries[:0]
	removed := 0
	for _, ref := range s.entries {
		if ref.WindowID == windowID {
			removed++
			continue
		}
		kept = append(kept, ref)
	}
	s.entries = kept
	return removed
}

// PeekPrevious returns the entry at index 1.
func (s *Stack) PeekPrevious() (host.TabRef, bool) {
	if len(s.entries) < 2 {
		return host.TabRef{}, false
	}
	return s.entries[1], true
}

// Top returns the entry at index 0.
func (s *Stack) Top() (host.TabRef, bool) {
	if len(s.entries) == 0 {
		return host.TabRef{}, false
	}
	return s.entries[0], true
}

// TopN returns a copy of the first limit entries. A non-positive limit
// returns every entry.
func (s *Stack) TopN(limit int) []host.TabRef {
	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]host.TabRef, n)
	copy(out, s.entries[:n])
	return out
}

// Entries returns a copy of the whole stack.
func (s *Stack) Entries() []host.TabRef {
	return s.TopN(0)
}

func (s *Stack) Len() int {
	return len(s.entries)
}

func (s *Stack) Contains(tabID string) bool {
	return s.index(tabID) >= 0
}

// Restore replaces the stack with refs, dropping empty ids and duplicates
// (first occurrence wins) and enforcing the length cap.
func (s *Stack) Restore(refs []host.TabRef) {
	s.entries = s.entries[:0]
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if ref.TabID == "" {
			continue
		}
		if _, dup := seen[ref.TabID]; dup {
			continue
		}
		seen[ref.TabID] = struct{}{}
		s.entries = append(s.entries, ref)
	}
	s.trim()
}

func (s *Stack) index(tabID string) int {
	for i, ref := range s.entries {
		if ref.TabID == tabID {
			return i
		}
	}
	return -1
}

func (s *Stack) remove(tabID string) {
	kept := s.entries[:0]
	for _, ref := range s.entries {
		if ref.TabID != tabID {
			kept = append(kept, ref)
		}
	}
	s.entries = kept
}

func (s *Stack) trim() {
	if len(s.entries) > MaxEntries {
		s.entries = s.entries[:MaxEntries]
	}
}
