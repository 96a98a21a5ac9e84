// Package session implements the selection state machine behind the popup:
// a candidate list, a live query filter, a wrapping cursor, and the commit
// and cancel transitions.
//
// A Session starts Open and ends Committed or Cancelled. Once terminal every
// operation is a no-op.
package session

import "strings"

type State int

const (
	StateOpen State = iota
	StateCommitted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Signal is a one-way notification from the daemon to an open session.
type Signal string

const (
	SignalAdvance Signal = "advance"
	SignalClose   Signal = "close"
)

type Session struct {
	id       string
	mode     Mode
	all      []Entry
	filtered []Entry
	cursor   int
	query    string
	state    State
	fuzzy    bool
	chosen   Entry
}

// Option customises a Session.
type Option func(*Session)

// WithFuzzy enables a fuzzy fallback when the substring filter finds nothing.
func WithFuzzy(enabled bool) Option {
	return func(s *Session) { s.fuzzy = enabled }
}

// New opens a session over entries. The cursor starts on index 1 when at
// least two entries exist so the currently active tab is skipped.
func New(id string, mode Mode, entries []Entry, opts ...Option) *Session {
	if mode == nil {
		mode = Browse{}
	}
	s := &Session{
		id:       id,
		mode:     mode,
		all:      CloneEntries(entries),
		filtered: CloneEntries(entries),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.filtered) >= 2 {
		s.cursor = 1
	}
	return s
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Mode() Mode    { return s.mode }
func (s *Session) Query() string { return s.query }
func (s *Session) Cursor() int   { return s.cursor }
func (s *Session) State() State  { return s.state }
func (s *Session) Len() int      { return len(s.filtered) }
func (s *Session) Total() int    { return len(s.all) }
func (s *Session) Done() bool    { return s.state != StateOpen }
func (s *Session) Chosen() Entry { return s.chosen }
func (s *Session) Entries() []Entry {
	return CloneEntries(s.filtered)
}

// Selected returns the entry under the cursor.
func (s *Session) Selected() (Entry, bool) {
	if s.cursor < 0 || s.cursor >= len(s.filtered) {
		return Entry{}, false
	}
	return s.filtered[s.cursor], true
}

// SetQuery refilters the candidates and resets the cursor to 0. It is
// ignored in hold mode. It reports whether the session changed.
func (s *Session) SetQuery(text string) bool {
	if s.Done() || !acceptsQuery(s.mode) {
		return false
	}
	s.query = text
	s.filtered = FilterEntries(s.all, text)
	if s.fuzzy && len(s.filtered) == 0 && strings.TrimSpace(text) != "" {
		s.filtered = FuzzyFilterEntries(s.all, text)
	}
	s.cursor = 0
	return true
}

// MoveCursor moves by delta, wrapping at both ends. It is a no-op on an
// empty list.
func (s *Session) MoveCursor(delta int) bool {
	n := len(s.filtered)
	if s.Done() || n == 0 {
		return false
	}
	s.cursor = ((s.cursor+delta)%n + n) % n
	return true
}

// Commit chooses the entry at index, or under the cursor when index is
// negative. When no such entry exists the session stays open.
func (s *Session) Commit(index int) (Entry, bool) {
	if s.Done() {
		return Entry{}, false
	}
	if index < 0 {
		index = s.cursor
	}
	if index >= len(s.filtered) {
		return Entry{}, false
	}
	s.chosen = s.filtered[index]
	s.cursor = index
	s.state = StateCommitted
	return s.chosen, true
}

// Cancel closes the session without choosing.
func (s *Session) Cancel() bool {
	if s.Done() {
		return false
	}
	s.state = StateCancelled
	return true
}

// Advance handles a repeated shortcut press in hold mode.
func (s *Session) Advance() bool {
	if _, ok := s.mode.(Hold); !ok {
		return false
	}
	return s.MoveCursor(1)
}

// Release handles the end of a hold: it commits the cursor entry.
func (s *Session) Release() (Entry, bool) {
	if _, ok := s.mode.(Hold); !ok {
		return Entry{}, false
	}
	return s.Commit(-1)
}

// FocusLost cancels a browse session.
func (s *Session) FocusLost() bool {
	if _, ok := s.mode.(Browse); !ok {
		return false
	}
	return s.Cancel()
}

// Apply routes a daemon signal to the matching transition.
func (s *Session) Apply(sig Signal) bool {
	switch sig {
	case SignalAdvance:
		return s.Advance()
	case SignalClose:
		return s.Cancel()
	default:
		return false
	}
}

// SectionStart returns the index of the first non-MRU entry in the visible
// list when the "all tabs" divider should be drawn, or -1. The divider is
// only shown with an empty query outside hold mode and only when both
// sections are non-empty.
func (s *Session) SectionStart() int {
	if !acceptsQuery(s.mode) || strings.TrimSpace(s.query) != "" {
		return -1
	}
	for i, e := range s.filtered {
		if !e.MRU {
			if i == 0 {
				return -1
			}
			return i
		}
	}
	return -1
}
