package host

// EventKind enumerates the notifications a host delivers.
type EventKind int

const (
	EventActivated EventKind = iota
	EventRemoved
	EventWindowRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventActivated:
		return "activated"
	case EventRemoved:
		return "removed"
	case EventWindowRemoved:
		return "window-removed"
	default:
		return "unknown"
	}
}

// Event is a single discrete host notification.
type Event struct {
	Kind     EventKind
	TabID    string
	WindowID string
}

func Activated(ref TabRef) Event {
	return Event{Kind: EventActivated, TabID: ref.TabID, WindowID: ref.WindowID}
}

func Removed(tabID string) Event {
	return Event{Kind: EventRemoved, TabID: tabID}
}

func WindowRemoved(windowID string) Event {
	return Event{Kind: EventWindowRemoved, WindowID: windowID}
}

// Diff converts two consecutive snapshots into the events a push-based host
// would have delivered between them. Tab removals come first (in prev
// enumeration order), then window removals, then the activation of a newly
// focused tab, so a removal is never observed after a later activation.
func Diff(prev, next Snapshot) []Event {
	var events []Event

	live := make(map[string]struct{})
	for _, t := range next.Tabs() {
		live[t.ID] = struct{}{}
	}
	for _, t := range prev.Tabs() {
		if _, ok := live[t.ID]; !ok {
			events = append(events, Removed(t.ID))
		}
	}

	windows := make(map[string]struct{}, len(next.Windows))
	for _, w := range next.Windows {
		windows[w.ID] = struct{}{}
	}
	for _, w := range prev.Windows {
		if _, ok := windows[w.ID]; !ok {
			events = append(events, WindowRemoved(w.ID))
		}
	}

	focused, ok := next.FocusedTab()
	if !ok {
		return events
	}
	before, had := prev.FocusedTab()
	if !had || before.ID != focused.ID || before.WindowID != focused.WindowID {
		events = append(events, Activated(focused.Ref()))
	}
	return events
}
