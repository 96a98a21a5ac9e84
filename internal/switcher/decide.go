// Package switcher turns shortcut presses into actions and applies
// activation requests against the host.
package switcher

import (
	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/settings"
)

// Shortcut names the two dispatchable commands.
type Shortcut string

const (
	ShortcutQuickSwitch Shortcut = "quick-switch"
	ShortcutShowPopup   Shortcut = "show-mru-popup"
)

// Action is the outcome of a shortcut decision.
type Action int

const (
	ActionNone Action = iota
	ActionActivatePrevious
	ActionOpenSession
	ActionAdvanceSession
	ActionCloseSession
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionActivatePrevious:
		return "activate-previous"
	case ActionOpenSession:
		return "open-session"
	case ActionAdvanceSession:
		return "advance-session"
	case ActionCloseSession:
		return "close-session"
	default:
		return "unknown"
	}
}

// Decision carries the chosen action and, for ActionOpenSession, the mode.
type Decision struct {
	Action Action
	Mode   session.Kind
}

// OpenSession describes the session currently open, if any.
type OpenSession struct {
	Open bool
	Kind session.Kind
}

// Decide applies the quick-switch decision table.
func Decide(s settings.Settings, open OpenSession) Decision {
	if !s.QuickSwitchEnabled {
		return Decision{Action: ActionNone}
	}
	switch s.QuickSwitchPopupMode() {
	case settings.PopupHold:
		if open.Open && open.Kind == session.KindHold {
			return Decision{Action: ActionAdvanceSession}
		}
		return Decision{Action: ActionOpenSession, Mode: session.KindHold}
	case settings.PopupQuick:
		return Decision{Action: ActionOpenSession, Mode: session.KindQuick}
	default:
		return Decision{Action: ActionActivatePrevious}
	}
}

// DecideBrowse applies the browse shortcut rules: toggle an open session
// closed, otherwise open a browse session.
func DecideBrowse(s settings.Settings, open OpenSession) Decision {
	if !s.MRUPopupEnabled {
		return Decision{Action: ActionNone}
	}
	if open.Open {
		return Decision{Action: ActionCloseSession}
	}
	return Decision{Action: ActionOpenSession, Mode: session.KindBrowse}
}

// DecideShortcut dispatches by shortcut name.
func DecideShortcut(sc Shortcut, s settings.Settings, open OpenSession) Decision {
	switch sc {
	case ShortcutQuickSwitch:
		return Decide(s, open)
	case ShortcutShowPopup:
		return DecideBrowse(s, open)
	default:
		return Decision{Action: ActionNone}
	}
}
