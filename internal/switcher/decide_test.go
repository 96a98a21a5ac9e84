package switcher

import (
	"testing"

	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/settings"
)

func TestDecideTable(t *testing.T) {
	held := OpenSession{Open: true, Kind: session.KindHold}
	cases := []struct {
		name string
		hold bool
		show bool
		open OpenSession
		want Decision
	}{
		{"ping-pong", false, false, OpenSession{}, Decision{Action: ActionActivatePrevious}},
		{"ping-pong ignores open session", false, false, held, Decision{Action: ActionActivatePrevious}},
		{"quick popup", false, true, OpenSession{}, Decision{Action: ActionOpenSession, Mode: session.KindQuick}},
		{"hold opens", true, false, OpenSession{}, Decision{Action: ActionOpenSession, Mode: session.KindHold}},
		{"hold implies popup", true, true, OpenSession{}, Decision{Action: ActionOpenSession, Mode: session.KindHold}},
		{"hold advances", true, false, held, Decision{Action: ActionAdvanceSession}},
		{"hold over browse opens", true, false, OpenSession{Open: true, Kind: session.KindBrowse}, Decision{Action: ActionOpenSession, Mode: session.KindHold}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := settings.Defaults()
			s.HoldModeEnabled = tc.hold
			s.ShowPopupOnQuickSwitch = tc.show
			if got := Decide(s, tc.open); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestDecideDisabledIsNoOp(t *testing.T) {
	for _, hold := range []bool{false, true} {
		for _, show := range []bool{false, true} {
			for _, open := range []bool{false, true} {
				s := settings.Settings{HoldModeEnabled: hold, ShowPopupOnQuickSwitch: show, MRUPopupEnabled: true, AutoSwitchOnCloseEnabled: true}
				got := Decide(s, OpenSession{Open: open, Kind: session.KindHold})
				if got.Action != ActionNone {
					t.Fatalf("hold=%v show=%v open=%v: expected no-op, got %v", hold, show, open, got.Action)
				}
			}
		}
	}
}

func TestDecideBrowse(t *testing.T) {
	s := settings.Defaults()
	if got := DecideBrowse(s, OpenSession{}); got.Action != ActionOpenSession || got.Mode != session.KindBrowse {
		t.Fatalf("expected browse session, got %+v", got)
	}
	if got := DecideBrowse(s, OpenSession{Open: true, Kind: session.KindQuick}); got.Action != ActionCloseSession {
		t.Fatalf("expected toggle close, got %+v", got)
	}
	s.MRUPopupEnabled = false
	if got := DecideBrowse(s, OpenSession{}); got.Action != ActionNone {
		t.Fatalf("expected no-op when disabled, got %+v", got)
	}
}

func TestDecideShortcut(t *testing.T) {
	s := settings.Defaults()
	if got := DecideShortcut(ShortcutQuickSwitch, s, OpenSession{}); got.Action != ActionActivatePrevious {
		t.Fatalf("unexpected quick-switch decision %+v", got)
	}
	if got := DecideShortcut(ShortcutShowPopup, s, OpenSession{}); got.Action != ActionOpenSession {
		t.Fatalf("unexpected browse decision %+v", got)
	}
	if got := DecideShortcut("bogus", s, OpenSession{}); got.Action != ActionNone {
		t.Fatalf("unknown shortcut should be a no-op, got %+v", got)
	}
}
