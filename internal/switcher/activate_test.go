package switcher

import (
	"context"
	"errors"
	"testing"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/host/hosttest"
	"github.com/google/go-cmp/cmp"
)

func fixture() *hosttest.Host {
	return hosttest.New(
		host.Window{ID: "$1", Focused: true, Tabs: []host.Tab{hosttest.Tab("@1", "$1", "a", true), hosttest.Tab("@2", "$1", "b", false)}},
		host.Window{ID: "$2", Tabs: []host.Tab{hosttest.Tab("@3", "$2", "c", true)}},
	)
}

func TestActivateSameWindowSkipsFocus(t *testing.T) {
	h := fixture()
	a := Activator{Host: h}
	if err := a.Activate(context.Background(), host.TabRef{TabID: "@2", WindowID: "$1"}, "$1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	want := []hosttest.Call{{Op: "activate", ID: "@2"}}
	if diff := cmp.Diff(want, h.Calls()); diff != "" {
		t.Fatalf("unexpected calls (-want +got):\n%s", diff)
	}
}

func TestActivateOtherWindowFocuses(t *testing.T) {
	h := fixture()
	a := Activator{Host: h}
	if err := a.Activate(context.Background(), host.TabRef{TabID: "@3", WindowID: "$2"}, "$1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	want := []hosttest.Call{{Op: "activate", ID: "@3"}, {Op: "focus", ID: "$2"}}
	if diff := cmp.Diff(want, h.Calls()); diff != "" {
		t.Fatalf("unexpected calls (-want +got):\n%s", diff)
	}
	snap, _ := h.Snapshot(context.Background())
	if tab, ok := snap.FocusedTab(); !ok || tab.ID != "@3" {
		t.Fatalf("expected @3 focused, got %+v", tab)
	}
}

func TestActivateMissingTabIsStale(t *testing.T) {
	a := Activator{Host: fixture()}
	err := a.Activate(context.Background(), host.TabRef{TabID: "@9", WindowID: "$1"}, "$1")
	var ae *ActivationError
	if !errors.As(err, &ae) || !ae.Stale || ae.Stage != StageActivate {
		t.Fatalf("expected stale activation error, got %v", err)
	}
	if !errors.Is(err, host.ErrTabNotFound) {
		t.Fatalf("expected ErrTabNotFound in chain, got %v", err)
	}
	if !Prunable(err) {
		t.Fatalf("failed tab activation should be prunable")
	}
}

func TestFocusFailureIsNotPrunable(t *testing.T) {
	h := fixture()
	h.SetFocusError(errors.New("no client"))
	err := Activator{Host: h}.Activate(context.Background(), host.TabRef{TabID: "@3", WindowID: "$2"}, "$1")
	if err == nil || Prunable(err) {
		t.Fatalf("focus failure should be reported but not prunable, got %v", err)
	}
	if Prunable(errors.New("plain")) {
		t.Fatalf("plain errors are not prunable")
	}
}
