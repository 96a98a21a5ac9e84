package tmux

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/testutil"
)

func TestHostSnapshotIntegration(t *testing.T) {
	socket, cleanup, logDir := testutil.StartTmuxServer(t)
	defer cleanup()
	t.Cleanup(func() {
		testutil.AssertNoServerCrash(t, logDir)
	})
	Shutdown()
	t.Cleanup(Shutdown)

	testutil.Tmux(t, socket, "new-window", "-t", testutil.DefaultSession, "-n", "second", "sleep", "600")
	second := testutil.Tmux(t, socket, "display-message", "-p", "-t", testutil.DefaultSession+":second", "#{window_id}")
	first := testutil.Tmux(t, socket, "display-message", "-p", "-t", testutil.DefaultSession+":0", "#{window_id}")

	h := NewHost(socket)
	ctx := context.Background()
	var snap host.Snapshot
	testutil.WaitFor(t, 2*time.Second, func() bool {
		var err error
		snap, err = h.Snapshot(ctx)
		return err == nil && len(snap.Tabs()) == 2
	})
	tab, ok := snap.Lookup(second)
	if !ok || !tab.Active || tab.Title != "second" {
		t.Fatalf("expected active tab %s named second, got %#v", second, snap)
	}

	if err := h.ActivateTab(ctx, first); err != nil {
		t.Fatalf("ActivateTab: %v", err)
	}
	testutil.WaitFor(t, 2*time.Second, func() bool {
		snap, err := h.Snapshot(ctx)
		if err != nil {
			return false
		}
		tab, ok := snap.Lookup(first)
		return ok && tab.Active
	})

	testutil.Tmux(t, socket, "kill-window", "-t", second)
	err := h.ActivateTab(ctx, second)
	if !errors.Is(err, host.ErrTabNotFound) {
		t.Fatalf("expected ErrTabNotFound for killed window, got %v", err)
	}
}
