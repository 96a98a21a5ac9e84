package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/host/hosttest"
)

func nextEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case evt, ok := <-w.Events():
		if !ok {
			t.Fatalf("events channel closed")
		}
		return evt
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for watcher event")
	}
	return Event{}
}

func TestWatcherEmitsDiffs(t *testing.T) {
	fake := hosttest.New(host.Window{ID: "$1", Focused: true, Tabs: []host.Tab{
		hosttest.Tab("@1", "$1", "a", true),
		hosttest.Tab("@2", "$1", "b", false),
	}})
	baseline, _ := fake.Snapshot(context.Background())
	w := NewWatcher(fake, time.Hour, baseline)
	defer func() {
		w.Stop()
		w.Wait()
	}()

	if err := fake.ActivateTab(context.Background(), "@2"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	w.Poke()
	evt := nextEvent(t, w)
	if evt.Err != nil || len(evt.Events) != 1 || evt.Events[0].Kind != host.EventActivated || evt.Events[0].TabID != "@2" {
		t.Fatalf("unexpected event %+v", evt)
	}

	fake.RemoveTab("@1")
	w.Poke()
	evt = nextEvent(t, w)
	if len(evt.Events) != 1 || evt.Events[0].Kind != host.EventRemoved || evt.Events[0].TabID != "@1" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestWatcherReportsErrors(t *testing.T) {
	fake := hosttest.New()
	fake.SetSnapshotError(errors.New("server gone"))
	w := NewWatcher(fake, 10*time.Millisecond, host.Snapshot{})
	defer func() {
		w.Stop()
		w.Wait()
	}()
	evt := nextEvent(t, w)
	if evt.Err == nil {
		t.Fatalf("expected error event, got %+v", evt)
	}
}

func TestWatcherClosesEventsOnStop(t *testing.T) {
	w := NewWatcher(hosttest.New(), time.Hour, host.Snapshot{})
	w.Stop()
	w.Wait()
	select {
	case _, ok := <-w.Events():
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("events channel not closed")
	}
}
