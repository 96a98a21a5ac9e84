package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/host/hosttest"
	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/settings"
	"github.com/atomicstack/lasttab/internal/store"
	"github.com/atomicstack/lasttab/internal/switcher"
	"github.com/google/go-cmp/cmp"
)

type fakeLauncher struct {
	mu   sync.Mutex
	reqs []LaunchRequest
	err  error
}

func (f *fakeLauncher) Launch(ctx context.Context, req LaunchRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.err
}

func (f *fakeLauncher) requests() []LaunchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LaunchRequest(nil), f.reqs...)
}

type harness struct {
	ctrl     *Controller
	host     *hosttest.Host
	store    *store.Memory
	launcher *fakeLauncher
	cancel   context.CancelFunc
	done     chan struct{}
}

func testOptions() Options {
	return Options{
		PersistDelay:    20 * time.Millisecond,
		AutoSwitchDelay: 5 * time.Millisecond,
		AttachTimeout:   2 * time.Second,
		HostTimeout:     time.Second,
		SelfMarker:      "lasttab popup",
	}
}

func threeTabs() *hosttest.Host {
	return hosttest.New(host.Window{ID: "$1", Focused: true, Tabs: []host.Tab{
		hosttest.Tab("@1", "$1", "one", false),
		hosttest.Tab("@2", "$1", "two", true),
		hosttest.Tab("@3", "$1", "three", false),
	}})
}

func start(t *testing.T, h *hosttest.Host, st *store.Memory, opts Options) *harness {
	t.Helper()
	if st == nil {
		st = store.NewMemory()
	}
	l := &fakeLauncher{}
	c := New(h, st, l, opts)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	hs := &harness{ctrl: c, host: h, store: st, launcher: l, cancel: cancel, done: done}
	t.Cleanup(hs.stop)
	return hs
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func stackIDs(t *testing.T, c *Controller) []string {
	t.Helper()
	refs, err := c.Stack(context.Background())
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.TabID
	}
	return out
}

func activate(t *testing.T, c *Controller, ids ...string) {
	t.Helper()
	batch := make([]host.Event, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, host.Activated(host.TabRef{TabID: id, WindowID: "$1"}))
	}
	if err := c.HandleEvents(context.Background(), batch); err != nil {
		t.Fatalf("handle events: %v", err)
	}
}

func TestQuickSwitchPingPongEndToEnd(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	activate(t, h.ctrl, "@3", "@1", "@2")
	if diff := cmp.Diff([]string{"@2", "@1", "@3"}, stackIDs(t, h.ctrl)); diff != "" {
		t.Fatalf("unexpected stack (-want +got):\n%s", diff)
	}

	d, err := h.ctrl.QuickSwitch(context.Background())
	if err != nil {
		t.Fatalf("quick switch: %v", err)
	}
	if d.Action != switcher.ActionActivatePrevious {
		t.Fatalf("expected activate-previous, got %v", d.Action)
	}
	eventually(t, "stack [1 2 3]", func() bool {
		return cmp.Equal([]string{"@1", "@2", "@3"}, stackIDs(t, h.ctrl))
	})
	if diff := cmp.Diff([]string{"@1"}, h.host.Activations()); diff != "" {
		t.Fatalf("unexpected activations (-want +got):\n%s", diff)
	}
}

func TestQuickSwitchDisabledIsNoOp(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	off, on := false, true
	if _, err := h.ctrl.UpdateSettings(context.Background(), settings.Patch{QuickSwitchEnabled: &off, HoldModeEnabled: &on}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	d, err := h.ctrl.QuickSwitch(context.Background())
	if err != nil || d.Action != switcher.ActionNone {
		t.Fatalf("expected no-op, got %+v err=%v", d, err)
	}
	time.Sleep(30 * time.Millisecond)
	if len(h.host.Calls()) != 0 || len(h.launcher.requests()) != 0 {
		t.Fatalf("disabled quick switch touched the host: %v %v", h.host.Calls(), h.launcher.requests())
	}
}

func TestAutoSwitchOnCloseActivatesNewTop(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	activate(t, h.ctrl, "@3", "@1", "@2")
	h.host.RemoveTab("@2")
	if err := h.ctrl.HandleEvent(context.Background(), host.Removed("@2")); err != nil {
		t.Fatalf("handle removal: %v", err)
	}
	eventually(t, "activation of @1", func() bool {
		return cmp.Equal([]string{"@1"}, h.host.Activations())
	})
}

func TestAutoSwitchRespectsSetting(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	off := false
	if _, err := h.ctrl.UpdateSettings(context.Background(), settings.Patch{AutoSwitchOnCloseEnabled: &off}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	activate(t, h.ctrl, "@3", "@1", "@2")
	if err := h.ctrl.HandleEvent(context.Background(), host.Removed("@2")); err != nil {
		t.Fatalf("handle removal: %v", err)
	}
	if err := h.ctrl.HandleEvent(context.Background(), host.Removed("@3")); err != nil {
		t.Fatalf("handle removal: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if got := h.host.Activations(); len(got) != 0 {
		t.Fatalf("expected no activations, got %v", got)
	}
}

func TestAutoSwitchSkipsTargetClosedInSameBurst(t *testing.T) {
	fake := hosttest.New(
		host.Window{ID: "$1", Focused: true, Tabs: []host.Tab{hosttest.Tab("@1", "$1", "a", true)}},
		host.Window{ID: "$2", Tabs: []host.Tab{hosttest.Tab("@2", "$2", "b", true)}},
	)
	h := start(t, fake, nil, testOptions())
	batch := []host.Event{
		host.Activated(host.TabRef{TabID: "@2", WindowID: "$2"}),
		host.Activated(host.TabRef{TabID: "@1", WindowID: "$1"}),
		host.Removed("@1"),
		host.WindowRemoved("$2"),
	}
	if err := h.ctrl.HandleEvents(context.Background(), batch); err != nil {
		t.Fatalf("handle events: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if got := h.host.Activations(); len(got) != 0 {
		t.Fatalf("expected no activation, got %v", got)
	}
}

func TestAutoSwitchFocusesWindowOfNewTop(t *testing.T) {
	fake := hosttest.New(
		host.Window{ID: "$1", Focused: true, Tabs: []host.Tab{
			hosttest.Tab("@1", "$1", "a", true),
			hosttest.Tab("@3", "$1", "c", false),
		}},
		host.Window{ID: "$2", Tabs: []host.Tab{hosttest.Tab("@2", "$2", "b", true)}},
	)
	h := start(t, fake, nil, testOptions())
	ctx := context.Background()
	batch := []host.Event{
		host.Activated(host.TabRef{TabID: "@2", WindowID: "$2"}),
		host.Activated(host.TabRef{TabID: "@1", WindowID: "$1"}),
	}
	if err := h.ctrl.HandleEvents(ctx, batch); err != nil {
		t.Fatalf("handle events: %v", err)
	}
	fake.RemoveTab("@1")
	if err := h.ctrl.HandleEvent(ctx, host.Removed("@1")); err != nil {
		t.Fatalf("handle removal: %v", err)
	}
	want := []hosttest.Call{{Op: "activate", ID: "@2"}, {Op: "focus", ID: "$2"}}
	eventually(t, "activation and focus of $2", func() bool {
		return cmp.Equal(want, h.host.Calls())
	})
}

func TestActivateSkipsFocusForSameWindow(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	activate(t, h.ctrl, "@3", "@2")
	if err := h.ctrl.Activate(context.Background(), host.TabRef{TabID: "@3", WindowID: "$1"}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if diff := cmp.Diff([]hosttest.Call{{Op: "activate", ID: "@3"}}, h.host.Calls()); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestActivateFailurePrunesStaleReference(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	activate(t, h.ctrl, "@9")
	err := h.ctrl.Activate(context.Background(), host.TabRef{TabID: "@9", WindowID: "$1"})
	if !errors.Is(err, host.ErrTabNotFound) {
		t.Fatalf("expected ErrTabNotFound, got %v", err)
	}
	for _, id := range stackIDs(t, h.ctrl) {
		if id == "@9" {
			t.Fatalf("stale reference still in stack")
		}
	}
}

func TestCandidatesPruneUnresolvedAndExcludeSelf(t *testing.T) {
	fake := threeTabs()
	h := start(t, fake, nil, testOptions())
	fake.SetWindows(host.Window{ID: "$1", Focused: true, Tabs: []host.Tab{
		hosttest.Tab("@1", "$1", "one", false),
		hosttest.Tab("@2", "$1", "two", true),
		{ID: "@5", WindowID: "$1", Title: "popup", URL: "lasttab popup --mode browse"},
	}})
	activate(t, h.ctrl, "@5", "@3", "@2")

	entries, err := h.ctrl.Candidates(context.Background(), 0)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.ID
	}
	if diff := cmp.Diff([]string{"@2", "@1"}, got); diff != "" {
		t.Fatalf("unexpected candidates (-want +got):\n%s", diff)
	}
	if !entries[0].MRU || !entries[1].MRU {
		t.Fatalf("seeded tabs should be MRU entries: %+v", entries)
	}
	for _, id := range stackIDs(t, h.ctrl) {
		if id == "@3" {
			t.Fatalf("unresolved @3 should have been pruned")
		}
	}
}

func TestStackPersistenceIsDebounced(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	base := h.store.Writes()
	activate(t, h.ctrl, "@1", "@3", "@1", "@3", "@1")
	eventually(t, "debounced write", func() bool { return h.store.Writes() == base+1 })
	time.Sleep(60 * time.Millisecond)
	if got := h.store.Writes(); got != base+1 {
		t.Fatalf("expected a single coalesced write, got %d", got-base)
	}
	raw, _ := h.store.Raw(store.RecordTabStack)
	var refs []host.TabRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		t.Fatalf("decode stack: %v", err)
	}
	if len(refs) == 0 || refs[0].TabID != "@1" {
		t.Fatalf("unexpected persisted stack %s", raw)
	}
}

func TestShutdownFlushesPendingStack(t *testing.T) {
	opts := testOptions()
	opts.PersistDelay = time.Hour
	h := start(t, threeTabs(), nil, opts)
	activate(t, h.ctrl, "@3")
	h.stop()
	refs, err := h.store.LoadStack(context.Background())
	if err != nil {
		t.Fatalf("load stack: %v", err)
	}
	if len(refs) == 0 || refs[0].TabID != "@3" {
		t.Fatalf("pending write was not flushed: %v", refs)
	}
	if _, err := h.ctrl.Stack(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after shutdown, got %v", err)
	}
}

func TestUpdateSettingsPersistsImmediately(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	on := true
	got, err := h.ctrl.UpdateSettings(context.Background(), settings.Patch{HoldModeEnabled: &on})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if !got.HoldModeEnabled || !got.QuickSwitchEnabled {
		t.Fatalf("unexpected merged settings %+v", got)
	}
	stored, err := h.store.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if stored != got {
		t.Fatalf("stored settings %+v differ from %+v", stored, got)
	}
}

func TestInitReconcilesPersistedStack(t *testing.T) {
	st := store.NewMemory()
	persisted := []host.TabRef{{TabID: "@3", WindowID: "$1"}, {TabID: "@dead", WindowID: "$1"}, {TabID: "@1", WindowID: "$1"}}
	if err := st.SaveStack(context.Background(), persisted); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	st.SetRaw(store.RecordSettings, []byte(`{"holdModeEnabled":true}`))
	h := start(t, threeTabs(), st, testOptions())
	if diff := cmp.Diff([]string{"@2", "@3", "@1"}, stackIDs(t, h.ctrl)); diff != "" {
		t.Fatalf("unexpected reconciled stack (-want +got):\n%s", diff)
	}
	s, _ := h.ctrl.Settings(context.Background())
	if !s.HoldModeEnabled || !s.MRUPopupEnabled {
		t.Fatalf("settings not merged over defaults: %+v", s)
	}
	refs, _ := st.LoadStack(context.Background())
	if len(refs) != 3 {
		t.Fatalf("reconciled stack not persisted: %v", refs)
	}
}

func TestHoldSessionLifecycle(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	on := true
	if _, err := h.ctrl.UpdateSettings(context.Background(), settings.Patch{HoldModeEnabled: &on}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	ctx := context.Background()
	d, err := h.ctrl.QuickSwitch(ctx)
	if err != nil || d.Action != switcher.ActionOpenSession || d.Mode != session.KindHold {
		t.Fatalf("expected hold session, got %+v err=%v", d, err)
	}
	eventually(t, "launch", func() bool { return len(h.launcher.requests()) == 1 })
	req := h.launcher.requests()[0]
	if req.Mode != session.KindHold || req.SessionID == "" {
		t.Fatalf("unexpected launch request %+v", req)
	}

	if d, _ := h.ctrl.QuickSwitch(ctx); d.Action != switcher.ActionAdvanceSession {
		t.Fatalf("expected advance before attach, got %+v", d)
	}
	st, _ := h.ctrl.Status(ctx)
	if st.Session == nil || st.Session.Pending != 1 || st.Session.Attached {
		t.Fatalf("expected one pending advance, got %+v", st.Session)
	}

	signals, err := h.ctrl.AttachSession(ctx, req.SessionID)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if sig := <-signals; sig != session.SignalAdvance {
		t.Fatalf("expected replayed advance, got %v", sig)
	}
	if _, err := h.ctrl.QuickSwitch(ctx); err != nil {
		t.Fatalf("quick switch: %v", err)
	}
	if sig := <-signals; sig != session.SignalAdvance {
		t.Fatalf("expected advance, got %v", sig)
	}

	if d, _ := h.ctrl.ShowPopup(ctx); d.Action != switcher.ActionCloseSession {
		t.Fatalf("browse shortcut should toggle the session closed, got %+v", d)
	}
	if sig := <-signals; sig != session.SignalClose {
		t.Fatalf("expected close signal, got %v", sig)
	}
	if _, ok := <-signals; ok {
		t.Fatalf("signal channel should be closed")
	}
	if _, err := h.ctrl.AttachSession(ctx, req.SessionID); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestUnattachedSessionTimesOut(t *testing.T) {
	opts := testOptions()
	opts.AttachTimeout = 50 * time.Millisecond
	h := start(t, threeTabs(), nil, opts)
	if _, err := h.ctrl.ShowPopup(context.Background()); err != nil {
		t.Fatalf("show popup: %v", err)
	}
	eventually(t, "session timeout", func() bool {
		st, err := h.ctrl.Status(context.Background())
		return err == nil && st.Session == nil
	})
}

func TestLaunchFailureDropsSession(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	h.launcher.mu.Lock()
	h.launcher.err = errors.New("no client")
	h.launcher.mu.Unlock()
	if _, err := h.ctrl.ShowPopup(context.Background()); err != nil {
		t.Fatalf("show popup: %v", err)
	}
	eventually(t, "session dropped", func() bool {
		st, err := h.ctrl.Status(context.Background())
		return err == nil && st.Session == nil
	})
}

func TestDetachSessionForgetsIt(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	ctx := context.Background()
	if _, err := h.ctrl.ShowPopup(ctx); err != nil {
		t.Fatalf("show popup: %v", err)
	}
	eventually(t, "launch", func() bool { return len(h.launcher.requests()) == 1 })
	id := h.launcher.requests()[0].SessionID
	if _, err := h.ctrl.AttachSession(ctx, id); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := h.ctrl.DetachSession(ctx, id); err != nil {
		t.Fatalf("detach: %v", err)
	}
	d, _ := h.ctrl.ShowPopup(ctx)
	if d.Action != switcher.ActionOpenSession {
		t.Fatalf("expected a new session after detach, got %+v", d)
	}
}

func TestShowPopupClosesOpenBrowseSession(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	ctx := context.Background()
	d, err := h.ctrl.ShowPopup(ctx)
	if err != nil || d.Action != switcher.ActionOpenSession || d.Mode != session.KindBrowse {
		t.Fatalf("expected browse session, got %+v err=%v", d, err)
	}
	eventually(t, "launch", func() bool { return len(h.launcher.requests()) == 1 })
	req := h.launcher.requests()[0]
	if req.Mode != session.KindBrowse {
		t.Fatalf("unexpected launch request %+v", req)
	}
	signals, err := h.ctrl.AttachSession(ctx, req.SessionID)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	if d, _ := h.ctrl.ShowPopup(ctx); d.Action != switcher.ActionCloseSession {
		t.Fatalf("expected close, got %+v", d)
	}
	if sig := <-signals; sig != session.SignalClose {
		t.Fatalf("expected close signal, got %v", sig)
	}
	st, err := h.ctrl.Status(ctx)
	if err != nil || st.Session != nil {
		t.Fatalf("expected no open session, got %+v err=%v", st.Session, err)
	}
	if n := len(h.launcher.requests()); n != 1 {
		t.Fatalf("closing must not launch another surface, got %d launches", n)
	}
}

func TestShowPopupClosesUnattachedSession(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	ctx := context.Background()
	if _, err := h.ctrl.ShowPopup(ctx); err != nil {
		t.Fatalf("show popup: %v", err)
	}
	if d, _ := h.ctrl.ShowPopup(ctx); d.Action != switcher.ActionCloseSession {
		t.Fatalf("expected close, got %+v", d)
	}
	st, _ := h.ctrl.Status(ctx)
	if st.Session != nil {
		t.Fatalf("expected no open session, got %+v", st.Session)
	}
}

func TestShowPopupDisabledLaunchesNothing(t *testing.T) {
	h := start(t, threeTabs(), nil, testOptions())
	ctx := context.Background()
	off := false
	if _, err := h.ctrl.UpdateSettings(ctx, settings.Patch{MRUPopupEnabled: &off}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	d, err := h.ctrl.ShowPopup(ctx)
	if err != nil || d.Action != switcher.ActionNone {
		t.Fatalf("expected no action, got %+v err=%v", d, err)
	}
	time.Sleep(30 * time.Millisecond)
	if got := h.launcher.requests(); len(got) != 0 {
		t.Fatalf("expected no launches, got %+v", got)
	}
	if got := h.host.Calls(); len(got) != 0 {
		t.Fatalf("expected no host calls, got %+v", got)
	}
	st, _ := h.ctrl.Status(ctx)
	if st.Session != nil {
		t.Fatalf("expected no session, got %+v", st.Session)
	}
}
