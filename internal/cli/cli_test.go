package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomicstack/lasttab/internal/config"
	"github.com/atomicstack/lasttab/internal/control"
	"github.com/atomicstack/lasttab/internal/controller"
	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/host/hosttest"
	"github.com/atomicstack/lasttab/internal/store"
)

type nopLauncher struct{}

func (nopLauncher) Launch(ctx context.Context, req controller.LaunchRequest) error { return nil }

type env struct {
	socket string
	logDir string
	host   *hosttest.Host
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))

	dir, err := os.MkdirTemp("", "lasttab-cli-")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return &env{socket: filepath.Join(dir, control.SocketFileName), logDir: tmp}
}

func (e *env) startDaemon(t *testing.T) {
	t.Helper()
	e.host = hosttest.New(host.Window{ID: "$1", Focused: true, Tabs: []host.Tab{
		hosttest.Tab("@1", "$1", "one", false),
		hosttest.Tab("@2", "$1", "two", true),
	}})
	ctrl := controller.New(e.host, store.NewMemory(), nopLauncher{}, controller.Options{PersistDelay: 10 * time.Millisecond})
	require.NoError(t, ctrl.Init(context.Background()))
	srv, err := control.NewServer(ctrl, e.socket)
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = ctrl.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	full := append([]string{"--control-socket", e.socket, "--log-file", filepath.Join(e.logDir, "lasttab.log")}, args...)
	root := NewRootCommand(Options{Stdout: &out, Stderr: &out, Args: full})
	root.SetArgs(full)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSettingsSetAndGet(t *testing.T) {
	e := setupEnv(t)
	e.startDaemon(t)

	out, err := e.run(t, "settings", "set", "holdModeEnabled=true", "quickSwitchEnabled=false")
	require.NoError(t, err)
	require.Contains(t, out, "holdModeEnabled           true")
	require.Contains(t, out, "quickSwitchEnabled        false")

	out, err = e.run(t, "settings", "get", "holdModeEnabled")
	require.NoError(t, err)
	require.Equal(t, "holdModeEnabled  true\n", out)

	out, err = e.run(t, "settings", "get", "--yaml")
	require.NoError(t, err)
	require.Contains(t, out, "holdModeEnabled: true\n")
	require.Contains(t, out, "quickSwitchEnabled: false\n")

	_, err = e.run(t, "settings", "set", "bogus=true")
	require.Error(t, err)
	_, err = e.run(t, "settings", "get", "bogus")
	require.Error(t, err)
}

func TestQuickSwitchCommand(t *testing.T) {
	e := setupEnv(t)
	e.startDaemon(t)

	out, err := e.run(t, "quick-switch", "--verbose")
	require.NoError(t, err)
	require.Equal(t, "activate-previous\n", out)
	require.Eventually(t, func() bool {
		acts := e.host.Activations()
		return len(acts) == 1 && acts[0] == "@1"
	}, 2*time.Second, 10*time.Millisecond)

	out, err = e.run(t, "show-mru-popup")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestShowPopupCommandTogglesSession(t *testing.T) {
	e := setupEnv(t)
	e.startDaemon(t)

	out, err := e.run(t, "show-mru-popup", "--verbose")
	require.NoError(t, err)
	require.Equal(t, "open-session (browse)\n", out)

	out, err = e.run(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, " browse attached=false pending=0\n")

	out, err = e.run(t, "show-mru-popup", "--verbose")
	require.NoError(t, err)
	require.Equal(t, "close-session\n", out)

	_, err = e.run(t, "settings", "set", "mruPopupEnabled=false")
	require.NoError(t, err)
	out, err = e.run(t, "show-mru-popup", "--verbose")
	require.NoError(t, err)
	require.Equal(t, "none\n", out)

	out, err = e.run(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "session:\n  none\n")
}

func TestStatusCommand(t *testing.T) {
	e := setupEnv(t)
	e.startDaemon(t)

	out, err := e.run(t, "status")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "stack:\n  1  @2  $1\n  2  @1  $1\nsession:\n  none\nsettings:\n"), out)

	out, err = e.run(t, "status", "--yaml")
	require.NoError(t, err)
	require.Contains(t, out, "- tabId: '@2'\n")
	require.Contains(t, out, "quickSwitchEnabled: true")
}

func TestRefreshCommand(t *testing.T) {
	e := setupEnv(t)
	e.startDaemon(t)
	_, err := e.run(t, "refresh")
	require.NoError(t, err)
}

func TestCommandsReportMissingDaemon(t *testing.T) {
	e := setupEnv(t)
	_, err := e.run(t, "status")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not running")
}

func TestBindingsCommand(t *testing.T) {
	e := setupEnv(t)
	out, err := e.run(t, "bindings", "--popup-key", "")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	require.True(t, strings.HasPrefix(lines[0], "bind-key -n M-Tab run-shell -b "), lines[0])
	require.True(t, strings.HasSuffix(lines[0], " quick-switch'"), lines[0])
}

func TestPopupRejectsUnknownMode(t *testing.T) {
	e := setupEnv(t)
	_, err := e.run(t, "popup", "--mode", "sideways")
	require.Error(t, err)
}

func TestStartupHookReceivesConfig(t *testing.T) {
	e := setupEnv(t)
	var got config.Config
	var out bytes.Buffer
	args := []string{"--control-socket", e.socket, "--trace", "--log-file", filepath.Join(e.logDir, "x.log"), "bindings"}
	root := NewRootCommand(Options{Stdout: &out, Stderr: &out, Args: args, OnStartup: func(c config.Config) { got = c }})
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.Equal(t, e.socket, got.Control.Socket)
	require.True(t, got.Logging.Trace)
	require.Equal(t, "true", got.Flags["trace"])
}
