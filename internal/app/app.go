package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/atomicstack/lasttab/internal/backend"
	"github.com/atomicstack/lasttab/internal/config"
	"github.com/atomicstack/lasttab/internal/control"
	"github.com/atomicstack/lasttab/internal/control/client"
	"github.com/atomicstack/lasttab/internal/controller"
	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/logging"
	"github.com/atomicstack/lasttab/internal/logging/events"
	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/store"
	"github.com/atomicstack/lasttab/internal/tmux"
	"github.com/atomicstack/lasttab/internal/ui"
)

// closeTimeout bounds the session.close call a popup makes on exit.
const closeTimeout = time.Second

// RunDaemon connects to tmux, opens the store and serves the control socket
// until ctx is cancelled.
func RunDaemon(ctx context.Context, cfg config.Config) error {
	socketPath, err := tmux.ResolveSocketPath(cfg.Tmux.Socket)
	if err != nil {
		return fmt.Errorf("resolve socket path: %w", err)
	}
	controlPath, err := controlSocket(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()
	defer tmux.Shutdown()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	h := tmux.NewHost(socketPath)
	launcher := tmux.NewPopupLauncher(h, popupCommand(exe, controlPath, cfg), tmux.PopupOptions{
		Width:  cfg.Popup.Width,
		Height: cfg.Popup.Height,
		Title:  cfg.Popup.Title,
	})
	logging.Info("daemon starting", map[string]interface{}{
		"tmuxSocket":    socketPath,
		"controlSocket": controlPath,
		"store":         cfg.Store.Path,
		"ephemeral":     cfg.Store.Ephemeral,
	})
	return runDaemon(ctx, cfg, h, st, launcher, controlPath)
}

func runDaemon(ctx context.Context, cfg config.Config, h host.Host, st store.Store, launcher controller.Launcher, controlPath string) error {
	ctrl := controller.New(h, st, launcher, controllerOptions(cfg))
	if err := ctrl.Init(ctx); err != nil {
		return fmt.Errorf("initialise controller: %w", err)
	}
	srv, err := control.NewServer(ctrl, controlPath)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}

	watcher := backend.NewWatcher(h, cfg.Watcher.Interval, ctrl.Baseline())
	ctrl.SetPoke(watcher.Poke)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return srv.Serve(gctx) })
	g.Go(func() error {
		defer watcher.Stop()
		return pump(gctx, ctrl, watcher)
	})
	err = g.Wait()
	watcher.Wait()
	events.App.Stop("daemon exit")
	return err
}

// pump feeds watcher batches into the controller.
func pump(ctx context.Context, ctrl *controller.Controller, w *backend.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.Events():
			if !ok {
				return nil
			}
			if evt.Err != nil {
				logging.Error(fmt.Errorf("poll tmux: %w", evt.Err))
				continue
			}
			if err := ctrl.HandleEvents(ctx, evt.Events); err != nil {
				if errors.Is(err, controller.ErrStopped) || ctx.Err() != nil {
					return nil
				}
				logging.Error(err)
			}
		}
	}
}

func openStore(ctx context.Context, cfg config.Store) (store.Store, error) {
	if cfg.Ephemeral {
		return store.NewMemory(), nil
	}
	st, err := store.OpenSQLite(ctx, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func controlSocket(cfg config.Config) (string, error) {
	if cfg.Control.Socket != "" {
		return cfg.Control.Socket, nil
	}
	path, err := control.DefaultSocketPath()
	if err != nil {
		return "", fmt.Errorf("resolve control socket: %w", err)
	}
	return path, nil
}

func controllerOptions(cfg config.Config) controller.Options {
	return controller.Options{
		PersistDelay:    cfg.Controller.PersistDelay,
		AutoSwitchDelay: cfg.Controller.AutoSwitchDelay,
		AttachTimeout:   cfg.Controller.AttachTimeout,
		HostTimeout:     cfg.Controller.HostTimeout,
		SelfMarker:      cfg.Popup.SelfMarker,
	}
}

// popupCommand is the argv tmux runs inside display-popup. The launcher
// appends the session mode and id.
func popupCommand(exe, controlPath string, cfg config.Config) []string {
	argv := []string{exe, "popup", "--control-socket", controlPath}
	if cfg.File != "" {
		argv = append(argv, "--config", cfg.File)
	}
	if cfg.Logging.Trace {
		argv = append(argv, "--trace")
	}
	return argv
}

// PopupRequest names the session a popup surface renders.
type PopupRequest struct {
	SessionID string
	Mode      session.Kind
}

// RunPopup attaches to the daemon's session and runs the Bubble Tea program
// until the session ends.
func RunPopup(ctx context.Context, cfg config.Config, req PopupRequest) error {
	cl, err := client.New(cfg.Control.Socket)
	if err != nil {
		return err
	}
	opts := popupOptions(cfg, req)
	if req.SessionID != "" {
		sub, err := cl.Attach(ctx, req.SessionID)
		if err != nil {
			return fmt.Errorf("attach session %s: %w", req.SessionID, err)
		}
		defer sub.Close()
		opts.Signals = sub.Signals()
		defer closeSession(cl, req.SessionID)
	}

	model := ui.NewModel(cl, opts)
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func popupOptions(cfg config.Config, req PopupRequest) ui.Options {
	return ui.Options{
		SessionID: req.SessionID,
		Mode: session.NewMode(req.Mode, session.ModeOptions{
			CloseOnBlur:  cfg.Popup.CloseOnBlur,
			ReleaseAfter: cfg.Popup.HoldRelease,
		}),
		Limit:      cfg.Popup.Limit,
		Fuzzy:      cfg.Popup.Fuzzy,
		ShowFooter: cfg.Popup.Footer,
	}
}

func closeSession(cl *client.Client, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := cl.CloseSession(ctx, id); err != nil && !errors.Is(err, client.ErrDaemonUnavailable) {
		logging.Error(fmt.Errorf("close session %s: %w", id, err))
	}
}
