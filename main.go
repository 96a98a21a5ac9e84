package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/atomicstack/lasttab/internal/cli"
	"github.com/atomicstack/lasttab/internal/config"
	"github.com/atomicstack/lasttab/internal/control"
	"github.com/atomicstack/lasttab/internal/logging"
	"github.com/atomicstack/lasttab/internal/logging/events"
	"golang.org/x/term"
)

func main() {
	err := cli.Execute(context.Background(), cli.Options{OnStartup: traceStartup})
	if err == nil {
		return
	}
	logging.Error(err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.Is(err, cli.ErrConfiguration) {
		os.Exit(2)
	}
	os.Exit(1)
}

func traceStartup(cfg config.Config) {
	events.App.Start(startupTracePayload(cfg))
}

// startupTracePayload bundles runtime context for trace logging.
func startupTracePayload(cfg config.Config) map[string]interface{} {
	flags := make(map[string]interface{}, len(cfg.Flags))
	for k, v := range cfg.Flags {
		flags[k] = v
	}
	flags["trace"] = cfg.Logging.Trace
	flags["logFile"] = cfg.Logging.FilePath
	flags["configFile"] = cfg.File
	payload := map[string]interface{}{
		"argv":   cfg.Args,
		"flags":  flags,
		"config": cfg,
	}
	if exe, err := os.Executable(); err == nil {
		payload["executable"] = exe
	} else {
		payload["executableError"] = err.Error()
	}
	if cwd, err := os.Getwd(); err == nil {
		payload["cwd"] = cwd
	} else {
		payload["cwdError"] = err.Error()
	}
	payload["tty"] = collectTTYDetails()
	payload["tmuxEnv"] = tmuxEnvironment(os.Getenv)
	for k, v := range runtimeDetails(cfg, control.DefaultSocketPath) {
		payload[k] = v
	}
	return payload
}

// runtimeDetails records the resolved locations the daemon and popup will
// actually use, after defaults have been filled in.
func runtimeDetails(cfg config.Config, defaultSocket func() (string, error)) map[string]interface{} {
	out := map[string]interface{}{
		"tmuxSocket":    cfg.Tmux.Socket,
		"watchInterval": cfg.Watcher.Interval.String(),
	}
	if cfg.Control.Socket != "" {
		out["controlSocket"] = cfg.Control.Socket
	} else if path, err := defaultSocket(); err == nil {
		out["controlSocket"] = path
	} else {
		out["controlSocketError"] = err.Error()
	}
	st := map[string]interface{}{"ephemeral": cfg.Store.Ephemeral}
	if !cfg.Store.Ephemeral {
		st["path"] = cfg.Store.Path
	}
	out["store"] = st
	return out
}

// tmuxEnvironment records how the process relates to tmux: the daemon and
// bindings run outside any pane, popups run inside display-popup.
func tmuxEnvironment(getenv func(string) string) map[string]string {
	env := make(map[string]string, 3)
	for _, key := range []string{"TMUX", "TMUX_PANE", "TERM"} {
		if v := getenv(key); v != "" {
			env[key] = v
		}
	}
	return env
}

type ttyDetails struct {
	Detected *ttyDetected     `json:"detected,omitempty"`
	Probes   []ttyProbeResult `json:"probes"`
}

type ttyDetected struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ttyProbeResult struct {
	Name       string `json:"name"`
	IsTerminal bool   `json:"is_terminal"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Error      string `json:"error,omitempty"`
}

// collectTTYDetails inspects standard descriptors for terminal support and dimensions.
func collectTTYDetails() ttyDetails {
	probes := []struct {
		name string
		fd   uintptr
	}{
		{"stdin", os.Stdin.Fd()},
		{"stdout", os.Stdout.Fd()},
		{"stderr", os.Stderr.Fd()},
	}
	results := make([]ttyProbeResult, 0, len(probes))
	var detected *ttyDetected
	for _, probe := range probes {
		entry := ttyProbeResult{Name: probe.name}
		fd := int(probe.fd)
		if fd >= 0 && term.IsTerminal(fd) {
			entry.IsTerminal = true
			if width, height, err := term.GetSize(fd); err == nil {
				entry.Width = width
				entry.Height = height
				if detected == nil {
					detected = &ttyDetected{Source: probe.name, Width: width, Height: height}
				}
			} else {
				entry.Error = err.Error()
			}
		} else {
			entry.IsTerminal = false
		}
		results = append(results, entry)
	}
	return ttyDetails{Detected: detected, Probes: results}
}
