package tmux

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"

	gotmux "github.com/atomicstack/gotmuxcc/gotmuxcc"
)

var (
	newTmux = func(socketPath string) (tmuxClient, error) {
		if socketPath != "" {
			return gotmux.NewTmux(socketPath)
		}
		return gotmux.DefaultTmux()
	}

	clientMu     sync.Mutex
	cachedClient tmuxClient
	cachedSocket string
)

// client returns the shared control-mode connection for socketPath, dialing a
// new one when none is cached or the socket changed.
func client(socketPath string) (tmuxClient, error) {
	clientMu.Lock()
	defer clientMu.Unlock()
	if cachedClient != nil && cachedSocket == socketPath {
		return cachedClient, nil
	}
	if cachedClient != nil {
		_ = cachedClient.Close()
		cachedClient = nil
	}
	c, err := newTmux(socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect tmux: %w", err)
	}
	cachedClient = c
	cachedSocket = socketPath
	return c, nil
}

// invalidate drops c from the cache so the next call reconnects.
func invalidate(c tmuxClient) {
	clientMu.Lock()
	defer clientMu.Unlock()
	if cachedClient != c || c == nil {
		return
	}
	_ = cachedClient.Close()
	cachedClient = nil
	cachedSocket = ""
}

// Shutdown closes the cached control-mode connection, if any.
func Shutdown() {
	clientMu.Lock()
	defer clientMu.Unlock()
	if cachedClient != nil {
		_ = cachedClient.Close()
	}
	cachedClient = nil
	cachedSocket = ""
}

// ResolveSocketPath picks the tmux server socket: explicit flag, then
// LASTTAB_TMUX_SOCKET, then $TMUX, then the tmux default location.
func ResolveSocketPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if envSocket := os.Getenv("LASTTAB_TMUX_SOCKET"); envSocket != "" {
		return envSocket, nil
	}
	if tmuxEnv := os.Getenv("TMUX"); tmuxEnv != "" {
		parts := strings.Split(tmuxEnv, ",")
		if len(parts) > 0 && parts[0] != "" {
			return parts[0], nil
		}
	}
	baseDir := os.Getenv("TMUX_TMPDIR")
	if baseDir == "" {
		baseDir = "/tmp"
	}
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, fmt.Sprintf("tmux-%s", u.Uid), "default"), nil
}

// isNotFound reports whether err is tmux refusing an unknown target.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "can't find") || strings.Contains(msg, "no such")
}

// classify maps tmux target errors onto sentinel, leaving other errors as-is.
func classify(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return err
}

var errNoClient = errors.New("no attached tmux client")
