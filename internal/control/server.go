package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/atomicstack/lasttab/internal/controller"
	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/logging"
	"github.com/atomicstack/lasttab/internal/logging/events"
	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/settings"
	"github.com/atomicstack/lasttab/internal/switcher"
)

// Backend is the daemon state the server exposes. *controller.Controller
// satisfies it.
type Backend interface {
	Dispatch(ctx context.Context, sc switcher.Shortcut) (switcher.Decision, error)
	Candidates(ctx context.Context, limit int) ([]session.Entry, error)
	Activate(ctx context.Context, ref host.TabRef) error
	Settings(ctx context.Context) (settings.Settings, error)
	UpdateSettings(ctx context.Context, p settings.Patch) (settings.Settings, error)
	AttachSession(ctx context.Context, id string) (<-chan session.Signal, error)
	DetachSession(ctx context.Context, id string) error
	Status(ctx context.Context) (controller.Status, error)
	Refresh(ctx context.Context) error
}

const detachTimeout = time.Second

// Server hosts the lasttab control socket and serves requests.
type Server struct {
	backend    Backend
	socketPath string

	mu       sync.Mutex
	listener net.Listener
	conns    sync.WaitGroup
}

// NewServer creates a control server on socketPath, or the default path when
// socketPath is empty.
func NewServer(backend Backend, socketPath string) (*Server, error) {
	if socketPath == "" {
		var err error
		socketPath, err = DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Server{backend: backend, socketPath: socketPath}, nil
}

// SocketPath reports where the server listens.
func (s *Server) SocketPath() string { return s.socketPath }

// Listen binds the socket. Serve calls it when the caller has not.
func (s *Server) Listen() error {
	s.mu.Lock()
	bound := s.listener != nil
	s.mu.Unlock()
	if bound {
		return nil
	}
	return s.prepareSocket()
}

// Serve accepts connections until the context is cancelled, then waits for
// open connections to finish.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	logging.Info("control server listening", map[string]interface{}{"socket": s.socketPath})
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := s.accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				s.conns.Wait()
				return nil
			}
			logging.Error(fmt.Errorf("control accept: %w", err))
			continue
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, context.Canceled
	}
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (s *Server) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *Server) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("remove control socket", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	var req Request
	if err := dec.Decode(&req); err != nil {
		s.writeError(conn, fmt.Errorf("decode request: %w", err))
		return
	}
	var err error
	switch req.Action {
	case ActionCommand:
		err = s.handleCommand(ctx, conn, req)
	case ActionCandidatesGet:
		err = s.handleCandidates(ctx, conn, req)
	case ActionTabActivate:
		err = s.handleActivate(ctx, conn, req)
	case ActionSettingsGet:
		err = s.handleSettingsGet(ctx, conn)
	case ActionSettingsUpdate:
		err = s.handleSettingsUpdate(ctx, conn, req)
	case ActionSessionAttach:
		err = s.handleAttach(ctx, conn, dec, req)
	case ActionSessionClose:
		err = s.handleSessionClose(ctx, conn, req)
	case ActionStatus:
		err = s.handleStatus(ctx, conn)
	case ActionRefresh:
		if err = s.backend.Refresh(ctx); err == nil {
			s.writeOK(conn, nil)
		}
	default:
		err = fmt.Errorf("unknown action %q", req.Action)
	}
	events.App.Control(req.Action, err)
	if err != nil {
		s.writeError(conn, err)
	}
}

func (s *Server) handleCommand(ctx context.Context, conn net.Conn, req Request) error {
	var params CommandParams
	if err := req.Decode(&params); err != nil {
		return err
	}
	switch params.Command {
	case switcher.ShortcutQuickSwitch, switcher.ShortcutShowPopup:
	default:
		return fmt.Errorf("unknown command %q", params.Command)
	}
	decision, err := s.backend.Dispatch(ctx, params.Command)
	if err != nil {
		return err
	}
	s.writeOK(conn, CommandResult{Action: decision.Action.String(), Mode: decision.Mode})
	return nil
}

func (s *Server) handleCandidates(ctx context.Context, conn net.Conn, req Request) error {
	var params CandidatesParams
	if err := req.Decode(&params); err != nil {
		return err
	}
	entries, err := s.backend.Candidates(ctx, params.Limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []session.Entry{}
	}
	s.writeOK(conn, CandidatesResult{Entries: entries})
	return nil
}

func (s *Server) handleActivate(ctx context.Context, conn net.Conn, req Request) error {
	var ref ActivateParams
	if err := req.Decode(&ref); err != nil {
		return err
	}
	if ref.TabID == "" {
		return errors.New("missing tabId")
	}
	if err := s.backend.Activate(ctx, ref); err != nil {
		return err
	}
	s.writeOK(conn, nil)
	return nil
}

func (s *Server) handleSettingsGet(ctx context.Context, conn net.Conn) error {
	st, err := s.backend.Settings(ctx)
	if err != nil {
		return err
	}
	s.writeOK(conn, st)
	return nil
}

func (s *Server) handleSettingsUpdate(ctx context.Context, conn net.Conn, req Request) error {
	var params SettingsUpdateParams
	if err := req.Decode(&params); err != nil {
		return err
	}
	st, err := s.backend.UpdateSettings(ctx, params.Partial)
	if err != nil {
		return err
	}
	s.writeOK(conn, st)
	return nil
}

func (s *Server) handleSessionClose(ctx context.Context, conn net.Conn, req Request) error {
	var params SessionParams
	if err := req.Decode(&params); err != nil {
		return err
	}
	if params.ID == "" {
		return errors.New("missing session id")
	}
	if err := s.backend.DetachSession(ctx, params.ID); err != nil {
		return err
	}
	s.writeOK(conn, nil)
	return nil
}

func (s *Server) handleStatus(ctx context.Context, conn net.Conn) error {
	st, err := s.backend.Status(ctx)
	if err != nil {
		return err
	}
	s.writeOK(conn, st)
	return nil
}

// handleAttach keeps the connection open and forwards session signals until
// the session ends, the surface hangs up, or the server stops.
func (s *Server) handleAttach(ctx context.Context, conn net.Conn, dec *json.Decoder, req Request) error {
	var params SessionParams
	if err := req.Decode(&params); err != nil {
		return err
	}
	if params.ID == "" {
		return errors.New("missing session id")
	}
	signals, err := s.backend.AttachSession(ctx, params.ID)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), detachTimeout)
		defer cancel()
		if err := s.backend.DetachSession(dctx, params.ID); err != nil && !errors.Is(err, controller.ErrStopped) {
			logging.Error(fmt.Errorf("detach session %s: %w", params.ID, err))
		}
	}()
	s.writeOK(conn, SessionParams{ID: params.ID})

	hangup := make(chan struct{})
	go func() {
		defer close(hangup)
		var discard json.RawMessage
		for {
			if err := dec.Decode(&discard); err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					logging.Debug("attach reader stopped", map[string]interface{}{"session": params.ID, "error": err.Error()})
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hangup:
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if err := s.write(conn, StatusOK, "", SignalMessage{Signal: sig}); err != nil {
				return nil
			}
		}
	}
}

func (s *Server) writeOK(conn net.Conn, data any) {
	if err := s.write(conn, StatusOK, "", data); err != nil {
		logging.Debug("control write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeError(conn net.Conn, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	_ = s.write(conn, StatusError, msg, nil)
}

func (s *Server) write(conn net.Conn, status, msg string, data any) error {
	resp := Response{Status: status, Error: msg}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		resp.Data = raw
	}
	return json.NewEncoder(conn).Encode(resp)
}
