package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/logging"
	"github.com/atomicstack/lasttab/internal/logging/events"
	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/switcher"
	"github.com/google/uuid"
)

const signalBuffer = 16

var newSessionID = uuid.NewString

// openSession tracks the single popup the daemon has launched. It is
// pending until the surface attaches; advances seen meanwhile are counted
// and replayed on attach.
type openSession struct {
	id       string
	kind     session.Kind
	attached bool
	pending  int
	signals  chan session.Signal
	timer    *time.Timer
}

func (c *Controller) openState() switcher.OpenSession {
	if c.open == nil {
		return switcher.OpenSession{}
	}
	return switcher.OpenSession{Open: true, Kind: c.open.kind}
}

func (c *Controller) openSession(kind session.Kind) {
	if c.open != nil {
		c.closeOpen(events.SessionReasonReplaced)
	}
	if c.launcher == nil {
		logging.Warn("no popup launcher configured", map[string]interface{}{"mode": string(kind)})
		return
	}
	s := &openSession{
		id:      newSessionID(),
		kind:    kind,
		signals: make(chan session.Signal, signalBuffer),
	}
	c.open = s
	events.Session.Open(s.id, string(kind))
	s.timer = time.AfterFunc(c.opts.AttachTimeout, func() {
		c.post(func() {
			if c.open == s && !s.attached {
				c.dropOpen(events.SessionReasonTimeout)
			}
		})
	})

	req := LaunchRequest{SessionID: s.id, Mode: kind}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.HostTimeout)
		defer cancel()
		if err := c.launcher.Launch(ctx, req); err != nil {
			err = fmt.Errorf("launch popup: %w", err)
			logging.Error(err)
			events.Action.Error(err)
			c.post(func() {
				if c.open == s {
					c.dropOpen(events.SessionReasonLaunch)
				}
			})
		}
	}()
}

func (c *Controller) advance() {
	s := c.open
	if s == nil {
		return
	}
	events.Session.Advance(s.id, s.attached)
	if !s.attached {
		s.pending++
		return
	}
	select {
	case s.signals <- session.SignalAdvance:
	default:
		logging.Warn("dropping advance for slow session", map[string]interface{}{"session": s.id})
	}
}

// closeOpen tells the surface to close and forgets the session.
func (c *Controller) closeOpen(reason events.SessionReason) {
	s := c.open
	if s == nil {
		return
	}
	if s.attached {
		select {
		case s.signals <- session.SignalClose:
		default:
		}
	}
	c.dropOpen(reason)
}

func (c *Controller) dropOpen(reason events.SessionReason) {
	s := c.open
	if s == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.signals)
	c.open = nil
	events.Session.Close(s.id, reason)
}

// AttachSession registers the surface for session id and returns the
// channel its signals arrive on. The channel closes when the session ends.
func (c *Controller) AttachSession(ctx context.Context, id string) (<-chan session.Signal, error) {
	var (
		ch  <-chan session.Signal
		err error
	)
	if derr := c.do(ctx, func() {
		s := c.open
		if s == nil || s.id != id {
			err = fmt.Errorf("attach %s: %w", id, ErrUnknownSession)
			return
		}
		if s.attached {
			err = fmt.Errorf("attach %s: already attached", id)
			return
		}
		s.attached = true
		if s.timer != nil {
			s.timer.Stop()
		}
		events.Session.Attach(id, s.pending)
		for ; s.pending > 0; s.pending-- {
			select {
			case s.signals <- session.SignalAdvance:
			default:
			}
		}
		ch = s.signals
	}); derr != nil {
		return nil, derr
	}
	return ch, err
}

// DetachSession forgets session id once its surface has gone away.
func (c *Controller) DetachSession(ctx context.Context, id string) error {
	return c.do(ctx, func() {
		if c.open != nil && c.open.id == id {
			c.dropOpen(events.SessionReasonDetached)
		}
	})
}

// Candidates builds the popup's candidate list: up to limit MRU entries
// followed by every other open tab. References that no longer resolve are
// pruned from the stack.
func (c *Controller) Candidates(ctx context.Context, limit int) ([]session.Entry, error) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	var refs []host.TabRef
	if err := c.do(ctx, func() { refs = c.stack.TopN(limit) }); err != nil {
		return nil, err
	}
	snap, err := c.host.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate tabs: %w", err)
	}
	entries, stale := session.BuildCandidates(refs, snap, c.opts.SelfMarker)
	if len(stale) > 0 {
		if err := c.do(ctx, func() {
			for _, ref := range stale {
				c.prune(ref.TabID, events.PruneReasonResolve)
			}
		}); err != nil {
			return nil, err
		}
	}
	mru := 0
	for _, e := range entries {
		if e.MRU {
			mru++
		}
	}
	events.Session.Candidates(limit, mru, len(entries), len(stale))
	return entries, nil
}
