package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/lasttab/internal/logging"
	"github.com/atomicstack/lasttab/internal/logging/events"
	"github.com/atomicstack/lasttab/internal/session"
)

type candidatesLoadedMsg struct {
	entries []session.Entry
	err     error
}

type signalMsg struct {
	signal session.Signal
}

type signalsClosedMsg struct{}

type releaseMsg struct {
	seq int
}

type activationDoneMsg struct {
	err error
}

func (m *Model) loadCandidatesCmd() tea.Cmd {
	backend := m.backend
	limit := m.opts.Limit
	timeout := m.opts.RequestTimeout
	return func() tea.Msg {
		if backend == nil {
			return candidatesLoadedMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		entries, err := backend.Candidates(ctx, limit)
		return candidatesLoadedMsg{entries: entries, err: err}
	}
}

func waitForSignal(ch <-chan session.Signal) tea.Cmd {
	return func() tea.Msg {
		sig, ok := <-ch
		if !ok {
			return signalsClosedMsg{}
		}
		return signalMsg{signal: sig}
	}
}

func (m *Model) activateCmd(entry session.Entry) tea.Cmd {
	backend := m.backend
	timeout := m.opts.RequestTimeout
	return func() tea.Msg {
		if backend == nil {
			return activationDoneMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return activationDoneMsg{err: backend.Activate(ctx, entry.Ref())}
	}
}

// releaseCmd restarts the hold release timer. Earlier timers are
// invalidated by the sequence number.
func (m *Model) releaseCmd() tea.Cmd {
	hold, ok := m.opts.Mode.(session.Hold)
	if !ok || hold.ReleaseAfter <= 0 {
		return nil
	}
	m.releaseSeq++
	seq := m.releaseSeq
	return tea.Tick(hold.ReleaseAfter, func(time.Time) tea.Msg {
		return releaseMsg{seq: seq}
	})
}

func (m *Model) handleCandidatesLoadedMsg(msg tea.Msg) tea.Cmd {
	loaded := msg.(candidatesLoadedMsg)
	m.loading = false
	if loaded.err != nil {
		err := fmt.Errorf("load candidates: %w", loaded.err)
		m.loadErr = err
		logging.Error(err)
		events.Action.Error(err)
	}
	if m.quitting {
		return nil
	}
	opts := []session.Option{session.WithFuzzy(m.opts.Fuzzy)}
	m.sess = session.New(m.opts.SessionID, m.opts.Mode, loaded.entries, opts...)
	if q := m.input.Value(); q != "" {
		m.sess.SetQuery(q)
	}
	for ; m.pending > 0; m.pending-- {
		m.sess.Advance()
	}
	events.UI.Loaded(m.sess.ID(), m.sess.Total())
	m.syncViewport()
	return m.releaseCmd()
}

func (m *Model) handleSignalMsg(msg tea.Msg) tea.Cmd {
	sig := msg.(signalMsg).signal
	var cmds []tea.Cmd
	if m.opts.Signals != nil {
		cmds = append(cmds, waitForSignal(m.opts.Signals))
	}
	switch sig {
	case session.SignalAdvance:
		cmds = append(cmds, m.advance())
	case session.SignalClose:
		cmds = append(cmds, m.cancel(events.SessionReasonSignal))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleSignalsClosedMsg(msg tea.Msg) tea.Cmd {
	m.opts.Signals = nil
	return m.cancel(events.SessionReasonDetached)
}

func (m *Model) handleReleaseMsg(msg tea.Msg) tea.Cmd {
	if msg.(releaseMsg).seq != m.releaseSeq || m.sess == nil || m.quitting {
		return nil
	}
	entry, ok := m.sess.Release()
	if !ok {
		return m.cancel(events.SessionReasonEmpty)
	}
	return m.finishCommit(entry)
}

func (m *Model) handleActivationDoneMsg(msg tea.Msg) tea.Cmd {
	if err := msg.(activationDoneMsg).err; err != nil {
		err = fmt.Errorf("activate %s: %w", m.result.Chosen.ID, err)
		m.result.Err = err
		logging.Error(err)
		events.Action.Error(err)
	} else {
		events.Action.Success(m.result.Chosen.ID)
	}
	return tea.Quit
}

// advance moves the hold cursor, or queues the move until candidates load.
func (m *Model) advance() tea.Cmd {
	if m.quitting {
		return nil
	}
	if m.sess == nil {
		if _, ok := m.opts.Mode.(session.Hold); ok {
			m.pending++
		}
		return nil
	}
	if !m.sess.Advance() {
		return nil
	}
	events.UI.Cursor(m.sess.ID(), m.sess.Cursor())
	m.syncViewport()
	return m.releaseCmd()
}
