package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/lasttab/internal/logging/events"
	"github.com/atomicstack/lasttab/internal/session"
	uistate "github.com/atomicstack/lasttab/internal/ui/state"
)

func (m *Model) handleKeyMsg(msg tea.Msg) tea.Cmd {
	key := msg.(tea.KeyMsg)
	if m.quitting {
		return nil
	}
	switch key.String() {
	case "ctrl+c", "esc":
		return m.cancel(events.SessionReasonEscape)
	case "enter":
		return m.commit(-1)
	case "up", "ctrl+p", "shift+tab":
		return m.moveCursor(-1)
	case "down", "ctrl+n", "tab":
		return m.moveCursor(1)
	case "pgup":
		return m.pageCursor(-1)
	case "pgdown":
		return m.pageCursor(1)
	}
	if _, hold := m.opts.Mode.(session.Hold); hold {
		switch key.String() {
		case "q", "Q", "ctrl+q":
			return m.advance()
		}
		return nil
	}
	return m.handleTextInput(key)
}

func (m *Model) handleTextInput(key tea.KeyMsg) tea.Cmd {
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	after := m.input.Value()
	if after == before || m.sess == nil {
		return cmd
	}
	m.sess.SetQuery(after)
	m.viewport = uistate.Viewport{}
	m.syncViewport()
	events.Filter.Query(m.sess.ID(), after, m.sess.Len())
	return cmd
}

func (m *Model) moveCursor(delta int) tea.Cmd {
	if m.sess == nil || !m.sess.MoveCursor(delta) {
		return nil
	}
	events.UI.Cursor(m.sess.ID(), m.sess.Cursor())
	m.syncViewport()
	return nil
}

func (m *Model) pageCursor(dir int) tea.Cmd {
	if m.sess == nil {
		return nil
	}
	delta := uistate.PageDelta(m.sess.Cursor(), m.sess.Len(), m.maxVisibleItems(), dir)
	if delta == 0 {
		return nil
	}
	return m.moveCursor(delta)
}

func (m *Model) handleMouseMsg(msg tea.Msg) tea.Cmd {
	mouse := msg.(tea.MouseMsg)
	if m.sess == nil || m.quitting {
		return nil
	}
	switch {
	case mouse.Button == tea.MouseButtonWheelUp:
		return m.moveCursor(-1)
	case mouse.Button == tea.MouseButtonWheelDown:
		return m.moveCursor(1)
	case mouse.Button == tea.MouseButtonLeft && mouse.Action == tea.MouseActionRelease:
		if idx, ok := m.rowAt(mouse.Y); ok {
			return m.commit(idx)
		}
	}
	return nil
}

func (m *Model) handleBlurMsg(msg tea.Msg) tea.Cmd {
	if m.opts.Mode == nil {
		return nil
	}
	if browse, ok := m.opts.Mode.(session.Browse); ok && browse.CloseOnBlur {
		return m.cancel(events.SessionReasonBlur)
	}
	return nil
}
