package ui

import (
	"context"
	"reflect"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/lasttab/internal/host"
	"github.com/atomicstack/lasttab/internal/logging/events"
	"github.com/atomicstack/lasttab/internal/session"
	"github.com/atomicstack/lasttab/internal/theme"
	uistate "github.com/atomicstack/lasttab/internal/ui/state"
)

var styles = theme.Default()

type msgHandler func(tea.Msg) tea.Cmd

// Backend is what the popup needs from the daemon.
type Backend interface {
	Candidates(ctx context.Context, limit int) ([]session.Entry, error)
	Activate(ctx context.Context, ref host.TabRef) error
}

// Options configures a popup model.
type Options struct {
	SessionID string
	Mode      session.Mode
	// Signals delivers daemon notifications for the session. Nil when the
	// popup runs standalone.
	Signals    <-chan session.Signal
	Limit      int
	Fuzzy      bool
	Width      int
	Height     int
	ShowFooter bool
	// RequestTimeout bounds each backend call.
	RequestTimeout time.Duration
}

// Result reports how the popup ended.
type Result struct {
	State  session.State
	Chosen session.Entry
	Err    error
}

// Model implements the Bubble Tea model for the tab switcher popup.
type Model struct {
	backend Backend
	opts    Options

	sess     *session.Session
	loading  bool
	loadErr  error
	pending  int
	input    textinput.Model
	viewport uistate.Viewport

	width       int
	height      int
	fixedWidth  bool
	fixedHeight bool

	releaseSeq int
	quitting   bool
	result     Result

	handlers map[reflect.Type]msgHandler
}

// NewModel builds the popup model. Candidates load when the program starts.
func NewModel(backend Backend, opts Options) *Model {
	if opts.Mode == nil {
		opts.Mode = session.Browse{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 3 * time.Second
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Search tabs"
	ti.CharLimit = 256
	if styles.FilterPrompt != nil {
		ti.PromptStyle = *styles.FilterPrompt
	}
	if styles.Filter != nil {
		ti.TextStyle = *styles.Filter
	}
	if styles.FilterPlaceholder != nil {
		ti.PlaceholderStyle = *styles.FilterPlaceholder
	}
	if styles.Cursor != nil {
		ti.Cursor.Style = *styles.Cursor
	}
	m := &Model{
		backend: backend,
		opts:    opts,
		loading: true,
		input:   ti,
	}
	if acceptsQuery(opts.Mode) {
		m.input.Focus()
	}
	if opts.Width > 0 {
		m.width = opts.Width
		m.fixedWidth = true
	}
	if opts.Height > 0 {
		m.height = opts.Height
		m.fixedHeight = true
	}
	m.registerHandlers()
	return m
}

// Init is part of the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadCandidatesCmd()}
	if m.opts.Signals != nil {
		cmds = append(cmds, waitForSignal(m.opts.Signals))
	}
	if acceptsQuery(m.opts.Mode) {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Update responds to Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if handler := m.handlerFor(msg); handler != nil {
		return m, handler(msg)
	}
	if acceptsQuery(m.opts.Mode) && !m.quitting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):          m.handleKeyMsg,
		reflect.TypeOf(tea.MouseMsg{}):        m.handleMouseMsg,
		reflect.TypeOf(tea.WindowSizeMsg{}):   m.handleWindowSizeMsg,
		reflect.TypeOf(tea.BlurMsg{}):         m.handleBlurMsg,
		reflect.TypeOf(candidatesLoadedMsg{}): m.handleCandidatesLoadedMsg,
		reflect.TypeOf(signalMsg{}):           m.handleSignalMsg,
		reflect.TypeOf(signalsClosedMsg{}):    m.handleSignalsClosedMsg,
		reflect.TypeOf(releaseMsg{}):          m.handleReleaseMsg,
		reflect.TypeOf(activationDoneMsg{}):   m.handleActivationDoneMsg,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if m.handlers == nil {
		return nil
	}
	return m.handlers[reflect.TypeOf(msg)]
}

func (m *Model) handleWindowSizeMsg(msg tea.Msg) tea.Cmd {
	size := msg.(tea.WindowSizeMsg)
	if !m.fixedWidth {
		m.width = size.Width
	}
	if !m.fixedHeight {
		m.height = size.Height
	}
	m.syncViewport()
	return nil
}

// Session exposes the selection state once candidates have loaded.
func (m *Model) Session() *session.Session { return m.sess }

// Result reports the final state. It is meaningful after the program exits.
func (m *Model) Result() Result {
	res := m.result
	if m.sess != nil {
		res.State = m.sess.State()
		if res.State == session.StateCommitted {
			res.Chosen = m.sess.Chosen()
		}
	} else if res.State == session.StateOpen && m.quitting {
		res.State = session.StateCancelled
	}
	return res
}

func (m *Model) sessionID() string {
	if m.sess != nil {
		return m.sess.ID()
	}
	return m.opts.SessionID
}

// cancel ends the popup without choosing.
func (m *Model) cancel(reason events.SessionReason) tea.Cmd {
	if m.quitting {
		return nil
	}
	if m.sess != nil {
		m.sess.Cancel()
	}
	m.quitting = true
	m.result.State = session.StateCancelled
	events.Session.Cancel(m.sessionID(), reason)
	return tea.Quit
}

// commit ends the popup on entry index (or the cursor when negative) and
// asks the daemon to activate it.
func (m *Model) commit(index int) tea.Cmd {
	if m.sess == nil || m.quitting {
		return nil
	}
	entry, ok := m.sess.Commit(index)
	if !ok {
		return nil
	}
	return m.finishCommit(entry)
}

func (m *Model) finishCommit(entry session.Entry) tea.Cmd {
	m.quitting = true
	m.result.State = session.StateCommitted
	m.result.Chosen = entry
	events.Session.Commit(m.sessionID(), entry.ID)
	return m.activateCmd(entry)
}

func (m *Model) syncViewport() {
	if m.sess == nil {
		m.viewport = uistate.Viewport{}
		return
	}
	m.viewport.EnsureVisible(m.sess.Cursor(), m.sess.Len(), m.maxVisibleItems())
}

func acceptsQuery(mode session.Mode) bool {
	_, hold := mode.(session.Hold)
	return !hold
}
