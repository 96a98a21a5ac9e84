package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Harness drives the UI model programmatically for integration tests.
// Commands run synchronously; a command still blocked after Timeout (a
// signal wait, a cursor blink) is dropped.
type Harness struct {
	model   *Model
	Timeout time.Duration
	quit    bool
}

// NewHarness creates a harness for the provided model.
func NewHarness(model *Model) *Harness {
	return &Harness{model: model, Timeout: 50 * time.Millisecond}
}

// Start runs the model's Init command.
func (h *Harness) Start() {
	if h.model == nil {
		return
	}
	h.drain(h.run(h.model.Init()))
}

// Send routes a message through the model and executes any returned commands.
func (h *Harness) Send(msg tea.Msg) {
	if h.model == nil {
		return
	}
	h.drain([]tea.Msg{msg})
}

func (h *Harness) drain(queue []tea.Msg) {
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		switch v := msg.(type) {
		case tea.QuitMsg:
			h.quit = true
			continue
		case tea.BatchMsg:
			for _, cmd := range v {
				queue = append(queue, h.run(cmd)...)
			}
			continue
		}
		mdl, cmd := h.model.Update(msg)
		if updated, ok := mdl.(*Model); ok {
			h.model = updated
		}
		queue = append(queue, h.run(cmd)...)
	}
}

func (h *Harness) run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(h.Timeout):
		return nil
	}
}

// Quit reports whether the model asked the program to exit.
func (h *Harness) Quit() bool { return h.quit }

// View returns the current view string.
func (h *Harness) View() string {
	if h.model == nil {
		return ""
	}
	return h.model.View()
}

// Model exposes the underlying model.
func (h *Harness) Model() *Model {
	return h.model
}
