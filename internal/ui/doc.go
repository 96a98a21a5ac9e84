// Package ui contains the Bubble Tea program that renders a selection
// session inside a tmux popup.
//
// Message flow:
//   - Init starts the candidate load and, when the popup is attached to a
//     daemon session, a command that waits for the next daemon signal.
//   - Update routes each tea.Msg through a typed handler registry so key
//     presses, loads, signals, and timers each get a focused function.
//   - The selection itself lives in a session.Session. The model only
//     translates input into session transitions and turns a committed
//     session into an activation request followed by tea.Quit.
//
// Hold mode has no key-up events in a terminal, so a release timer stands in
// for letting go of the modifier: every advance restarts it, and when it
// fires the entry under the cursor is committed.
package ui
