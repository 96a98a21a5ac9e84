// Package theme holds the Lip Gloss styles the popup renders with.
package theme

import "github.com/charmbracelet/lipgloss"

// Styles describes reusable Lip Gloss styles shared across the UI.
type Styles struct {
	Loading               *lipgloss.Style
	Item                  *lipgloss.Style
	ItemIndicator         *lipgloss.Style
	SelectedItemIndicator *lipgloss.Style
	SelectedItem          *lipgloss.Style
	Location              *lipgloss.Style
	SelectedLocation      *lipgloss.Style
	Command               *lipgloss.Style
	Divider               *lipgloss.Style
	Empty                 *lipgloss.Style
	Error                 *lipgloss.Style
	Header                *lipgloss.Style
	Footer                *lipgloss.Style
	Filter                *lipgloss.Style
	FilterPrompt          *lipgloss.Style
	FilterPlaceholder     *lipgloss.Style
	Cursor                *lipgloss.Style
}

var defaultStyles = Styles{
	Loading: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Italic(true),
	),
	Item: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	ItemIndicator: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	),
	SelectedItemIndicator: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Background(lipgloss.Color("238")),
	),
	SelectedItem: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Bold(true),
	),
	Location: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	),
	SelectedLocation: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("238")),
	),
	Command: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("37")),
	),
	Divider: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true),
	),
	Empty: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
	),
	Error: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	),
	Header: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true),
	),
	Footer: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	),
	Filter: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	FilterPrompt: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
	),
	FilterPlaceholder: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	),
	Cursor: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("33")),
	),
}

// Default exposes the standard style set used across the application.
func Default() *Styles {
	return &defaultStyles
}

// Plain returns a style set with every style reset, for tests and
// terminals without colour.
func Plain() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Loading: ptr(plain), Item: ptr(plain), ItemIndicator: ptr(plain),
		SelectedItemIndicator: ptr(plain), SelectedItem: ptr(plain),
		Location: ptr(plain), SelectedLocation: ptr(plain), Command: ptr(plain),
		Divider: ptr(plain), Empty: ptr(plain), Error: ptr(plain), Header: ptr(plain),
		Footer: ptr(plain), Filter: ptr(plain), FilterPrompt: ptr(plain),
		FilterPlaceholder: ptr(plain), Cursor: ptr(plain),
	}
}

func ptr(style lipgloss.Style) *lipgloss.Style {
	return &style
}
