package ui

import (
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/atomicstack/lasttab/internal/session"
)

const (
	itemIndicator  = "▌"
	ellipsis       = "…"
	dividerLabel   = "All tabs"
	emptyStack     = "No recent tabs"
	emptyMatches   = "No matching tabs"
	loadingMessage = "Loading tabs…"
	holdHeader     = "Recent tabs"
	titleFraction  = 0.6
)

type rowKind int

const (
	rowEntry rowKind = iota
	rowDivider
)

type row struct {
	kind  rowKind
	index int
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	lines := []string{m.headerLine()}
	switch {
	case m.sess == nil:
		lines = append(lines, render(styles.Loading, loadingMessage))
	case m.sess.Len() == 0:
		lines = append(lines, m.emptyLine())
	default:
		entries := m.sess.Entries()
		for _, r := range m.rows() {
			if r.kind == rowDivider {
				lines = append(lines, m.dividerLine())
				continue
			}
			lines = append(lines, m.entryLine(entries[r.index], r.index == m.sess.Cursor()))
		}
	}
	if m.opts.ShowFooter {
		lines = append(lines, render(styles.Footer, m.footerText()))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) headerLine() string {
	if acceptsQuery(m.opts.Mode) {
		return m.input.View()
	}
	return render(styles.Header, holdHeader)
}

func (m *Model) emptyLine() string {
	if m.sess.Total() == 0 {
		if m.loadErr != nil {
			return render(styles.Error, m.loadErr.Error())
		}
		return render(styles.Empty, emptyStack)
	}
	return render(styles.Empty, emptyMatches)
}

func (m *Model) footerText() string {
	if _, hold := m.opts.Mode.(session.Hold); hold {
		return "q next · enter switch · esc close"
	}
	return "↑/↓ move · enter switch · esc close"
}

// rows lays out the visible part of the list, inserting the divider before
// the first non-recent entry when it falls inside the window.
func (m *Model) rows() []row {
	if m.sess == nil {
		return nil
	}
	start, end := m.viewport.Window(m.sess.Len(), m.maxVisibleItems())
	divider := m.sess.SectionStart()
	out := make([]row, 0, end-start+1)
	for i := start; i < end; i++ {
		if i == divider {
			out = append(out, row{kind: rowDivider, index: i})
		}
		out = append(out, row{kind: rowEntry, index: i})
	}
	return out
}

// rowAt maps a screen line to an entry index.
func (m *Model) rowAt(y int) (int, bool) {
	if m.sess == nil || m.sess.Len() == 0 {
		return 0, false
	}
	rows := m.rows()
	pos := y - 1
	if pos < 0 || pos >= len(rows) || rows[pos].kind != rowEntry {
		return 0, false
	}
	return rows[pos].index, true
}

// maxVisibleItems is the number of entry rows that fit, or 0 for no limit.
func (m *Model) maxVisibleItems() int {
	if m.height <= 0 {
		return 0
	}
	reserved := 1
	if m.opts.ShowFooter {
		reserved++
	}
	if m.sess != nil && m.sess.SectionStart() >= 0 {
		reserved++
	}
	avail := m.height - reserved
	if avail < 1 {
		avail = 1
	}
	return avail
}

func (m *Model) dividerLine() string {
	label := " " + dividerLabel + " "
	width := m.width
	if width <= 0 {
		return render(styles.Divider, "──"+label+"──")
	}
	pad := width - ansi.StringWidth(label)
	if pad < 2 {
		return render(styles.Divider, truncate.StringWithTail(strings.TrimSpace(label), uint(width), ellipsis))
	}
	left := pad / 2
	return render(styles.Divider, strings.Repeat("─", left)+label+strings.Repeat("─", pad-left))
}

func (m *Model) entryLine(e session.Entry, selected bool) string {
	indicatorStyle, titleStyle, locStyle := styles.ItemIndicator, styles.Item, styles.Location
	if selected {
		indicatorStyle, titleStyle, locStyle = styles.SelectedItemIndicator, styles.SelectedItem, styles.SelectedLocation
	}
	title := e.Title
	if e.Icon != "" {
		title += " · " + e.Icon
	}
	loc := formatLocation(e.URL)
	sep := ""
	if loc != "" {
		sep = "  "
	}
	if m.width > 0 {
		avail := m.width - ansi.StringWidth(itemIndicator) - 1
		title, loc = fitColumns(title, loc, avail-len(sep))
		if loc == "" {
			sep = ""
		}
	}
	body := title + sep + loc
	pad := ""
	if m.width > 0 {
		if n := m.width - ansi.StringWidth(itemIndicator) - 1 - ansi.StringWidth(body); n > 0 {
			pad = strings.Repeat(" ", n)
		}
	}
	return render(indicatorStyle, itemIndicator) + render(titleStyle, " "+title+sep) + render(locStyle, loc+pad)
}

// fitColumns truncates title and location so together they fit avail
// columns, giving the title priority up to titleFraction of the width.
func fitColumns(title, loc string, avail int) (string, string) {
	if avail <= 0 {
		return "", ""
	}
	tw, lw := ansi.StringWidth(title), ansi.StringWidth(loc)
	if tw+lw <= avail {
		return title, loc
	}
	titleMax := int(float64(avail) * titleFraction)
	if tw < titleMax {
		titleMax = tw
	}
	locMax := avail - titleMax
	if locMax < 2 {
		return truncate.StringWithTail(title, uint(avail), ellipsis), ""
	}
	return truncate.StringWithTail(title, uint(titleMax), ellipsis), truncate.StringWithTail(loc, uint(locMax), ellipsis)
}

// formatLocation shortens a tab location for display: URLs lose their
// scheme, paths under $HOME use ~.
func formatLocation(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		if u.Path == "" || u.Path == "/" {
			return u.Host
		}
		return u.Host + u.Path
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" && home != "/" {
		if raw == home {
			return "~"
		}
		if strings.HasPrefix(raw, home+"/") {
			return "~" + strings.TrimPrefix(raw, home)
		}
	}
	return raw
}

func render(style *lipgloss.Style, text string) string {
	if style == nil {
		return text
	}
	return style.Render(text)
}
