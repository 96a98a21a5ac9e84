package session

import (
	"fmt"
	"strings"
	"time"
)

// Kind names a session mode on the wire and on the command line.
type Kind string

const (
	KindBrowse Kind = "browse"
	KindQuick  Kind = "quick"
	KindHold   Kind = "hold"
)

// ParseKind validates a mode name.
func ParseKind(value string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(value))); k {
	case KindBrowse, KindQuick, KindHold:
		return k, nil
	default:
		return "", fmt.Errorf("unknown session mode %q", value)
	}
}

// Mode is one of Browse, Quick or Hold. Each carries only the options that
// apply to it.
type Mode interface {
	Kind() Kind
	sealed()
}

// Browse is opened by the browse shortcut. It accepts a query and cancels
// when the surface loses focus if CloseOnBlur is set.
type Browse struct {
	CloseOnBlur bool
}

// Quick is opened by the quick-switch shortcut when a popup is requested
// without hold mode.
type Quick struct{}

// Hold cycles on repeated shortcut presses and commits on release. Terminals
// cannot observe modifier release, so ReleaseAfter stands in for it: the
// surface commits once no advance has arrived for that long. Zero disables
// the timer.
type Hold struct {
	ReleaseAfter time.Duration
}

func (Browse) Kind() Kind { return KindBrowse }
func (Quick) Kind() Kind  { return KindQuick }
func (Hold) Kind() Kind   { return KindHold }

func (Browse) sealed() {}
func (Quick) sealed()  {}
func (Hold) sealed()   {}

// ModeOptions carries the per-mode knobs used by NewMode.
type ModeOptions struct {
	CloseOnBlur  bool
	ReleaseAfter time.Duration
}

// NewMode builds the Mode for kind.
func NewMode(kind Kind, opts ModeOptions) Mode {
	switch kind {
	case KindHold:
		return Hold{ReleaseAfter: opts.ReleaseAfter}
	case KindQuick:
		return Quick{}
	default:
		return Browse{CloseOnBlur: opts.CloseOnBlur}
	}
}

func acceptsQuery(m Mode) bool {
	_, hold := m.(Hold)
	return !hold
}
