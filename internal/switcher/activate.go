package switcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/atomicstack/lasttab/internal/host"
)

// ActivationError reports a failed activation request. Stale is set when the
// host no longer knows the tab, meaning the reference must be pruned.
type ActivationError struct {
	Ref   host.TabRef
	Stage string
	Stale bool
	Err   error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Ref.TabID, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }

// Prunable reports whether a failed activation should drop the reference
// from the stack. Any failure of the tab activation itself counts; a
// failure to focus the window after the tab was activated does not.
func Prunable(err error) bool {
	var ae *ActivationError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Stage == StageActivate
}

const (
	StageActivate = "activate"
	StageFocus    = "focus"
)

// Activator applies activation requests against a host.
type Activator struct {
	Host host.Host
}

// Activate activates ref and, when ref lives in a window other than
// focusedWindow, focuses that window too.
func (a Activator) Activate(ctx context.Context, ref host.TabRef, focusedWindow string) error {
	if a.Host == nil {
		return errors.New("no host configured")
	}
	if err := a.Host.ActivateTab(ctx, ref.TabID); err != nil {
		return &ActivationError{Ref: ref, Stage: StageActivate, Stale: errors.Is(err, host.ErrTabNotFound), Err: err}
	}
	if ref.WindowID == "" || ref.WindowID == focusedWindow {
		return nil
	}
	if err := a.Host.FocusWindow(ctx, ref.WindowID); err != nil {
		return &ActivationError{Ref: ref, Stage: StageFocus, Stale: errors.Is(err, host.ErrWindowNotFound), Err: err}
	}
	return nil
}
