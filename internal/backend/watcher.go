package backend

import (
	"context"
	"sync"
	"time"

	"github.com/atomicstack/lasttab/internal/host"
)

// Source is what the watcher polls.
type Source interface {
	Snapshot(ctx context.Context) (host.Snapshot, error)
}

// Event conveys the host events derived from one poll, or the poll error.
type Event struct {
	Events []host.Event
	Err    error
}

// Watcher polls a Source at a fixed interval and publishes the differences
// between consecutive snapshots as host events.
type Watcher struct {
	source   Source
	interval time.Duration
	throttle *throttle

	ctx    context.Context
	cancel context.CancelFunc

	events chan Event
	poke   chan struct{}
	wg     sync.WaitGroup
}

// NewWatcher starts polling src every interval. Differences are computed
// against baseline first, so events already reflected in the caller's state
// are not replayed.
func NewWatcher(src Source, interval time.Duration, baseline host.Snapshot) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		source:   src,
		interval: interval,
		throttle: newThrottle(minPollGap),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan Event, 16),
		poke:     make(chan struct{}, 1),
	}

	w.wg.Add(1)
	go w.poll(baseline)

	go func() {
		w.wg.Wait()
		close(w.events)
	}()

	return w
}

// minPollGap bounds how often pokes can force a poll.
const minPollGap = 25 * time.Millisecond

// Events returns a channel of backend events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Poke requests an immediate poll. Pokes coalesce.
func (w *Watcher) Poke() {
	select {
	case w.poke <- struct{}{}:
	default:
	}
}

// Stop cancels the watcher. The poller exits after its current fetch
// completes; use Wait if a clean drain is required (e.g. in tests).
func (w *Watcher) Stop() {
	w.cancel()
}

// Wait blocks until the poller has exited and the events channel is closed.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) poll(prev host.Snapshot) {
	defer w.wg.Done()

	emit := func() bool {
		if !w.throttle.wait(w.ctx) {
			return false
		}
		next, err := w.source.Snapshot(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil {
				return false
			}
			return w.send(Event{Err: err})
		}
		diff := host.Diff(prev, next)
		prev = next
		if len(diff) == 0 {
			return true
		}
		return w.send(Event{Events: diff})
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
		case <-w.poke:
		}
		if !emit() {
			return
		}
	}
}

func (w *Watcher) send(evt Event) bool {
	select {
	case <-w.ctx.Done():
		return false
	case w.events <- evt:
		return true
	}
}
