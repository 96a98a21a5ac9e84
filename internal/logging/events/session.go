package events

import "github.com/atomicstack/lasttab/internal/logging"

type SessionTracer struct{}

type SessionReason string

const (
	SessionReasonEscape   SessionReason = "escape"
	SessionReasonBlur     SessionReason = "blur"
	SessionReasonToggle   SessionReason = "toggle"
	SessionReasonReplaced SessionReason = "replaced"
	SessionReasonTimeout  SessionReason = "attach-timeout"
	SessionReasonDetached SessionReason = "detached"
	SessionReasonLaunch   SessionReason = "launch-failed"
	SessionReasonSignal   SessionReason = "signal"
	SessionReasonEmpty    SessionReason = "empty"
)

var Session = SessionTracer{}

func (SessionTracer) Open(id, mode string) {
	logging.Trace("session.open", map[string]interface{}{"id": id, "mode": mode})
}

func (SessionTracer) Attach(id string, pending int) {
	logging.Trace("session.attach", map[string]interface{}{"id": id, "pending": pending})
}

func (SessionTracer) Advance(id string, attached bool) {
	logging.Trace("session.advance", map[string]interface{}{"id": id, "attached": attached})
}

func (SessionTracer) Close(id string, reason SessionReason) {
	logging.Trace("session.close", map[string]interface{}{"id": id, "reason": string(reason)})
}

func (SessionTracer) Commit(id, tabID string) {
	logging.Trace("session.commit", map[string]interface{}{"id": id, "tab": tabID})
}

func (SessionTracer) Cancel(id string, reason SessionReason) {
	logging.Trace("session.cancel", map[string]interface{}{"id": id, "reason": string(reason)})
}

func (SessionTracer) Candidates(limit, mru, total, stale int) {
	logging.Trace("session.candidates", map[string]interface{}{"limit": limit, "mru": mru, "total": total, "stale": stale})
}
