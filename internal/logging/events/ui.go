package events

import "github.com/atomicstack/lasttab/internal/logging"

type UITracer struct{}

type FilterTracer struct{}

type ActionTracer struct{}

var (
	UI     = UITracer{}
	Filter = FilterTracer{}
	Action = ActionTracer{}
)

func (UITracer) Cursor(sessionID string, cursor int) {
	logging.Trace("ui.cursor", map[string]interface{}{"session": sessionID, "cursor": cursor})
}

func (UITracer) Loaded(sessionID string, entries int) {
	logging.Trace("ui.loaded", map[string]interface{}{"session": sessionID, "entries": entries})
}

func (ActionTracer) Error(err error) {
	if err == nil {
		return
	}
	logging.Trace("action.error", map[string]interface{}{"error": err.Error()})
}

func (ActionTracer) Success(info string) {
	logging.Trace("action.success", map[string]interface{}{"info": info})
}

func (FilterTracer) Query(sessionID, query string, matches int) {
	logging.Trace("filter.query", map[string]interface{}{"session": sessionID, "query": query, "matches": matches})
}
