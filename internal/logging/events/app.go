package events

import "github.com/atomicstack/lasttab/internal/logging"

type AppTracer struct{}

var App = AppTracer{}

func (AppTracer) Start(payload map[string]interface{}) {
	logging.Trace("app.start", payload)
}

func (AppTracer) Stop(reason string) {
	logging.Trace("app.stop", map[string]interface{}{"reason": reason})
}

func (AppTracer) ConfigReload(path string, trace bool, level string) {
	logging.Trace("app.config.reload", map[string]interface{}{"path": path, "trace": trace, "level": level})
}

func (AppTracer) Control(action string, err error) {
	payload := map[string]interface{}{"action": action}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("app.control", payload)
}
