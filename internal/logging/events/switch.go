package events

import "github.com/atomicstack/lasttab/internal/logging"

type SwitchTracer struct{}

var Switch = SwitchTracer{}

func (SwitchTracer) Decision(shortcut, action, mode string) {
	logging.Trace("switch.decision", map[string]interface{}{"shortcut": shortcut, "action": action, "mode": mode})
}

func (SwitchTracer) Activate(tabID, windowID string) {
	logging.Trace("switch.activate", map[string]interface{}{"tab": tabID, "window": windowID})
}

func (SwitchTracer) AutoSwitch(tabID string) {
	logging.Trace("switch.auto", map[string]interface{}{"tab": tabID})
}

func (SwitchTracer) AutoSwitchSkipped(tabID string) {
	logging.Trace("switch.auto.skip", map[string]interface{}{"tab": tabID})
}

func (SwitchTracer) Settings(payload map[string]interface{}) {
	logging.Trace("switch.settings", payload)
}
