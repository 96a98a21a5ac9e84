package events

import "github.com/atomicstack/lasttab/internal/logging"

type StackTracer struct{}

type PruneReason string

const (
	PruneReasonActivation PruneReason = "activation-failed"
	PruneReasonResolve    PruneReason = "unresolved"
)

var Stack = StackTracer{}

func (StackTracer) Activate(tabID, windowID string, size int) {
	logging.Trace("stack.activate", map[string]interface{}{"tab": tabID, "window": windowID, "size": size})
}

func (StackTracer) Remove(tabID string, wasTop bool, size int) {
	logging.Trace("stack.remove", map[string]interface{}{"tab": tabID, "wasTop": wasTop, "size": size})
}

func (StackTracer) WindowClosed(windowID string, removed int) {
	logging.Trace("stack.window-closed", map[string]interface{}{"window": windowID, "removed": removed})
}

func (StackTracer) Prune(tabID string, reason PruneReason) {
	logging.Trace("stack.prune", map[string]interface{}{"tab": tabID, "reason": string(reason)})
}

func (StackTracer) Reconcile(persisted, live, size int) {
	logging.Trace("stack.reconcile", map[string]interface{}{"persisted": persisted, "live": live, "size": size})
}

func (StackTracer) Persist(size int, err error) {
	payload := map[string]interface{}{"size": size}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("stack.persist", payload)
}
