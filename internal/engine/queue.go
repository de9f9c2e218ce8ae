package engine

// eventType distinguishes the two intents a producer can post.
type eventType int

const (
	eventSend eventType = iota
	eventCancel
)

// event is one EventQueue entry (spec.md §3): an intent posted by a
// producer for the worker to act on.
type event struct {
	kind eventType
	h    *handle
}

// postEventLocked appends an event under the event mutex and wakes the worker.
// Every post is followed by a non-blocking send on e.wakeup — the engine's
// self-pipe (spec.md §9's "Wakeup mechanism"; see DESIGN.md for why a
// single channel serves both the condition-variable and select-wakeup
// roles spec.md separates). Callers must hold e.mu.
func (e *Engine) postEventLocked(kind eventType, h *handle) {
	e.events = append(e.events, event{kind: kind, h: h})
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

// drainEventsLocked removes and returns all queued events in FIFO order.
// Callers must hold e.mu.
func (e *Engine) drainEventsLocked() []event {
	if len(e.events) == 0 {
		return nil
	}
	drained := e.events
	e.events = nil
	return drained
}
