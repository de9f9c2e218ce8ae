package engine

import (
	"time"

	"github.com/netengine/netengine/internal/engine/transfer"
)

// idleTick is how often the worker wakes on its own, with no posted event
// and no completion, to run idle-handle GC and the lost-handle sweep.
const idleTick = 1 * time.Second

// run is the WorkerLoop of spec.md §4.3. It is the sole goroutine that ever
// reads e.events, mutates handle state outside of acquire/release, or calls
// routeCompletion — every invariant in spec.md §5 reduces to "this function
// runs on exactly one goroutine for the engine's lifetime."
func (e *Engine) run() {
	defer close(e.workerDone)

	for {
		e.mu.Lock()
		events := e.drainEventsLocked()
		e.mu.Unlock()

		for _, ev := range events {
			e.mu.Lock()
			stillInUse := ev.h.inUse
			e.mu.Unlock()
			if !stillInUse {
				continue
			}

			switch ev.kind {
			case eventSend:
				req, err := e.buildTransferRequest(ev.h)
				if err != nil {
					// buildTransferRequest rejected the handle before any
					// goroutine was spawned — no Completion will ever
					// arrive for this slot, so route one now.
					e.routeCompletion(ev.h, transfer.Result{Err: err})
					continue
				}
				e.client.Attach(ev.h.native, req)
			case eventCancel:
				// Detach only; the cancelled completion still flows through
				// Completions() and routeCompletion's h.cancelled branch
				// reports it, so it is never routed twice. If nothing is
				// attached yet, there is nothing to detach — the handle's
				// cancelled flag still makes its eventual completion report
				// CANCELLED.
				if e.client.IsPending(ev.h.index) {
					e.client.Detach(ev.h.index)
				}
			}
		}

		if e.getState() == stateStopping {
			e.teardown()
			return
		}

		e.mu.Lock()
		now := e.cfg.TimeProvider()
		var lost []*handle
		for _, h := range e.handles {
			// Mirrors CURLINFO_TOTAL_TIME == 0.0: a handle that has already
			// received a status line or any body bytes is making progress
			// and is never force-completed just for running long, however
			// long transfer_timeout allows it to run.
			noProgress := h.statusSoFar == 0 && h.count == 0
			if h.inUse && !h.cancelled && !h.forcedLost && noProgress && now.Sub(h.sendTime) > kHandleLostTimeout {
				lost = append(lost, h)
			}
		}
		e.idleGCLocked(now)
		e.mu.Unlock()

		for _, h := range lost {
			if e.client.IsPending(h.index) {
				h.forcedLost = true
				e.client.Detach(h.index)
			}
		}

		timer := time.NewTimer(idleTick)
		select {
		case comp, ok := <-e.client.Completions():
			timer.Stop()
			if !ok {
				return
			}
			h := e.handles[comp.SlotIndex]
			e.routeCompletion(h, comp.Result)
		case <-e.wakeup:
			timer.Stop()
		case <-timer.C:
		}
	}
}
