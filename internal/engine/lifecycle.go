package engine

// Initialize starts the worker goroutine if it is not already running. It is
// idempotent and safe to call concurrently; Send calls it lazily, so most
// callers never need to invoke it directly (spec.md §4.6).
func (e *Engine) Initialize() {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.getState() != stateStopped {
		return
	}

	e.mu.Lock()
	if e.handles == nil {
		e.newHandles()
	} else {
		// A prior Deinitialize's teardown destroyed every native handle,
		// including resident ones, which acquireHandleLocked only
		// recreates lazily for non-resident slots. Restore residents here
		// so spec.md §3 invariant 3 still holds after a restart.
		for _, h := range e.handles {
			if h.resident && h.native == nil {
				h.native = e.client.NewHandle()
			}
		}
	}
	e.workerDone = make(chan struct{})
	e.setStateLocked(stateStarted)
	e.mu.Unlock()

	go e.run()
}

// Deinitialize requests a cooperative shutdown: the worker finishes its
// current iteration, tears down every in-use handle with an OFFLINE_ERROR
// terminal callback, destroys native transfer objects, and exits. Deinitialize
// blocks until the worker has fully stopped (spec.md §4.6).
func (e *Engine) Deinitialize() {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	e.mu.Lock()
	if e.getState() != stateStarted {
		e.mu.Unlock()
		return
	}
	e.setStateLocked(stateStopping)
	done := e.workerDone
	e.mu.Unlock()

	select {
	case e.wakeup <- struct{}{}:
	default:
	}

	<-done
}

// teardown runs once, on the worker goroutine, as run's final act before it
// exits: every still-pending event and every in-use handle is completed with
// OFFLINE_ERROR, native transfer objects are released, and the engine is
// left in STOPPED state so a later Initialize can restart it (spec.md §4.6,
// §8 scenario 6).
func (e *Engine) teardown() {
	e.mu.Lock()
	pending := e.drainEventsLocked()
	var toOffline []*handle
	seen := make(map[*handle]bool)
	for _, ev := range pending {
		if !ev.h.inUse || seen[ev.h] {
			continue
		}
		seen[ev.h] = true
		toOffline = append(toOffline, ev.h)
	}
	for _, h := range e.handles {
		if h.inUse && !seen[h] {
			seen[h] = true
			toOffline = append(toOffline, h)
		}
	}
	e.mu.Unlock()

	for _, h := range toOffline {
		if e.client.IsPending(h.index) {
			e.client.Detach(h.index)
		}
		e.mu.Lock()
		cb := h.callback
		e.releaseHandleLocked(h)
		e.mu.Unlock()
		e.completeOffline(h, cb)
	}

	e.mu.Lock()
	for _, h := range e.handles {
		if h.native != nil {
			e.client.Destroy(h.native)
			h.native = nil
		}
	}
	e.setStateLocked(stateStopped)
	e.mu.Unlock()
}
