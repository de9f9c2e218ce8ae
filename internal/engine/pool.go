package engine

import "time"

// newHandles allocates the slot array on Initialize: resident slots get a
// native transfer object up front, idle-expiring slots create theirs
// lazily on first use (spec.md §3 invariant 3).
func (e *Engine) newHandles() {
	e.handles = make([]*handle, e.cfg.MaxRequestsCount)
	for i := range e.handles {
		h := &handle{index: i, resident: i < e.staticHandleCount, self: e}
		if h.resident {
			h.native = e.client.NewHandle()
		}
		e.handles[i] = h
	}
}

// acquireHandleLocked scans for the first free slot. Callers must hold e.mu.
// Returns nil if every slot is busy or the engine is not STARTED. Send checks
// the state itself first and reports OFFLINE_ERROR for a stopped engine, so a
// nil from here reaches Send's caller as NETWORK_OVERLOAD_ERROR (spec.md §4.1).
func (e *Engine) acquireHandleLocked() *handle {
	if e.getState() != stateStarted {
		return nil
	}
	for _, h := range e.handles {
		if h.inUse {
			continue
		}
		if !h.resident && h.native == nil {
			h.native = e.client.NewHandle()
		}
		h.reset()
		h.inUse = true
		h.sendTime = e.cfg.TimeProvider()
		h.retryCount = 0
		h.cancelled = false
		return h
	}
	return nil
}

// releaseHandleLocked resets and frees a slot for reuse (spec.md §4.1).
// Idempotent: releasing an already-free slot is a no-op.
func (e *Engine) releaseHandleLocked(h *handle) {
	if !h.inUse {
		return
	}
	if h.streamOut != nil {
		h.streamOut.CloseChannel()
	}
	h.reset()
	h.inUse = false
	h.lastUsed = e.cfg.TimeProvider()
}

// idleGCLocked destroys native transfer objects for non-resident slots that
// have sat idle longer than kHandleReuseTimeout, then re-caps every
// still-live native handle's connection pool to the number of currently-live
// native handles (spec.md §4.1, "the multi-transfer client's max-connection
// cap is then set to the count of currently-live native handles"). Callers
// must hold e.mu.
func (e *Engine) idleGCLocked(now time.Time) {
	live := 0
	for _, h := range e.handles {
		if !h.resident && !h.inUse && h.native != nil && now.Sub(h.lastUsed) > kHandleReuseTimeout {
			e.client.Destroy(h.native)
			h.native = nil
			continue
		}
		if h.native != nil {
			live++
		}
	}
	for _, h := range e.handles {
		if h.native != nil {
			e.client.SetConnectionCap(h.native, live)
		}
	}
}
