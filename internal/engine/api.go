package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/netengine/netengine/internal/engine/stream"
)

// Send is the PublicAPI entry point of spec.md §4.7. It lazily Initializes
// the engine, allocates a RequestId, acquires a free handle, and posts a
// SEND event for the WorkerLoop to act on; the terminal result arrives later
// through callback. If an admission limiter is configured, Send first waits
// for a token, bounded by the request's connect timeout (SPEC_FULL.md §4.8)
// — the one place Send can block before returning.
func (e *Engine) Send(req NetworkRequest, payload PayloadSink, callback TerminalCallback, headerCallback HeaderCallback, dataCallback DataCallback) SendOutcome {
	if e.getState() == stateStopped {
		e.Initialize()
	}

	if e.limiter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), req.Settings.ConnectTimeout)
		err := e.limiter.Acquire(ctx)
		cancel()
		if err != nil {
			return SendOutcome{Err: ErrNetworkOverload}
		}
	}

	e.mu.Lock()
	if e.getState() != stateStarted {
		e.mu.Unlock()
		return SendOutcome{Err: ErrOffline}
	}

	h := e.acquireHandleLocked()
	if h == nil {
		e.mu.Unlock()
		return SendOutcome{Err: ErrNetworkOverload}
	}

	h.id = e.nextID
	e.nextID++
	if e.nextID > RequestIdMax {
		e.nextID = RequestIdMin
	}

	h.url = req.URL
	h.method = req.Method
	h.body = req.Body
	h.headers = req.Headers
	h.payload = payload
	h.callback = callback
	h.headerCallback = headerCallback
	h.dataCallback = dataCallback
	h.connectTimeout = req.Settings.ConnectTimeout
	h.transferTimeout = req.Settings.TransferTimeout
	h.maxRetries = req.Settings.MaxRetries
	h.proxy = req.Settings.Proxy
	h.getStatistics = req.GetStatistics
	h.skipContent = req.SkipContent
	h.ignoreOffset = req.IgnoreOffset
	h.traceID = req.TraceID
	if h.traceID == "" {
		h.traceID = uuid.NewString()
	}
	if req.Stream {
		h.streamOut = stream.NewChunkStream(context.Background())
	}

	id := h.id
	traceID := h.traceID
	e.postEventLocked(eventSend, h)
	e.mu.Unlock()

	e.tracef("send id=%d trace=%s %s %s", id, traceID, req.Method, req.URL)

	return SendOutcome{RequestID: id, Err: ErrSuccess}
}

// Cancel posts a CANCEL event for id, if it currently names an in-use
// handle. Cancelling an id that has already completed, or was never issued,
// is a silent no-op (spec.md §4.7).
func (e *Engine) Cancel(id RequestId) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.getState() != stateStarted {
		return
	}
	for _, h := range e.handles {
		if h.inUse && h.id == id {
			h.cancelled = true
			e.postEventLocked(eventCancel, h)
			return
		}
	}
}

// Ready reports whether the engine is currently accepting Send calls: it
// must be STARTED and have at least one free handle (spec.md §4.7).
func (e *Engine) Ready() bool {
	if e.getState() != stateStarted {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range e.handles {
		if !h.inUse {
			return true
		}
	}
	return false
}

// AmountPending returns the number of handles currently in use.
func (e *Engine) AmountPending() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, h := range e.handles {
		if h.inUse {
			n++
		}
	}
	return n
}

// Stream returns the chunk stream for id, if Send was called with
// NetworkRequest.Stream set and id still names an in-use handle.
func (e *Engine) Stream(id RequestId) (*stream.ChunkStream, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, h := range e.handles {
		if h.inUse && h.id == id {
			if h.streamOut == nil {
				return nil, false
			}
			return h.streamOut, true
		}
	}
	return nil, false
}
