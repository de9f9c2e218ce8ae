package engine

import (
	"github.com/netengine/netengine/internal/engine/transfer"
)

// routeCompletion is the CompletionRouter of spec.md §4.5. h is the slot
// that produced comp; it is already known to the caller (the worker looks
// it up by SlotIndex), so unlike the reviewed C++ source this never needs a
// native-handle identity lookup.
func (e *Engine) routeCompletion(h *handle, result transfer.Result) {
	e.mu.Lock()

	if h.cancelled {
		resp := NetworkResponse{RequestID: h.id, Status: statusCancelled, Error: "Cancelled"}
		cb := h.callback
		e.releaseHandleLocked(h)
		e.mu.Unlock()
		if cb != nil {
			cb(resp)
		}
		return
	}

	cb := h.callback
	if cb == nil {
		e.releaseHandleLocked(h)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	status, errText, kind := e.classifyCompletion(h, result)

	if e.isRetryEligible(h, status, kind) {
		e.mu.Lock()
		h.retryCount++
		h.count = 0
		e.postEventLocked(eventSend, h)
		e.mu.Unlock()
		return
	}

	resp := NetworkResponse{RequestID: h.id, Status: status, Error: errText}
	e.mu.Lock()
	e.releaseHandleLocked(h)
	e.mu.Unlock()
	cb(resp)
}

// statusCancelled is the sentinel status spec.md reports for a cancelled
// submission's terminal NetworkResponse.
const statusCancelled = -1

// classifyCompletion computes the (status, error-text, ErrorKind) triple
// for a non-cancelled completion, per spec.md §4.5 step 4.
func (e *Engine) classifyCompletion(h *handle, result transfer.Result) (int, string, ErrorKind) {
	if result.Err == nil {
		status, reason := normalizeStatus(result.StatusCode, h.offset)
		return status, reason, ErrSuccess
	}

	if h.forcedLost {
		return errorKindToStatus(ErrTimeout), "Operation timed out", ErrTimeout
	}

	kind, text := classifyTransferError(result.Err, result.TotalTime, h.transferTimeout)
	if h.errorText != "" {
		text = h.errorText
	}
	return errorKindToStatus(kind), text, kind
}

// errorKindToStatus renders an ErrorKind to the numeric status carried on
// NetworkResponse for transfer-level failures: TIMEOUT is reported as 0,
// NETWORK_OVERLOAD as 503, OFFLINE as -2 and every other kind as -3.
// isRetryEligible only retries positive statuses, so of these kinds only
// NETWORK_OVERLOAD (503) is retried; CANCELLED never reaches here, since
// routeCompletion reports it separately above.
func errorKindToStatus(kind ErrorKind) int {
	switch kind {
	case ErrTimeout:
		return 0
	case ErrNetworkOverload:
		return 503
	case ErrOffline:
		return -2
	default:
		return -3
	}
}

// isRetryEligible applies spec.md §4.5 step 5: statuses in (0,200) or
// [500,∞) are retried, up to max_retries, unless the handle was cancelled.
func (e *Engine) isRetryEligible(h *handle, status int, kind ErrorKind) bool {
	if kind == ErrCancelled || kind == ErrOffline {
		return false
	}
	e.mu.Lock()
	cancelled := h.cancelled
	retryCount := h.retryCount
	maxRetries := h.maxRetries
	e.mu.Unlock()
	if cancelled {
		return false
	}
	eligible := status > 0 && (status < 200 || status >= 500)
	return eligible && retryCount < maxRetries
}

// completeOffline is invoked by Teardown for every handle still in-use when
// the engine shuts down (spec.md §4.6, §8 scenario 6).
func (e *Engine) completeOffline(h *handle, cb TerminalCallback) {
	if cb == nil {
		return
	}
	cb(NetworkResponse{RequestID: h.id, Status: -2, Error: offlineMessage})
}
