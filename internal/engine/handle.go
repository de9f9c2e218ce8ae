package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/netengine/netengine/internal/engine/stream"
	"github.com/netengine/netengine/internal/engine/transfer"
)

// handle is the RequestHandle of spec.md §3: the unit of work. Every field
// the spec names appears below; fields it leaves unspecified (trace id,
// stream) are additions noted in SPEC_FULL.md.
type handle struct {
	index    int  // slot position, immutable
	resident bool // slots [0, staticHandleCount) are resident
	inUse    bool
	cancelled bool

	// forcedLost is set by the lost-handle sweep when it detaches a handle
	// that never produced a completion within kHandleLostTimeout. The
	// completion that Detach's cancellation eventually produces is still
	// routed through the normal channel — forcedLost just tells
	// routeCompletion to report it as a timeout rather than "context
	// canceled", so no handle is ever completed twice.
	forcedLost bool

	id              RequestId
	retryCount      int
	maxRetries      int
	connectTimeout  time.Duration
	transferTimeout time.Duration

	count    int64 // bytes written to payload
	offset   int64 // byte offset announced by server for ranged responses
	rangeOut bool  // server reports requested range past end of resource

	statusSoFar int // HTTP status observed so far, for skip_content checks

	etag        string
	contentType string
	date        string
	maxAge      int64
	expires     int64

	payload PayloadSink
	body    []byte

	callback       TerminalCallback
	headerCallback HeaderCallback
	dataCallback   DataCallback

	sendTime  time.Time
	errorText string

	traceID string

	url      string
	method   Verb
	headers  []string
	proxy    ProxySettings
	getStatistics bool
	skipContent   bool
	ignoreOffset  bool

	streamOut *stream.ChunkStream

	native     *transfer.Handle
	cancelFunc context.CancelFunc
	lastUsed   time.Time // for idle GC of non-resident native handles

	// self is the back-reference from sink trampolines to the owning
	// engine, captured at configuration time. It is never resurrected
	// across a torn-down engine: sinks check the engine's state before
	// dereferencing anything through it (spec.md §9, "Back-reference from
	// sinks to engine").
	self *Engine
}

// reset clears all per-request fields, called under HandlePool's mutex by
// both Acquire (before reuse) and Release (after completion).
func (h *handle) reset() {
	h.cancelled = false
	h.forcedLost = false
	h.retryCount = 0
	h.maxRetries = 0
	h.connectTimeout = 0
	h.transferTimeout = 0
	h.count = 0
	h.offset = 0
	h.rangeOut = false
	h.statusSoFar = 0
	h.etag = ""
	h.contentType = ""
	h.date = ""
	h.maxAge = 0
	h.expires = 0
	h.payload = nil
	h.body = nil
	h.callback = nil
	h.headerCallback = nil
	h.dataCallback = nil
	h.errorText = ""
	h.traceID = ""
	h.url = ""
	h.method = ""
	h.headers = nil
	h.proxy = ProxySettings{}
	h.getStatistics = false
	h.skipContent = false
	h.ignoreOffset = false
	h.streamOut = nil
	h.cancelFunc = nil
}

// httpHeader renders the handle's "Name: Value" header list into an
// http.Header, the engine's equivalent of spec.md §4.4's curl header
// linked list.
func (h *handle) httpHeader() http.Header {
	hdr := make(http.Header, len(h.headers))
	for _, line := range h.headers {
		name, value, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		hdr.Add(name, value)
	}
	return hdr
}

func splitHeaderLine(line string) (name, value string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] == ':' {
			name = line[:i]
			value = line[i+1:]
			for len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
			return name, value, true
		}
	}
	return "", "", false
}
