// Package engine implements the multiplexed, pool-based HTTP client core: a
// bounded pool of reusable transfer handles driven by a single worker
// goroutine that multiplexes every in-flight request, a producer/consumer
// event queue with an external wakeup, and a completion router that applies
// retry-vs-terminal policy, cache-control header parsing, and cooperative
// shutdown with pending-failure delivery.
package engine

import (
	"io"
	"time"
)

// RequestId uniquely identifies one submission until its terminal callback
// fires. It is monotonically increasing within [RequestIdMin, RequestIdMax]
// and wraps back to RequestIdMin on overflow.
type RequestId int64

const (
	// RequestIdMin is the first id ever handed out.
	RequestIdMin RequestId = 1
	// RequestIdMax is the last id before wraparound.
	RequestIdMax RequestId = 1<<31 - 1
)

// Verb is the HTTP method of a submission.
type Verb string

const (
	GET    Verb = "GET"
	HEAD   Verb = "HEAD"
	POST   Verb = "POST"
	PUT    Verb = "PUT"
	PATCH  Verb = "PATCH"
	DELETE Verb = "DELETE"
)

// ProxyType selects the proxy protocol for a request.
type ProxyType int

const (
	ProxyNone ProxyType = iota
	ProxyHTTP
	ProxySOCKS4
	ProxySOCKS4A
	ProxySOCKS5
	ProxySOCKS5Hostname
)

// ProxySettings configures an optional upstream proxy for a request.
type ProxySettings struct {
	Type     ProxyType
	Hostname string
	Port     int
	Username string
	Password string
}

// RequestSettings carries the per-request timeout, retry, and proxy policy.
type RequestSettings struct {
	ConnectTimeout  time.Duration
	TransferTimeout time.Duration
	MaxRetries      int
	Proxy           ProxySettings
}

// PayloadSink is the append/seek byte sink a submission's response body is
// written to.
type PayloadSink interface {
	io.Writer
	io.Seeker
}

// TerminalCallback is invoked exactly once per submission, when it reaches
// a final state: success, error, retries exhausted, cancelled, or offline.
type TerminalCallback func(resp NetworkResponse)

// HeaderCallback is invoked once per "Name: Value" response header line.
type HeaderCallback func(key, value string)

// DataCallback is invoked once per chunk of response body, in addition to
// (not instead of) any write to the PayloadSink.
type DataCallback func(data []byte, offset int64, length int)

// NetworkRequest is the inbound submission description.
type NetworkRequest struct {
	URL      string
	Method   Verb
	Body     []byte
	Headers  []string // "Name: Value" pairs
	Settings RequestSettings

	// TraceID is a domain addition for log correlation across retries; if
	// empty, Send stamps one. It plays no role in wire identity or any
	// invariant — RequestId remains the sole public identifier.
	TraceID string

	// GetStatistics, SkipContent, and IgnoreOffset mirror the handle-level
	// fields the reviewed implementation wires through but always leaves at
	// their zero value; kept here as ordinary per-request knobs since
	// nothing in this engine's scope needs to hide them from callers.
	GetStatistics bool
	SkipContent   bool
	IgnoreOffset  bool

	// Stream, if true, additionally exposes the response body as a
	// stream.ChunkStream (see internal/engine/stream) alongside the push
	// callbacks below.
	Stream bool
}

// NetworkResponse is the outbound terminal result delivered to callback.
type NetworkResponse struct {
	RequestID RequestId
	Status    int
	Error     string
}

// SendOutcome is returned synchronously from Send.
type SendOutcome struct {
	RequestID RequestId
	Err       ErrorKind
}

// OK reports whether the submission was accepted (not whether it will
// ultimately succeed — that is reported later via the terminal callback).
func (s SendOutcome) OK() bool {
	return s.Err == ErrSuccess
}
