// Package transfer implements the socket-level transfer substrate the
// engine drives. It plays the role of the embedded multi-transfer HTTP
// client library in the core's external-interface contract: a narrow
// capability set for attaching a request, performing I/O, and reporting
// exactly one completion per attached request. Any concrete implementation
// satisfying that capability set is acceptable; this one is backed by
// net/http.
package transfer

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

type proxyContextKey struct{}

// WithProxy attaches a proxy URL to req's context; the Client's transports
// consult it via Transport.Proxy. net/http's Transport dials HTTP and SOCKS5
// ("socks5", "socks5h") proxies itself; it has no SOCKS4 support, so
// "socks4" and "socks4a" proxy URLs are passed through unchanged but are not
// dialed as SOCKS4.
func WithProxy(ctx context.Context, proxyURL *url.URL) context.Context {
	if proxyURL == nil {
		return ctx
	}
	return context.WithValue(ctx, proxyContextKey{}, proxyURL)
}

func proxyFromRequest(req *http.Request) (*url.URL, error) {
	if v, ok := req.Context().Value(proxyContextKey{}).(*url.URL); ok {
		return v, nil
	}
	return nil, nil
}

// Result is the outcome of one attached transfer.
type Result struct {
	StatusCode int
	TotalTime  time.Duration
	Err        error
}

// Completion pairs a Result with the pool slot that produced it.
type Completion struct {
	SlotIndex int
	Result    Result
}

// Request describes one transfer to attach, built by the engine's
// TransferAdapter from a NetworkRequest. OnHeaders and OnChunk stand in for
// libcurl's header and write callbacks: OnHeaders fires once, after the
// response line and headers are available; OnChunk fires once per body
// chunk as it is read off the wire.
type Request struct {
	SlotIndex int
	HTTPReq   *http.Request
	Timeout   time.Duration
	OnHeaders func(statusCode int, header http.Header)
	OnChunk   func(p []byte) error
}

// Handle is the per-slot native transfer object. Each pool slot owns a
// dedicated client/transport pair so idle-eviction (HandlePool's
// kHandleReuseTimeout GC) has something concrete to reclaim, mirroring
// libcurl's per-easy-handle object living inside a shared multi-handle
// connection cache.
type Handle struct {
	client *http.Client
}

// Client is the engine's multi-transfer client: the single object the
// WorkerLoop owns and drives. Rather than a raw multi_perform/multi_fdset/
// select loop, each attached Request runs on its own goroutine and its
// outcome is funneled onto a shared completion channel that the
// single-goroutine WorkerLoop selects on — the idiomatic Go replacement for
// socket-level multiplexing (see DESIGN.md, "Open Questions" #1). All
// engine-state mutation and completion routing still happens on exactly one
// goroutine; only the blocking syscalls are parallelized, the same way the
// Go runtime always parallelizes blocking I/O beneath any single-goroutine
// caller.
type Client struct {
	completions        chan Completion
	insecureSkipVerify bool
	rootCAs            *tls.Config
	timeFn             func() time.Time

	mu      sync.Mutex
	pending map[int]context.CancelFunc
}

// NewClient creates the shared multi-transfer client. timeFn, if non-nil,
// overrides the clock TLS certificate validity is checked against — the
// engine's injected time provider (spec.md §4.4, TLS "certificate-time
// override").
func NewClient(insecureSkipVerify bool, tlsConfig *tls.Config, timeFn func() time.Time) *Client {
	return &Client{
		completions:        make(chan Completion, 64),
		insecureSkipVerify: insecureSkipVerify,
		rootCAs:            tlsConfig,
		timeFn:             timeFn,
		pending:            make(map[int]context.CancelFunc),
	}
}

// NewHandle lazily constructs a native transfer object for a pool slot.
func (c *Client) NewHandle() *Handle {
	tlsCfg := &tls.Config{InsecureSkipVerify: c.insecureSkipVerify}
	if c.rootCAs != nil && c.rootCAs.RootCAs != nil {
		tlsCfg.RootCAs = c.rootCAs.RootCAs
	}
	if !c.insecureSkipVerify && c.timeFn != nil {
		tlsCfg.Time = c.timeFn
	}
	return &Handle{
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig:     tlsCfg,
				Proxy:               proxyFromRequest,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     120 * time.Second,
				DisableCompression:  false,
			},
			// Redirects follow automatically: http.Client's default
			// CheckRedirect policy (stop after 10 hops).
		},
	}
}

// SetConnectionCap caps one native handle's per-host connection pool at n,
// mirroring CURLMOPT_MAXCONNECTS: the multi-transfer client's connection
// ceiling tracks the count of currently-live native handles (spec.md §4.1).
// Each handle owns a dedicated Transport rather than a single shared
// connection pool, so the cap is applied per handle instead of as one
// process-wide value.
func (c *Client) SetConnectionCap(h *Handle, n int) {
	if h == nil || n < 1 {
		return
	}
	if t, ok := h.client.Transport.(*http.Transport); ok {
		t.MaxConnsPerHost = n
		t.MaxIdleConnsPerHost = n
	}
}

// Destroy releases a native handle's pooled connections.
func (c *Client) Destroy(h *Handle) {
	if h == nil {
		return
	}
	if t, ok := h.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

// Attach starts the transfer on its own goroutine and returns immediately.
// Exactly one Completion is posted to Completions() for this SlotIndex,
// whether the transfer succeeds, fails, or is cancelled via Detach.
func (c *Client) Attach(h *Handle, req Request) {
	ctx, cancel := context.WithTimeout(req.HTTPReq.Context(), req.Timeout)

	c.mu.Lock()
	c.pending[req.SlotIndex] = cancel
	c.mu.Unlock()

	httpReq := req.HTTPReq.WithContext(ctx)

	go func() {
		start := time.Now()
		resp, err := h.client.Do(httpReq)

		var result Result
		if err != nil {
			result.Err = err
		} else {
			result.StatusCode = resp.StatusCode
			if req.OnHeaders != nil {
				req.OnHeaders(resp.StatusCode, resp.Header)
			}
			if req.OnChunk != nil {
				err = drainBody(resp.Body, req.OnChunk)
			}
			resp.Body.Close()
			result.Err = err
		}
		result.TotalTime = time.Since(start)

		c.mu.Lock()
		delete(c.pending, req.SlotIndex)
		c.mu.Unlock()
		cancel()

		c.completions <- Completion{SlotIndex: req.SlotIndex, Result: result}
	}()
}

// drainBody streams the response body through onChunk, 32KiB at a time.
func drainBody(body io.Reader, onChunk func([]byte) error) error {
	buf := make([]byte, 32*1024)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if werr := onChunk(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return rerr
		}
	}
}

// Detach cancels an in-flight transfer, used for CANCEL events, the
// lost-handle sweep, and teardown. A no-op if the slot is not currently
// attached. Detaching never skips the eventual Completion send — it only
// cancels the context the in-flight goroutine is blocked on, so exactly one
// Completion still arrives for the slot.
func (c *Client) Detach(slotIndex int) {
	c.mu.Lock()
	cancel, ok := c.pending[slotIndex]
	if ok {
		delete(c.pending, slotIndex)
	}
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

// IsPending reports whether a slot currently has an in-flight transfer.
func (c *Client) IsPending(slotIndex int) bool {
	c.mu.Lock()
	_, ok := c.pending[slotIndex]
	c.mu.Unlock()
	return ok
}

// Completions exposes the shared completion channel for WorkerLoop's select.
func (c *Client) Completions() <-chan Completion {
	return c.completions
}
