// Package syncclient provides a blocking, hook-instrumented convenience
// facade over engine.Engine for callers that want a single synchronous call
// rather than the engine's native terminal-callback interface. It adapts the
// teacher's hook-based Do() entry point to the engine's async Send, dropping
// the per-call exponential backoff loop and provider-specific rate-limit
// header parsing it used to carry — the engine already owns retry policy,
// and this facade is provider-agnostic (see DESIGN.md).
package syncclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/netengine/netengine/internal/engine"
)

// BeforeSendHook is called once, synchronously, before a request is handed
// to the engine. Returning an error aborts the call before Send is invoked.
type BeforeSendHook func(req *engine.NetworkRequest) error

// AfterCompleteHook is called once the engine reports a terminal result,
// whether successful or not.
type AfterCompleteHook func(req *engine.NetworkRequest, resp engine.NetworkResponse)

// Config configures a Client.
type Config struct {
	BeforeSend   BeforeSendHook
	AfterComplete AfterCompleteHook
	Logger       *log.Logger
}

// Client wraps an *engine.Engine with a blocking Do method.
type Client struct {
	eng *engine.Engine
	cfg Config
}

// NewClient builds a syncclient bound to an already-constructed engine. The
// engine's own lifecycle (Initialize/Deinitialize) is the caller's
// responsibility; Client never calls Deinitialize.
func NewClient(eng *engine.Engine, cfg Config) *Client {
	return &Client{eng: eng, cfg: cfg}
}

// Result is the outcome of one blocking Do call.
type Result struct {
	Response engine.NetworkResponse
	Body     []byte
}

// Do submits req to the engine and blocks until its terminal callback fires
// or ctx is cancelled. On ctx cancellation, the underlying request is
// cancelled via engine.Engine.Cancel and ctx.Err() is returned.
func (c *Client) Do(ctx context.Context, req engine.NetworkRequest) (Result, error) {
	if c.cfg.BeforeSend != nil {
		if err := c.cfg.BeforeSend(&req); err != nil {
			return Result{}, err
		}
	}

	var body bytes.Buffer
	done := make(chan engine.NetworkResponse, 1)

	outcome := c.eng.Send(req, &nopSeekWriter{&body}, func(resp engine.NetworkResponse) {
		done <- resp
	}, nil, nil)
	if !outcome.OK() {
		return Result{}, fmt.Errorf("send rejected: %s", outcome.Err)
	}

	if c.cfg.Logger != nil {
		c.cfg.Logger.Printf("[syncclient] sent request %d: %s %s", outcome.RequestID, req.Method, req.URL)
	}

	select {
	case resp := <-done:
		if c.cfg.AfterComplete != nil {
			c.cfg.AfterComplete(&req, resp)
		}
		if c.cfg.Logger != nil {
			c.cfg.Logger.Printf("[syncclient] request %d completed: status=%d error=%q", resp.RequestID, resp.Status, resp.Error)
		}
		return Result{Response: resp, Body: body.Bytes()}, nil
	case <-ctx.Done():
		c.eng.Cancel(outcome.RequestID)
		return Result{}, ctx.Err()
	}
}

// nopSeekWriter adapts a *bytes.Buffer, which has no Seek method, to
// engine.PayloadSink. The engine seeks to the number of bytes written so far
// before every write, which is the buffer's end, so that seek leaves the
// buffer as it is. When the engine retries a request it seeks back to 0;
// seeking to an offset before the end truncates the buffer there, so the
// retried attempt's body replaces the earlier attempt's bytes.
type nopSeekWriter struct {
	buf *bytes.Buffer
}

func (w *nopSeekWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *nopSeekWriter) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart && offset >= 0 && offset < int64(w.buf.Len()) {
		w.buf.Truncate(int(offset))
	}
	return offset, nil
}
