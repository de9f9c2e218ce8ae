package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/netengine/netengine/internal/engine/transfer"
)

// buildTransferRequest is the TransferAdapter of spec.md §4.4: it
// configures one transfer.Request from a handle's submitted fields. It
// never blocks and performs no I/O of its own.
func (e *Engine) buildTransferRequest(h *handle) (transfer.Request, error) {
	method := string(h.method)
	if method == "" {
		method = string(GET)
	}

	var bodyReader *bytes.Reader
	switch h.method {
	case GET, HEAD:
		bodyReader = bytes.NewReader(nil)
	default:
		// PUT/PATCH/DELETE/POST: always set a body reader, even when empty
		// — some servers require a Content-Length header even for a
		// zero-length body (spec.md §4.4).
		bodyReader = bytes.NewReader(h.body)
	}

	req, err := http.NewRequest(method, h.url, bodyReader)
	if err != nil {
		return transfer.Request{}, fmt.Errorf("build request: %w", err)
	}
	for k, v := range h.httpHeader() {
		req.Header[k] = v
	}

	ctx := context.Background()
	if h.proxy.Type != ProxyNone {
		proxyURL, perr := buildProxyURL(h.proxy)
		if perr != nil {
			return transfer.Request{}, perr
		}
		ctx = transfer.WithProxy(ctx, proxyURL)
	}
	req = req.WithContext(ctx)

	return transfer.Request{
		SlotIndex: h.index,
		HTTPReq:   req,
		Timeout:   h.connectTimeout + h.transferTimeout,
		OnHeaders: func(statusCode int, header http.Header) {
			e.onHeaders(h, statusCode, header)
		},
		OnChunk: func(p []byte) error {
			return e.onChunk(h, p)
		},
	}, nil
}

// buildProxyURL renders ProxySettings into a URL the transfer client's
// dialer can consult (spec.md §4.4, "Proxy").
func buildProxyURL(p ProxySettings) (*url.URL, error) {
	scheme := "http"
	switch p.Type {
	case ProxyHTTP:
		scheme = "http"
	case ProxySOCKS4:
		scheme = "socks4"
	case ProxySOCKS4A:
		scheme = "socks4a"
	case ProxySOCKS5:
		scheme = "socks5"
	case ProxySOCKS5Hostname:
		scheme = "socks5h"
	}
	u := &url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", p.Hostname, p.Port),
	}
	if p.Username != "" && p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u, nil
}

// onHeaders is the header parser of spec.md §4.4. net/http hands us the
// fully-parsed header map rather than raw lines; the per-line invariant
// ("header callback invoked once per Name: Value") is honored by iterating
// canonicalized keys, so the callback sees net/http's canonical key spelling
// (e.g. "Etag" for "ETag") rather than the raw line's spelling.
func (e *Engine) onHeaders(h *handle, statusCode int, header http.Header) {
	if h.cancelled || e.getState() != stateStarted {
		return
	}
	h.statusSoFar = statusCode
	for key, values := range header {
		for _, value := range values {
			if h.headerCallback != nil {
				h.headerCallback(key, value)
			}
			parseTrackedHeader(h, key, value)
		}
	}
}

// parseTrackedHeader recognizes the subset of response headers the engine
// itself tracks, per spec.md §4.4.
func parseTrackedHeader(h *handle, key, value string) {
	switch {
	case strings.EqualFold(key, "Date"):
		h.date = value
	case strings.EqualFold(key, "Cache-Control"):
		if idx := strings.Index(strings.ToLower(value), "max-age="); idx >= 0 {
			rest := value[idx+len("max-age="):]
			end := strings.IndexAny(rest, ", ")
			if end >= 0 {
				rest = rest[:end]
			}
			if n, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64); err == nil {
				h.maxAge = n
			}
		}
	case strings.EqualFold(key, "Expires"):
		switch value {
		case "0":
			h.expires = 0
		case "-1":
			h.expires = -1
		default:
			if t, err := http.ParseTime(value); err == nil {
				h.expires = t.Unix()
			}
		}
	case strings.EqualFold(key, "ETag"):
		h.etag = value
	case strings.EqualFold(key, "Content-Type"):
		h.contentType = value
	case strings.EqualFold(key, "Content-Range"):
		parseContentRange(h, value)
	}
}

// parseContentRange implements spec.md §4.4's Content-Range handling.
func parseContentRange(h *handle, value string) {
	const prefix = "bytes "
	if !strings.HasPrefix(value, prefix) {
		return
	}
	rangePart := strings.TrimPrefix(value, prefix)
	switch {
	case strings.HasPrefix(rangePart, "*/"):
		h.rangeOut = true
	case len(rangePart) > 0 && rangePart[0] >= '0' && rangePart[0] <= '9':
		end := strings.IndexByte(rangePart, '-')
		if end < 0 {
			end = len(rangePart)
		}
		if n, err := strconv.ParseInt(rangePart[:end], 10, 64); err == nil {
			h.offset = n
		}
	}
}

// onChunk is the payload writer of spec.md §4.4.
func (e *Engine) onChunk(h *handle, p []byte) error {
	if h.self == nil {
		return nil
	}

	// skip_content drops error bodies: status outside {0,200,201,206}.
	if h.skipContent {
		switch h.statusSoFar {
		case 0, http.StatusOK, http.StatusCreated, http.StatusPartialContent:
		default:
			return nil
		}
	}

	if e.getState() != stateStarted || h.rangeOut || h.cancelled {
		return nil
	}

	if h.dataCallback != nil {
		h.dataCallback(p, h.offset+h.count, len(p))
	}
	if h.streamOut != nil {
		h.streamOut.Push(p)
	}

	if h.payload != nil {
		if !h.ignoreOffset {
			if _, err := h.payload.Seek(h.count, io.SeekStart); err != nil {
				// Seek failed: clear error state and continue, per spec.md
				// §4.4 — a non-seekable sink degrades to append-only rather
				// than aborting the transfer.
			}
		}
		if _, err := h.payload.Write(p); err != nil {
			return err
		}
	}

	h.count += int64(len(p))
	return nil
}
