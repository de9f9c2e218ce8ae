// Package stream offers a channel-based view of a handle's response bytes,
// as a companion to (never a replacement for) the push-style data callback
// described in spec.md §3/§4.4. Adapted from the teacher's sdk/stream
// package: the provider-specific SSE framing and JSON delta extraction
// there belong to the higher-level data-service layer spec.md §1 places out
// of scope, so only the plain chunked-byte stream survives here.
package stream

import (
	"context"
	"strings"
)

// Chunk is one piece of streamed response data.
type Chunk struct {
	Data []byte
	Err  error
}

// ChunkStream exposes a handle's incoming bytes as a channel in addition to
// whatever DataCallback the caller supplied. A handle that does not request
// streaming never allocates one.
type ChunkStream struct {
	chunks chan Chunk
	ctx    context.Context
	cancel context.CancelFunc
}

// NewChunkStream creates a stream bound to ctx; cancelling ctx (or calling
// Close) stops delivery.
func NewChunkStream(ctx context.Context) *ChunkStream {
	ctx, cancel := context.WithCancel(ctx)
	return &ChunkStream{
		chunks: make(chan Chunk, 16),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Chunks returns the channel chunks arrive on. It is closed by CloseChannel,
// which the engine calls when the owning handle reaches a terminal state;
// Close and Fail do not close it.
func (s *ChunkStream) Chunks() <-chan Chunk {
	return s.chunks
}

// Push delivers one chunk of body bytes, non-blocking against cancellation.
func (s *ChunkStream) Push(p []byte) {
	if len(p) == 0 {
		return
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case s.chunks <- Chunk{Data: buf}:
	case <-s.ctx.Done():
	}
}

// Fail delivers a terminal error chunk and then calls Close.
func (s *ChunkStream) Fail(err error) {
	select {
	case s.chunks <- Chunk{Err: err}:
	case <-s.ctx.Done():
	}
	s.Close()
}

// Close cancels the stream's context, so pending and later Push calls return
// without delivering. It leaves the channel open; see CloseChannel.
func (s *ChunkStream) Close() {
	s.cancel()
}

// CloseChannel closes the underlying channel; called exactly once by the
// engine after a handle's terminal completion is routed.
func (s *ChunkStream) CloseChannel() {
	close(s.chunks)
}

// Collect drains the stream into a single byte slice, for tests and simple
// callers that don't need incremental delivery.
func (s *ChunkStream) Collect() ([]byte, error) {
	var b strings.Builder
	var err error
	for c := range s.chunks {
		if c.Err != nil {
			err = c.Err
			continue
		}
		b.Write(c.Data)
	}
	return []byte(b.String()), err
}
