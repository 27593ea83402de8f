// ABOUTME: Transport abstraction that opens the orchestrator's NDJSON stream for one session.
// ABOUTME: Defines the submission Request shape and in-memory transports used for replay and tests.
package transport

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Request is the body of a new run submission.
type Request struct {
	SessionID string         `json:"session_id"`
	Content   string         `json:"content"`
	Extra     map[string]any `json:"-"`
}

// Body flattens Extra alongside session_id and content. Extra keys never
// override the two required fields.
func (r Request) Body() map[string]any {
	body := make(map[string]any, len(r.Extra)+2)
	for k, v := range r.Extra {
		body[k] = v
	}
	body["session_id"] = r.SessionID
	body["content"] = r.Content
	return body
}

// Transport opens the event stream for a submission. The returned body is
// closed by the caller; cancelling ctx must stop delivery.
type Transport interface {
	Open(ctx context.Context, req Request) (io.ReadCloser, error)
}

// Func adapts a plain function to the Transport interface.
type Func func(ctx context.Context, req Request) (io.ReadCloser, error)

// Open calls f.
func (f Func) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	return f(ctx, req)
}

// Static replays a fixed NDJSON payload for every submission. It records the
// requests it receives.
type Static struct {
	Payload []byte

	mu       sync.Mutex
	requests []Request
}

// NewStatic returns a Static transport serving payload.
func NewStatic(payload []byte) *Static {
	return &Static{Payload: payload}
}

// Open returns a reader over the payload that stops at ctx cancellation.
func (s *Static) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return DecodeUTF8(NewContextReader(ctx, io.NopCloser(bytes.NewReader(s.Payload)))), nil
}

// Requests returns the submissions seen so far.
func (s *Static) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// contextReader fails reads once its context is done, so in-memory bodies
// honour cancellation the same way network bodies do.
type contextReader struct {
	ctx context.Context
	rc  io.ReadCloser
}

// NewContextReader wraps rc so Read returns ctx.Err() after cancellation.
func NewContextReader(ctx context.Context, rc io.ReadCloser) io.ReadCloser {
	return &contextReader{ctx: ctx, rc: rc}
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.rc.Read(p)
}

func (r *contextReader) Close() error {
	return r.rc.Close()
}
