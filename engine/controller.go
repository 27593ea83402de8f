// ABOUTME: Controller owns one logical run at a time: submission, ingestion, cancellation, and the read API.
// ABOUTME: Events are applied in arrival order under a session-id guard so superseded streams never mutate state.
package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/2389-research/tickertape/poll"
	"github.com/2389-research/tickertape/stream"
	"github.com/2389-research/tickertape/transport"
)

// UnexpectedEndMessage is the synthetic error used when a stream closes
// without a complete or error event.
const UnexpectedEndMessage = "stream ended unexpectedly"

const defaultReadSize = 4096

// ErrNotRunning is returned by operations that need a running session.
var ErrNotRunning = errors.New("no running session")

// Option configures a Controller.
type Option func(*Controller)

// WithLogf sets the printf-style logger. Defaults to log.Printf.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(c *Controller) {
		if logf != nil {
			c.logf = logf
		}
	}
}

// WithObserver attaches ingestion instrumentation.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxLineBytes caps a single NDJSON line.
func WithMaxLineBytes(n int) Option {
	return func(c *Controller) { c.maxLine = n }
}

// WithReadSize sets the transport read buffer size.
func WithReadSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.readSize = n
		}
	}
}

// WithRequestExtra adds fields to every submission body.
func WithRequestExtra(extra map[string]any) Option {
	return func(c *Controller) { c.extra = extra }
}

// run pairs a session's state bundle with the resources of its ingestion task.
type run struct {
	state  *runState
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller is the only component that starts runs. All other state changes
// happen in response to events belonging to the current run.
type Controller struct {
	transport transport.Transport
	logf      func(format string, args ...any)
	observer  Observer
	now       func() time.Time
	maxLine   int
	readSize  int
	extra     map[string]any

	mu  sync.Mutex
	cur *run

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewController returns an idle controller that opens streams through t.
func NewController(t transport.Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: t,
		logf:      log.Printf,
		observer:  nopObserver{},
		now:       time.Now,
		readSize:  defaultReadSize,
		subs:      make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit starts a new run for content. Any current run is superseded: its
// transport is cancelled and its remaining events are dropped. Derived state
// is reset synchronously, before the transport is opened, so observers never
// see the previous run's path after Submit returns.
func (c *Controller) Submit(ctx context.Context, content string) Session {
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		state: &runState{
			session: Session{ID: NewSessionID(), Status: StatusIdle},
			prompt:  content,
		},
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// subMu is held across the swap so subscribers see the superseded run's
	// final snapshot before anything from the new run.
	c.subMu.Lock()
	c.mu.Lock()
	prev := c.cur
	r.state.session.StartedAt = c.now()
	_ = r.state.session.transition(StatusRunning)
	c.cur = r
	var snaps []Snapshot
	superseded := prev != nil && prev.state.session.Status == StatusRunning &&
		prev.state.finish(StatusCancelled, c.now()) == nil
	if superseded && len(c.subs) > 0 {
		snaps = append(snaps, prev.state.snapshot())
	}
	if len(c.subs) > 0 {
		snaps = append(snaps, r.state.snapshot())
	}
	session := r.state.session
	c.mu.Unlock()

	if prev != nil {
		prev.cancel()
		if superseded {
			c.observer.SessionFinished(StatusCancelled, prev.state.finalLatency)
			c.logf("session superseded session=%s by=%s", prev.state.session.ID, session.ID)
		}
	}
	c.logf("session started session=%s", session.ID)
	c.publish(snaps...)
	c.subMu.Unlock()

	go c.ingest(r, transport.Request{SessionID: session.ID, Content: content, Extra: c.extra})
	return session
}

// Abort cancels the current run. It reports whether a running session was
// cancelled; cancellation is not an error and no errored transition follows.
func (c *Controller) Abort() bool {
	c.mu.Lock()
	r := c.cur
	if r == nil || r.state.session.Status != StatusRunning {
		c.mu.Unlock()
		return false
	}
	_ = r.state.finish(StatusCancelled, c.now())
	id, latency := r.state.session.ID, r.state.finalLatency
	c.mu.Unlock()

	r.cancel()
	c.observer.SessionFinished(StatusCancelled, latency)
	c.logf("session cancelled session=%s elapsed=%s", id, latency.Round(time.Millisecond))
	c.notify()
	return true
}

// Wait blocks until the current run's ingestion task has exited, or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	r := c.cur
	c.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a deep copy of the current run's state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return idleSnapshot()
	}
	return c.cur.state.snapshot()
}

// Path returns the ordered execution path.
func (c *Controller) Path() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil
	}
	return c.cur.state.path.Nodes()
}

// Topology returns the latest graph, or nil.
func (c *Controller) Topology() *stream.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil
	}
	return c.cur.state.topology.Current()
}

// Metrics returns per-node metrics.
func (c *Controller) Metrics() map[string]MetricsRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return map[string]MetricsRecord{}
	}
	return c.cur.state.metrics.All()
}

// Status returns the current session status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return StatusIdle
	}
	return c.cur.state.session.Status
}

// TraceLog returns the current run's audit entries in arrival order.
func (c *Controller) TraceLog() []TraceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil
	}
	return c.cur.state.trace.Entries()
}

// Subscribe registers fn to receive a snapshot after every state change, in
// mutation order. fn runs on the mutating goroutine: it must not block for
// long and must not call back into the Controller. The returned function
// unsubscribes.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// notify delivers the latest snapshot to subscribers. Holding subMu while
// taking the snapshot keeps deliveries monotonic across goroutines.
func (c *Controller) notify() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if len(c.subs) == 0 {
		return
	}
	c.publish(c.Snapshot())
}

// publish delivers snaps in order to every subscriber. Callers hold subMu.
func (c *Controller) publish(snaps ...Snapshot) {
	for _, snap := range snaps {
		for _, fn := range c.subs {
			fn(snap)
		}
	}
}

// Poll runs fn under p for the current session. The poll is cancelled when
// the session is aborted, superseded, or finishes; events passed to emit go
// through the same guard as stream events. The channel receives the poll's
// result and is then closed.
func (c *Controller) Poll(p poll.Policy, fn func(ctx context.Context, attempt int, emit func(stream.Event)) (bool, error)) <-chan error {
	out := make(chan error, 1)

	c.mu.Lock()
	r := c.cur
	running := r != nil && r.state.session.Status == StatusRunning
	c.mu.Unlock()
	if !running {
		out <- ErrNotRunning
		close(out)
		return out
	}

	emit := func(evt stream.Event) { c.dispatch(r, evt) }
	go func() {
		defer close(out)
		out <- poll.Until(r.ctx, p, func(ctx context.Context, attempt int) (bool, error) {
			return fn(ctx, attempt, emit)
		})
	}()
	return out
}

// ingest reads the transport body for r, framing and dispatching lines in
// order until the stream ends, fails, or r stops being current and running.
func (c *Controller) ingest(r *run, req transport.Request) {
	defer close(r.done)
	defer r.cancel()

	body, err := c.transport.Open(r.ctx, req)
	if err != nil {
		c.endStream(r, err)
		return
	}
	defer body.Close()

	framer := stream.NewFramer(c.maxLine)
	buf := make([]byte, c.readSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if !c.handleFrames(r, framer.Feed(buf[:n])) {
				return
			}
		}
		if errors.Is(readErr, io.EOF) {
			if c.handleFrames(r, framer.Flush()) {
				c.endStream(r, nil)
			}
			return
		}
		if readErr != nil {
			c.endStream(r, readErr)
			return
		}
	}
}

// handleFrames decodes and dispatches frames in order. It returns false once
// the run no longer accepts events.
func (c *Controller) handleFrames(r *run, frames []stream.Frame) bool {
	if len(frames) > 0 {
		c.observer.LinesFramed(len(frames))
	}
	for _, f := range frames {
		if f.Err != nil {
			if !c.recordDecodeFailure(r, "", f.Err) {
				return false
			}
			continue
		}

		evt, err := stream.Decode(f.Text)
		if errors.Is(err, stream.ErrEmptyLine) {
			continue
		}
		var pe *stream.ProtocolError
		switch {
		case errors.As(err, &pe):
			if !c.dispatchViolation(r, pe) {
				return false
			}
		case err != nil:
			if !c.recordDecodeFailure(r, f.Text, err) {
				return false
			}
		default:
			if !c.dispatch(r, evt) {
				return false
			}
		}
	}
	return true
}

// accepting reports whether r is the current run and still running. Callers
// hold c.mu.
func (c *Controller) accepting(r *run) bool {
	return c.cur != nil && c.cur.state.session.ID == r.state.session.ID &&
		r.state.session.Status == StatusRunning
}

// dispatch applies one event to r if r is still current. It returns whether
// r keeps accepting events.
func (c *Controller) dispatch(r *run, evt stream.Event) bool {
	c.mu.Lock()
	if !c.accepting(r) {
		r.state.dropped++
		c.mu.Unlock()
		c.observer.EventDropped(evt.Type())
		return false
	}
	now := c.now()
	terminal := r.state.apply(evt, now)
	if terminal != "" {
		_ = r.state.finish(terminal, now)
	}
	id, latency, errMsg := r.state.session.ID, r.state.finalLatency, r.state.errMsg
	c.mu.Unlock()

	c.observer.EventApplied(evt.Type())
	if terminal != "" {
		r.cancel()
	}
	switch terminal {
	case StatusCompleted:
		c.observer.SessionFinished(terminal, latency)
		c.logf("session completed session=%s latency=%s", id, latency.Round(time.Millisecond))
	case StatusErrored:
		c.observer.SessionFinished(terminal, latency)
		c.logf("session errored session=%s error=%q", id, errMsg)
	}
	c.notify()
	return terminal == ""
}

func (c *Controller) dispatchViolation(r *run, pe *stream.ProtocolError) bool {
	c.mu.Lock()
	if !c.accepting(r) {
		c.mu.Unlock()
		c.observer.EventDropped(pe.Type)
		return false
	}
	r.state.applyViolation(pe, c.now())
	id := r.state.session.ID
	c.mu.Unlock()

	c.observer.ProtocolViolation(pe.Type)
	c.logf("stream protocol_violation session=%s type=%s field=%s", id, pe.Type, pe.Field)
	c.notify()
	return true
}

func (c *Controller) recordDecodeFailure(r *run, line string, err error) bool {
	c.mu.Lock()
	if !c.accepting(r) {
		c.mu.Unlock()
		return false
	}
	r.state.addDiagnostic(c.now(), line, err)
	id := r.state.session.ID
	c.mu.Unlock()

	c.observer.DecodeFailed(err)
	c.logf("stream decode_error session=%s err=%v", id, err)
	c.notify()
	return true
}

// endStream handles transport closure. A run still running at this point
// never saw a terminal event, so it is force-moved to errored; a cancelled or
// superseded run is left alone.
func (c *Controller) endStream(r *run, cause error) {
	c.mu.Lock()
	if !c.accepting(r) {
		c.mu.Unlock()
		return
	}
	msg := UnexpectedEndMessage
	if cause != nil {
		msg += ": " + cause.Error()
	}
	now := c.now()
	r.state.errMsg = msg
	r.state.log(now, LevelError, "transport", "", msg, nil)
	_ = r.state.finish(StatusErrored, now)
	id, latency := r.state.session.ID, r.state.finalLatency
	c.mu.Unlock()

	c.observer.SessionFinished(StatusErrored, latency)
	c.logf("session errored session=%s error=%q", id, msg)
	c.notify()
}
