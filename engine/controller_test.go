// ABOUTME: Tests for the Controller: ingestion ordering, lifecycle transitions, session guarding, and polling.
// ABOUTME: Uses in-memory transports and io.Pipe to control exactly when bytes reach the ingestion task.
package engine

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/2389-research/tickertape/poll"
	"github.com/2389-research/tickertape/stream"
	"github.com/2389-research/tickertape/transport"
)

func quietLogf(string, ...any) {}

func ndjson(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func runStatic(t *testing.T, payload []byte, opts ...Option) (*Controller, Snapshot) {
	t.Helper()
	opts = append([]Option{WithLogf(quietLogf)}, opts...)
	c := NewController(transport.NewStatic(payload), opts...)
	c.Submit(context.Background(), "question")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return c, c.Snapshot()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// pipeTransport hands out one io.Pipe per Open so a test can feed bytes by hand.
type pipeTransport struct {
	mu      sync.Mutex
	writers []*io.PipeWriter
}

func (p *pipeTransport) Open(ctx context.Context, req transport.Request) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	p.mu.Lock()
	p.writers = append(p.writers, pw)
	p.mu.Unlock()
	return pr, nil
}

func (p *pipeTransport) writer(t *testing.T, i int) *io.PipeWriter {
	t.Helper()
	var w *io.PipeWriter
	waitFor(t, "transport open", func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		if len(p.writers) > i {
			w = p.writers[i]
			return true
		}
		return false
	})
	return w
}

type countingObserver struct {
	mu         sync.Mutex
	framed     int
	decodeErrs int
	violations int
	applied    int
	dropped    chan stream.EventType
	finished   []Status
}

func newCountingObserver() *countingObserver {
	return &countingObserver{dropped: make(chan stream.EventType, 16)}
}

func (o *countingObserver) LinesFramed(n int) {
	o.mu.Lock()
	o.framed += n
	o.mu.Unlock()
}
func (o *countingObserver) DecodeFailed(error) {
	o.mu.Lock()
	o.decodeErrs++
	o.mu.Unlock()
}
func (o *countingObserver) ProtocolViolation(stream.EventType) {
	o.mu.Lock()
	o.violations++
	o.mu.Unlock()
}
func (o *countingObserver) EventApplied(stream.EventType) {
	o.mu.Lock()
	o.applied++
	o.mu.Unlock()
}
func (o *countingObserver) EventDropped(t stream.EventType) {
	select {
	case o.dropped <- t:
	default:
	}
}
func (o *countingObserver) SessionFinished(s Status, _ time.Duration) {
	o.mu.Lock()
	o.finished = append(o.finished, s)
	o.mu.Unlock()
}

func TestControllerIdleBeforeSubmit(t *testing.T) {
	c := NewController(transport.NewStatic(nil), WithLogf(quietLogf))
	if c.Status() != StatusIdle {
		t.Fatalf("status = %s, want idle", c.Status())
	}
	if c.Topology() != nil || len(c.Path()) != 0 || len(c.TraceLog()) != 0 {
		t.Fatal("idle controller exposes state")
	}
	if c.Abort() {
		t.Error("Abort on idle controller reported true")
	}
	if err := c.Wait(context.Background()); err != nil {
		t.Errorf("Wait on idle controller: %v", err)
	}
}

func TestControllerCompletedRun(t *testing.T) {
	payload := ndjson(
		`{"type":"status","message":"planning"}`,
		`{"type":"topology","data":{"nodes":[{"id":"a"},{"id":"b"}],"edges":[{"source":"a","target":"b"}]}}`,
		`{"type":"tool_call","tool":"a","args":{"q":"go"}}`,
		`{"type":"tool_result","tool":"a","result":{"ok":true},"duration":120}`,
		`{"type":"complete","data":{"answer":"done"}}`,
	)
	c, snap := runStatic(t, payload)

	if snap.Session.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", snap.Session.Status)
	}
	if snap.Message != "planning" || snap.Answer != "done" {
		t.Errorf("message=%q answer=%q", snap.Message, snap.Answer)
	}
	if snap.Topology == nil || len(snap.Topology.Nodes) != 2 {
		t.Fatalf("topology = %+v", snap.Topology)
	}
	if d := snap.Metrics["a"].Duration; d == nil || *d != 120 {
		t.Errorf("duration = %v, want 120", d)
	}
	if snap.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
	if got := len(c.TraceLog()); got != 5 {
		t.Errorf("trace entries = %d, want 5", got)
	}
}

func TestControllerPathCollapse(t *testing.T) {
	var lines []string
	for _, id := range []string{"a", "a", "b", "b", "b", "c", "a"} {
		lines = append(lines, `{"type":"tool_call","tool":"`+id+`","args":{}}`)
	}
	lines = append(lines, `{"type":"complete","data":{}}`)
	c, _ := runStatic(t, ndjson(lines...))

	if got, want := c.Path(), []string{"a", "b", "c", "a"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("path = %v, want %v", got, want)
	}
}

func TestControllerMetricsMerge(t *testing.T) {
	payload := ndjson(
		`{"type":"latency","tool":"x","duration":1}`,
		`{"type":"latency","tool":"x","duration":2}`,
		`{"type":"trace","data":{"type":"metrics","tool":"x","metrics":{"total_tokens":10,"prompt_tokens":4}}}`,
		`{"type":"trace","data":{"type":"metrics","tool":"x","metrics":{"total_tokens":15}}}`,
		`{"type":"complete","data":null}`,
		`{"type":"complete","data":{}}`,
	)
	c, _ := runStatic(t, payload)
	rec := c.Metrics()["x"]

	if !reflect.DeepEqual(rec.Latencies, []float64{1, 2}) {
		t.Errorf("latencies = %v, want [1 2]", rec.Latencies)
	}
	if rec.TotalTokens == nil || *rec.TotalTokens != 15 {
		t.Errorf("total_tokens = %v, want 15", rec.TotalTokens)
	}
	if rec.PromptTokens == nil || *rec.PromptTokens != 4 {
		t.Errorf("prompt_tokens = %v, want 4", rec.PromptTokens)
	}
}

func TestControllerTraceMetricsWithoutToolAreRunLevel(t *testing.T) {
	payload := ndjson(
		`{"type":"trace","data":{"type":"usage","metrics":{"total_tokens":10}}}`,
		`{"type":"trace","data":{"type":"usage","metrics":{"total_tokens":15},"duration":900}}`,
		`{"type":"complete","data":{}}`,
	)
	c, _ := runStatic(t, payload)
	metrics := c.Metrics()
	if len(metrics) != 1 {
		t.Fatalf("metrics = %+v, want only the run-level record", metrics)
	}
	rec, ok := metrics[RunMetricsKey]
	if !ok {
		t.Fatalf("no %q record in %+v", RunMetricsKey, metrics)
	}
	if rec.TotalTokens == nil || *rec.TotalTokens != 15 {
		t.Errorf("total_tokens = %v, want 15", rec.TotalTokens)
	}
	if rec.Duration == nil || *rec.Duration != 900 {
		t.Errorf("duration = %v, want 900", rec.Duration)
	}
}

func TestControllerMalformedLineIsSkipped(t *testing.T) {
	obs := newCountingObserver()
	payload := ndjson(
		`{"type":"status","message":"hello"}`,
		`{not json`,
		``,
		`{"type":"complete","data":{}}`,
	)
	c, snap := runStatic(t, payload, WithObserver(obs))

	if snap.Session.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", snap.Session.Status)
	}
	statusEntries := 0
	for _, e := range c.TraceLog() {
		if e.Type == string(stream.TypeStatus) {
			statusEntries++
		}
	}
	if statusEntries != 1 {
		t.Errorf("status entries = %d, want 1", statusEntries)
	}
	if len(snap.Diagnostics) != 1 {
		t.Errorf("diagnostics = %+v, want one", snap.Diagnostics)
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.decodeErrs != 1 {
		t.Errorf("decode failures = %d, want 1", obs.decodeErrs)
	}
}

func TestControllerDecodeFailureNotifiesSubscribers(t *testing.T) {
	pt := &pipeTransport{}
	c := NewController(pt, WithLogf(quietLogf))
	var mu sync.Mutex
	var lastDiagnostics int
	defer c.Subscribe(func(s Snapshot) {
		mu.Lock()
		lastDiagnostics = len(s.Diagnostics)
		mu.Unlock()
	})()
	c.Submit(context.Background(), "q")

	w := pt.writer(t, 0)
	defer w.Close()
	if _, err := io.WriteString(w, "{not json\n"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "subscriber to see the diagnostic", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return lastDiagnostics == 1
	})
}

func TestControllerProtocolViolationOnlyLogs(t *testing.T) {
	payload := ndjson(
		`{"type":"tool_call"}`,
		`{"type":"latency","tool":"x"}`,
		`{"type":"complete","data":{}}`,
	)
	c, snap := runStatic(t, payload)

	if len(snap.Path) != 0 || len(snap.Metrics) != 0 {
		t.Fatalf("violation mutated state: path=%v metrics=%v", snap.Path, snap.Metrics)
	}
	warns := 0
	for _, e := range c.TraceLog() {
		if e.Level == LevelWarn {
			warns++
		}
	}
	if warns != 2 {
		t.Errorf("warn entries = %d, want 2", warns)
	}
}

func TestControllerToolEventWithoutPayloadIsViolation(t *testing.T) {
	payload := ndjson(
		`{"type":"tool_call","tool":"a"}`,
		`{"type":"tool_result","tool":"a"}`,
		`{"type":"complete","data":{}}`,
	)
	c, snap := runStatic(t, payload)

	if len(snap.Path) != 0 {
		t.Fatalf("path = %v, want empty", snap.Path)
	}
	var warns []TraceEntry
	for _, e := range c.TraceLog() {
		if e.Level == LevelWarn {
			warns = append(warns, e)
		}
	}
	if len(warns) != 2 {
		t.Fatalf("warn entries = %+v, want 2", warns)
	}
	if !strings.Contains(warns[0].Message, "args") || !strings.Contains(warns[1].Message, "result") {
		t.Errorf("warn messages = %q, %q", warns[0].Message, warns[1].Message)
	}
}

func TestControllerUnknownEventIsDebugEntry(t *testing.T) {
	c, snap := runStatic(t, ndjson(`{"type":"mystery","x":1}`, `{"type":"complete","data":{}}`))
	entries := c.TraceLog()
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Type != "mystery" || entries[0].Level != LevelDebug {
		t.Errorf("unknown entry = %+v", entries[0])
	}
	if snap.Session.Status != StatusCompleted {
		t.Errorf("status = %s", snap.Session.Status)
	}
}

func TestControllerErrorEventIsTerminal(t *testing.T) {
	payload := ndjson(
		`{"type":"error","message":"backend exploded"}`,
		`{"type":"tool_call","tool":"late","args":{}}`,
	)
	_, snap := runStatic(t, payload)
	if snap.Session.Status != StatusErrored || snap.Error != "backend exploded" {
		t.Fatalf("status=%s error=%q", snap.Session.Status, snap.Error)
	}
	if len(snap.Path) != 0 {
		t.Errorf("event after terminal applied: %v", snap.Path)
	}
}

func TestControllerMissingTerminalEventErrors(t *testing.T) {
	_, snap := runStatic(t, ndjson(`{"type":"tool_call","tool":"a","args":{}}`))
	if snap.Session.Status != StatusErrored {
		t.Fatalf("status = %s, want errored", snap.Session.Status)
	}
	if snap.Error != UnexpectedEndMessage {
		t.Errorf("error = %q, want %q", snap.Error, UnexpectedEndMessage)
	}
}

func TestControllerTrailingLineWithoutNewline(t *testing.T) {
	_, snap := runStatic(t, []byte(`{"type":"complete","data":{"answer":"tail"}}`))
	if snap.Session.Status != StatusCompleted || snap.Answer != "tail" {
		t.Fatalf("status=%s answer=%q", snap.Session.Status, snap.Answer)
	}
}

func TestControllerSmallReadsMatchLargeReads(t *testing.T) {
	payload := ndjson(
		`{"type":"status","message":"naïve café €"}`,
		`{"type":"tool_call","tool":"a","args":{}}`,
		`{"type":"complete","data":{}}`,
	)
	_, big := runStatic(t, payload)
	_, small := runStatic(t, payload, WithReadSize(1))
	if big.Message != small.Message || !reflect.DeepEqual(big.Path, small.Path) {
		t.Fatalf("chunking changed result: %+v vs %+v", big, small)
	}
	if small.Message != "naïve café €" {
		t.Errorf("message = %q", small.Message)
	}
}

func TestControllerTransportOpenError(t *testing.T) {
	boom := errors.New("connection refused")
	c := NewController(transport.Func(func(context.Context, transport.Request) (io.ReadCloser, error) {
		return nil, boom
	}), WithLogf(quietLogf))
	c.Submit(context.Background(), "q")
	if err := c.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	if snap.Session.Status != StatusErrored {
		t.Fatalf("status = %s, want errored", snap.Session.Status)
	}
	if !strings.HasPrefix(snap.Error, UnexpectedEndMessage) || !strings.Contains(snap.Error, "connection refused") {
		t.Errorf("error = %q", snap.Error)
	}
}

func TestControllerSubmitSendsSessionID(t *testing.T) {
	st := transport.NewStatic(ndjson(`{"type":"complete","data":{}}`))
	c := NewController(st, WithLogf(quietLogf), WithRequestExtra(map[string]any{"mode": "deep"}))
	session := c.Submit(context.Background(), "what is go?")
	_ = c.Wait(context.Background())

	reqs := st.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d", len(reqs))
	}
	if reqs[0].SessionID != session.ID || reqs[0].Content != "what is go?" {
		t.Errorf("request = %+v, session = %s", reqs[0], session.ID)
	}
	if reqs[0].Extra["mode"] != "deep" {
		t.Errorf("extra = %v", reqs[0].Extra)
	}
}

func TestControllerAbortCancels(t *testing.T) {
	pt := &pipeTransport{}
	obs := newCountingObserver()
	c := NewController(pt, WithLogf(quietLogf), WithObserver(obs))
	c.Submit(context.Background(), "q")

	w := pt.writer(t, 0)
	if _, err := io.WriteString(w, `{"type":"tool_call","tool":"a","args":{}}`+"\n"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "tool call applied", func() bool { return len(c.Path()) == 1 })

	if !c.Abort() {
		t.Fatal("Abort returned false for a running session")
	}
	if c.Abort() {
		t.Error("second Abort returned true")
	}
	if c.Status() != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", c.Status())
	}

	_ = w.Close()
	if err := c.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	if snap.Session.Status != StatusCancelled || snap.Error != "" {
		t.Fatalf("after stream close status=%s error=%q", snap.Session.Status, snap.Error)
	}
	for _, e := range snap.Trace {
		if e.Level == LevelError {
			t.Errorf("error entry after abort: %+v", e)
		}
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if !reflect.DeepEqual(obs.finished, []Status{StatusCancelled}) {
		t.Errorf("finished = %v, want [cancelled]", obs.finished)
	}
}

func TestControllerSupersededRunIsIgnored(t *testing.T) {
	pt := &pipeTransport{}
	var opens atomic.Int32
	second := transport.NewStatic(ndjson(
		`{"type":"tool_call","tool":"fresh","args":{}}`,
		`{"type":"complete","data":{}}`,
	))
	tr := transport.Func(func(ctx context.Context, req transport.Request) (io.ReadCloser, error) {
		if opens.Add(1) == 1 {
			return pt.Open(ctx, req)
		}
		return second.Open(ctx, req)
	})
	obs := newCountingObserver()
	c := NewController(tr, WithLogf(quietLogf), WithObserver(obs))

	first := c.Submit(context.Background(), "one")
	w := pt.writer(t, 0)
	if _, err := io.WriteString(w, `{"type":"tool_call","tool":"old","args":{}}`+"\n"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first run applied", func() bool { return len(c.Path()) == 1 })

	next := c.Submit(context.Background(), "two")
	if next.ID == first.ID {
		t.Fatal("session ids not unique")
	}
	if got := c.Path(); len(got) != 0 && got[0] == "old" {
		t.Fatalf("path not reset on submit: %v", got)
	}
	if err := c.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Late bytes on the superseded stream must be dropped.
	if _, err := io.WriteString(w, `{"type":"tool_call","tool":"ghost","args":{}}`+"\n"); err != nil {
		t.Fatal(err)
	}
	select {
	case typ := <-obs.dropped:
		if typ != stream.TypeToolCall {
			t.Errorf("dropped %s, want tool_call", typ)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stale event was not dropped")
	}
	_ = w.Close()

	snap := c.Snapshot()
	if snap.Session.ID != next.ID || snap.Session.Status != StatusCompleted {
		t.Fatalf("session = %+v", snap.Session)
	}
	if !reflect.DeepEqual(snap.Path, []string{"fresh"}) {
		t.Errorf("path = %v, want [fresh]", snap.Path)
	}
}

func TestControllerSupersededRunReachesSubscribers(t *testing.T) {
	pt := &pipeTransport{}
	c := NewController(pt, WithLogf(quietLogf))
	var mu sync.Mutex
	var seen []Snapshot
	defer c.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})()

	first := c.Submit(context.Background(), "one")
	w := pt.writer(t, 0)
	defer w.Close()
	if _, err := io.WriteString(w, `{"type":"tool_call","tool":"old","args":{}}`+"\n"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first run applied", func() bool { return len(c.Path()) == 1 })
	next := c.Submit(context.Background(), "two")

	mu.Lock()
	defer mu.Unlock()
	idx := -1
	for i, s := range seen {
		if s.Session.ID == first.ID && s.Session.Status == StatusCancelled {
			idx = i
			break
		}
	}
	if idx < 0 || idx+1 >= len(seen) {
		t.Fatalf("no cancelled snapshot followed by the new run in %d snapshots", len(seen))
	}
	final, fresh := seen[idx], seen[idx+1]
	if !reflect.DeepEqual(final.Path, []string{"old"}) || final.FinishedAt.IsZero() {
		t.Errorf("superseded snapshot path=%v finished=%v", final.Path, final.FinishedAt)
	}
	if fresh.Session.ID != next.ID || fresh.Session.Status != StatusRunning || len(fresh.Path) != 0 {
		t.Errorf("new run snapshot = %+v path=%v", fresh.Session, fresh.Path)
	}
}

func TestControllerSubscribeOrdered(t *testing.T) {
	payload := ndjson(
		`{"type":"tool_call","tool":"a","args":{}}`,
		`{"type":"tool_call","tool":"b","args":{}}`,
		`{"type":"tool_call","tool":"c","args":{}}`,
		`{"type":"complete","data":{}}`,
	)
	c := NewController(transport.NewStatic(payload), WithLogf(quietLogf))

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	c.Submit(context.Background(), "q")
	if err := c.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	unsubscribe()
	unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 {
		t.Fatalf("snapshots = %d", len(seen))
	}
	if seen[0].Session.Status != StatusRunning || len(seen[0].Path) != 0 {
		t.Errorf("first snapshot = %+v, want empty running", seen[0].Session)
	}
	last := seen[len(seen)-1]
	if last.Session.Status != StatusCompleted || len(last.Path) != 3 {
		t.Errorf("last snapshot status=%s path=%v", last.Session.Status, last.Path)
	}
	for i := 1; i < len(seen); i++ {
		if len(seen[i].Path) < len(seen[i-1].Path) || len(seen[i].Trace) < len(seen[i-1].Trace) {
			t.Fatalf("snapshot %d went backwards", i)
		}
	}
}

func TestControllerPollEmitsThroughGuard(t *testing.T) {
	pt := &pipeTransport{}
	c := NewController(pt, WithLogf(quietLogf))
	c.Submit(context.Background(), "q")
	w := pt.writer(t, 0)
	defer w.Close()

	done := c.Poll(poll.Fixed(time.Millisecond, 10), func(ctx context.Context, attempt int, emit func(stream.Event)) (bool, error) {
		switch attempt {
		case 0:
			emit(stream.ToolCallEvent{Tool: "poller"})
			return false, nil
		case 2:
			emit(stream.CompleteEvent{Data: []byte(`{"report":"polled"}`)})
			return true, nil
		}
		return false, nil
	})
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not finish")
	}

	snap := c.Snapshot()
	if snap.Session.Status != StatusCompleted || snap.Answer != "polled" {
		t.Fatalf("status=%s answer=%q", snap.Session.Status, snap.Answer)
	}
	if !reflect.DeepEqual(snap.Path, []string{"poller"}) {
		t.Errorf("path = %v", snap.Path)
	}
}

func TestControllerPollCancelledByAbort(t *testing.T) {
	pt := &pipeTransport{}
	c := NewController(pt, WithLogf(quietLogf))
	c.Submit(context.Background(), "q")
	w := pt.writer(t, 0)
	defer w.Close()

	var attempts atomic.Int32
	done := c.Poll(poll.Fixed(time.Millisecond, 0), func(context.Context, int, func(stream.Event)) (bool, error) {
		attempts.Add(1)
		return false, nil
	})
	waitFor(t, "poll running", func() bool { return attempts.Load() > 0 })
	c.Abort()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("poll err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poll not cancelled by abort")
	}
}

func TestControllerPollWhenIdle(t *testing.T) {
	c := NewController(transport.NewStatic(nil), WithLogf(quietLogf))
	err := <-c.Poll(poll.Fixed(time.Millisecond, 1), func(context.Context, int, func(stream.Event)) (bool, error) {
		t.Fatal("poll function ran without a session")
		return true, nil
	})
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}
}

func TestControllerFinalLatencyFrozen(t *testing.T) {
	var mu sync.Mutex
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	_, snap := runStatic(t, ndjson(`{"type":"complete","data":{}}`), WithClock(tick))
	if snap.FinalLatency <= 0 {
		t.Fatalf("final latency = %v", snap.FinalLatency)
	}
	if got := snap.Elapsed(snap.FinishedAt.Add(time.Hour)); got != snap.FinalLatency {
		t.Errorf("elapsed = %v, want frozen %v", got, snap.FinalLatency)
	}
}
