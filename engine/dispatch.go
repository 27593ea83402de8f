// ABOUTME: Per-session state bundle and the event dispatch table that mutates it.
// ABOUTME: Each event type maps to exactly one handler; unknown types and protocol violations only reach the trace log.
package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/2389-research/tickertape/stream"
)

// answerTraceTypes are inner trace types whose content extends the answer text.
var answerTraceTypes = map[string]bool{
	"content": true,
	"token":   true,
	"delta":   true,
	"answer":  true,
}

// maxDiagnostics bounds the decode-failure list kept per session.
const maxDiagnostics = 100

// Diagnostic records a line that could not be decoded.
type Diagnostic struct {
	At   time.Time `json:"at"`
	Line string    `json:"line,omitempty"`
	Err  string    `json:"error"`
}

// runState is the mutable state bundle owned by exactly one session.
type runState struct {
	session Session
	prompt  string

	path     ExecutionPath
	topology TopologyStore
	metrics  MetricsAggregator
	trace    TraceLog

	message      string
	answer       strings.Builder
	result       json.RawMessage
	errMsg       string
	finishedAt   time.Time
	finalLatency time.Duration

	diagnostics []Diagnostic
	dropped     int
}

// apply routes one event. It returns the terminal status the event caused,
// or "" when the session keeps running.
func (s *runState) apply(evt stream.Event, now time.Time) Status {
	switch e := evt.(type) {
	case stream.StatusEvent:
		s.message = e.Message
		s.log(now, LevelInfo, string(e.Type()), "", e.Message, nil)

	case stream.ToolCallEvent:
		s.path.OnToolCall(e.Tool)
		s.log(now, LevelInfo, string(e.Type()), e.Tool, "started", e.Args)

	case stream.ToolResultEvent:
		msg := "finished"
		if e.Duration != nil {
			s.metrics.OnDuration(e.Tool, *e.Duration)
			msg = fmt.Sprintf("finished in %s", formatMillis(*e.Duration))
		}
		s.log(now, LevelInfo, string(e.Type()), e.Tool, msg, e.Result)

	case stream.LatencyEvent:
		s.metrics.OnLatency(e.Tool, e.Duration)
		s.log(now, LevelDebug, string(e.Type()), e.Tool, "latency "+formatMillis(e.Duration), nil)

	case stream.TraceEvent:
		s.applyTrace(e.Data, now)

	case stream.TopologyEvent:
		s.topology.OnTopology(e.Graph)
		s.log(now, LevelInfo, string(e.Type()), "", fmt.Sprintf("%d nodes, %d edges", len(e.Graph.Nodes), len(e.Graph.Edges)), nil)

	case stream.ErrorEvent:
		s.errMsg = e.Message
		s.log(now, LevelError, string(e.Type()), "", e.Message, nil)
		return StatusErrored

	case stream.CompleteEvent:
		s.result = e.Data
		if text, ok := answerFromResult(e.Data); ok {
			s.answer.Reset()
			s.answer.WriteString(text)
		}
		s.log(now, LevelInfo, string(e.Type()), "", "complete", e.Data)
		return StatusCompleted

	case stream.UnknownEvent:
		s.log(now, LevelDebug, string(e.Type()), "", "unrecognized event type", e.Raw)
	}
	return ""
}

func (s *runState) applyTrace(td stream.TraceData, now time.Time) {
	node := td.Tool
	if node == "" {
		node = RunMetricsKey
	}
	if td.Metrics != nil && !td.Metrics.Empty() {
		s.metrics.OnMetrics(node, *td.Metrics)
	}
	if td.Duration != nil {
		s.metrics.OnDuration(node, *td.Duration)
	}
	if answerTraceTypes[td.Type] && td.Content != "" {
		s.answer.WriteString(td.Content)
	}

	payload, _ := json.Marshal(td)
	msg := td.Content
	if msg == "" {
		msg = td.Type
	}
	s.log(now, LevelDebug, string(stream.TypeTrace)+":"+td.Type, td.Tool, msg, payload)
}

// applyViolation records a protocol violation without touching derived state.
func (s *runState) applyViolation(pe *stream.ProtocolError, now time.Time) {
	s.log(now, LevelWarn, string(pe.Type), "", pe.Error(), pe.Raw)
}

func (s *runState) addDiagnostic(now time.Time, line string, err error) {
	if len(s.diagnostics) >= maxDiagnostics {
		s.diagnostics = s.diagnostics[1:]
	}
	if len(line) > 200 {
		line = line[:200]
	}
	s.diagnostics = append(s.diagnostics, Diagnostic{At: now, Line: line, Err: err.Error()})
}

func (s *runState) log(now time.Time, level Level, typ string, tool, msg string, payload json.RawMessage) {
	s.trace.Append(TraceEntry{
		At:      now,
		Level:   level,
		Type:    typ,
		Tool:    tool,
		Message: msg,
		Payload: payload,
	})
}

// finish moves the session to a terminal status and freezes its latency.
func (s *runState) finish(to Status, now time.Time) error {
	if err := s.session.transition(to); err != nil {
		return err
	}
	s.finishedAt = now
	s.finalLatency = now.Sub(s.session.StartedAt)
	return nil
}

// answerFromResult extracts final answer text from a complete payload when
// the backend provides one under a conventional key.
func answerFromResult(data json.RawMessage) (string, bool) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", false
	}
	for _, key := range []string{"answer", "content", "report", "text"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// formatMillis renders a backend-reported duration in milliseconds.
func formatMillis(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	return fmt.Sprintf("%.0fms", ms)
}
