// ABOUTME: Immutable point-in-time view of a session's derived state, handed to UI consumers.
// ABOUTME: Snapshots are deep copies so readers never race with the dispatcher.
package engine

import (
	"encoding/json"
	"time"

	"github.com/2389-research/tickertape/stream"
)

// Snapshot is everything a UI needs to render the current run.
type Snapshot struct {
	Session      Session                  `json:"session"`
	Prompt       string                   `json:"prompt,omitempty"`
	Path         []string                 `json:"path"`
	Active       string                   `json:"active,omitempty"`
	Topology     *stream.Graph            `json:"topology,omitempty"`
	Metrics      map[string]MetricsRecord `json:"metrics"`
	Trace        []TraceEntry             `json:"trace"`
	Message      string                   `json:"message,omitempty"`
	Answer       string                   `json:"answer,omitempty"`
	Result       json.RawMessage          `json:"result,omitempty"`
	Error        string                   `json:"error,omitempty"`
	FinishedAt   time.Time                `json:"finished_at,omitempty"`
	FinalLatency time.Duration            `json:"final_latency,omitempty"`
	Diagnostics  []Diagnostic             `json:"diagnostics,omitempty"`
}

// Busy reports whether the session is still running.
func (s Snapshot) Busy() bool {
	return s.Session.Status == StatusRunning
}

// Elapsed returns the running time at now, or the frozen final latency once
// the session has reached a terminal state.
func (s Snapshot) Elapsed(now time.Time) time.Duration {
	switch {
	case s.Session.Status == StatusIdle || s.Session.StartedAt.IsZero():
		return 0
	case s.Session.Status.Terminal():
		return s.FinalLatency
	default:
		return now.Sub(s.Session.StartedAt)
	}
}

func idleSnapshot() Snapshot {
	return Snapshot{
		Session: Session{Status: StatusIdle},
		Metrics: map[string]MetricsRecord{},
	}
}

func (s *runState) snapshot() Snapshot {
	snap := Snapshot{
		Session:      s.session,
		Prompt:       s.prompt,
		Path:         s.path.Nodes(),
		Active:       s.path.Active(),
		Topology:     s.topology.Current(),
		Metrics:      s.metrics.All(),
		Trace:        s.trace.Entries(),
		Message:      s.message,
		Answer:       s.answer.String(),
		Error:        s.errMsg,
		FinishedAt:   s.finishedAt,
		FinalLatency: s.finalLatency,
	}
	if s.result != nil {
		snap.Result = append(json.RawMessage(nil), s.result...)
	}
	if len(s.diagnostics) > 0 {
		snap.Diagnostics = append([]Diagnostic(nil), s.diagnostics...)
	}
	return snap
}
