// ABOUTME: Append-only, timestamped audit log of every event surfaced during a session.
// ABOUTME: Entries are immutable once appended and always ordered by arrival.
package engine

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Level classifies a trace entry for display.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// TraceEntry is one audit record. Payload is shared with snapshots and must
// be treated as read-only.
type TraceEntry struct {
	ID      string          `json:"id"`
	Seq     int             `json:"seq"`
	At      time.Time       `json:"at"`
	Level   Level           `json:"level"`
	Type    string          `json:"type"`
	Tool    string          `json:"tool,omitempty"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TraceLog holds entries in arrival order.
type TraceLog struct {
	entries []TraceEntry
}

// Append stamps e with an id and sequence number and stores it.
func (l *TraceLog) Append(e TraceEntry) TraceEntry {
	e.ID = uuid.NewString()
	e.Seq = len(l.entries) + 1
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the log.
func (l *TraceLog) Entries() []TraceEntry {
	return append([]TraceEntry(nil), l.entries...)
}
