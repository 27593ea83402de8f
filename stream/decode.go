// ABOUTME: Decodes one framed line into a typed Event, narrowing the loosely-typed wire JSON at the boundary.
// ABOUTME: Distinguishes blank lines, unparseable JSON, protocol violations, and unknown event types.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyLine is returned for blank or whitespace-only lines. Callers skip
// these silently; they are not decode failures.
var ErrEmptyLine = errors.New("empty line")

// DecodeError reports a line that is not a JSON object with a string "type".
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode event: %v (line %q)", e.Err, truncate(e.Line, 80))
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ProtocolError reports a recognized event type missing a required field.
type ProtocolError struct {
	Type  EventType
	Field string
	Raw   json.RawMessage
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation: %s event missing %q", e.Type, e.Field)
}

// envelope is the superset of top-level wire fields across all event types.
type envelope struct {
	Type     *string         `json:"type"`
	Message  *string         `json:"message"`
	Tool     *string         `json:"tool"`
	Args     json.RawMessage `json:"args"`
	Result   json.RawMessage `json:"result"`
	Duration *float64        `json:"duration"`
	Data     json.RawMessage `json:"data"`
}

// Decode parses one line as a single JSON event.
func Decode(line string) (Event, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, ErrEmptyLine
	}

	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, &DecodeError{Line: line, Err: err}
	}
	if env.Type == nil {
		return nil, &DecodeError{Line: line, Err: errors.New(`missing "type" field`)}
	}

	raw := json.RawMessage(trimmed)
	kind := EventType(*env.Type)
	missing := func(field string) error {
		return &ProtocolError{Type: kind, Field: field, Raw: raw}
	}

	switch kind {
	case TypeStatus:
		if env.Message == nil {
			return nil, missing("message")
		}
		return StatusEvent{Message: *env.Message}, nil

	case TypeToolCall:
		if env.Tool == nil || *env.Tool == "" {
			return nil, missing("tool")
		}
		if len(env.Args) == 0 {
			return nil, missing("args")
		}
		return ToolCallEvent{Tool: *env.Tool, Args: nullToNil(env.Args)}, nil

	case TypeToolResult:
		if env.Tool == nil || *env.Tool == "" {
			return nil, missing("tool")
		}
		// An explicit null result is a result; only an absent key is rejected.
		if len(env.Result) == 0 {
			return nil, missing("result")
		}
		return ToolResultEvent{Tool: *env.Tool, Result: nullToNil(env.Result), Duration: env.Duration}, nil

	case TypeLatency:
		if env.Tool == nil || *env.Tool == "" {
			return nil, missing("tool")
		}
		if env.Duration == nil {
			return nil, missing("duration")
		}
		return LatencyEvent{Tool: *env.Tool, Duration: *env.Duration}, nil

	case TypeTrace:
		if isAbsent(env.Data) {
			return nil, missing("data")
		}
		var td TraceData
		if err := json.Unmarshal(env.Data, &td); err != nil {
			return nil, &DecodeError{Line: line, Err: fmt.Errorf("trace data: %w", err)}
		}
		return TraceEvent{Data: td}, nil

	case TypeTopology:
		if isAbsent(env.Data) {
			return nil, missing("data")
		}
		var g Graph
		if err := json.Unmarshal(env.Data, &g); err != nil {
			return nil, &DecodeError{Line: line, Err: fmt.Errorf("topology data: %w", err)}
		}
		return TopologyEvent{Graph: g}, nil

	case TypeError:
		if env.Message == nil {
			return nil, missing("message")
		}
		return ErrorEvent{Message: *env.Message}, nil

	case TypeComplete:
		if isAbsent(env.Data) {
			return nil, missing("data")
		}
		return CompleteEvent{Data: append(json.RawMessage(nil), env.Data...)}, nil

	default:
		return UnknownEvent{Kind: kind, Raw: raw}, nil
	}
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if isAbsent(raw) {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
