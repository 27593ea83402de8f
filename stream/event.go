// ABOUTME: Typed stream events emitted by the orchestrator, one struct per wire "type" value.
// ABOUTME: Event is a sealed interface so downstream handlers only ever see fully-narrowed payloads.
package stream

import (
	"encoding/json"
)

// EventType is the wire discriminator carried in every event's "type" field.
type EventType string

const (
	TypeStatus     EventType = "status"
	TypeToolCall   EventType = "tool_call"
	TypeToolResult EventType = "tool_result"
	TypeLatency    EventType = "latency"
	TypeTrace      EventType = "trace"
	TypeTopology   EventType = "topology"
	TypeError      EventType = "error"
	TypeComplete   EventType = "complete"
)

// Known reports whether t is one of the wire types above.
func (t EventType) Known() bool {
	switch t {
	case TypeStatus, TypeToolCall, TypeToolResult, TypeLatency, TypeTrace, TypeTopology, TypeError, TypeComplete:
		return true
	}
	return false
}

// Event is one decoded line of the stream.
type Event interface {
	Type() EventType
	isEvent()
}

// StatusEvent is human-readable progress text.
type StatusEvent struct {
	Message string
}

// ToolCallEvent signals that a node (tool or agent) began executing.
type ToolCallEvent struct {
	Tool string
	Args json.RawMessage
}

// ToolResultEvent signals that a node finished. Duration is nil when the
// backend did not report one.
type ToolResultEvent struct {
	Tool     string
	Result   json.RawMessage
	Duration *float64
}

// LatencyEvent carries a single latency sample for a node.
type LatencyEvent struct {
	Tool     string
	Duration float64
}

// TraceEvent wraps another event for audit logging, optionally with metrics.
type TraceEvent struct {
	Data TraceData
}

// TopologyEvent is a complete node/edge snapshot.
type TopologyEvent struct {
	Graph Graph
}

// ErrorEvent is a terminal failure reported by the backend.
type ErrorEvent struct {
	Message string
}

// CompleteEvent is the terminal success payload.
type CompleteEvent struct {
	Data json.RawMessage
}

// UnknownEvent is any line whose type is not recognized. It is logged, never applied.
type UnknownEvent struct {
	Kind EventType
	Raw  json.RawMessage
}

func (StatusEvent) Type() EventType     { return TypeStatus }
func (ToolCallEvent) Type() EventType   { return TypeToolCall }
func (ToolResultEvent) Type() EventType { return TypeToolResult }
func (LatencyEvent) Type() EventType    { return TypeLatency }
func (TraceEvent) Type() EventType      { return TypeTrace }
func (TopologyEvent) Type() EventType   { return TypeTopology }
func (ErrorEvent) Type() EventType      { return TypeError }
func (CompleteEvent) Type() EventType   { return TypeComplete }
func (e UnknownEvent) Type() EventType  { return e.Kind }

func (StatusEvent) isEvent()     {}
func (ToolCallEvent) isEvent()   {}
func (ToolResultEvent) isEvent() {}
func (LatencyEvent) isEvent()    {}
func (TraceEvent) isEvent()      {}
func (TopologyEvent) isEvent()   {}
func (ErrorEvent) isEvent()      {}
func (CompleteEvent) isEvent()   {}
func (UnknownEvent) isEvent()    {}

// TraceData is the inner payload of a trace event. Type names the wrapped
// event kind; every other field is optional.
type TraceData struct {
	Type     string          `json:"type"`
	Content  string          `json:"content,omitempty"`
	Tool     string          `json:"tool,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Duration *float64        `json:"duration,omitempty"`
	Metrics  *Metrics        `json:"metrics,omitempty"`
}

// Metrics is a partial metrics record. A nil pointer means "not reported",
// which is distinct from a reported zero.
type Metrics struct {
	Duration         *float64  `json:"duration,omitempty"`
	PromptTokens     *int64    `json:"prompt_tokens,omitempty"`
	CompletionTokens *int64    `json:"completion_tokens,omitempty"`
	TotalTokens      *int64    `json:"total_tokens,omitempty"`
	Latencies        []float64 `json:"latencies,omitempty"`
}

// Empty reports whether no field of the partial record is present.
func (m Metrics) Empty() bool {
	return m.Duration == nil && m.PromptTokens == nil && m.CompletionTokens == nil &&
		m.TotalTokens == nil && len(m.Latencies) == 0
}

// Graph is the topology of agents and tools known to the orchestrator.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one agent or tool in the topology.
type Node struct {
	ID       string         `json:"id"`
	Label    string         `json:"label,omitempty"`
	Kind     string         `json:"kind,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UnmarshalJSON accepts "type" as an alias for "kind"; some producers use it.
func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	var aux struct {
		plain
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*n = Node(aux.plain)
	if n.Kind == "" {
		n.Kind = aux.Type
	}
	return nil
}

// Edge is a directed relation between two topology nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// FindNode returns the node with the given id, or nil.
func (g *Graph) FindNode(id string) *Node {
	if g == nil {
		return nil
	}
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the graph so stored snapshots cannot be mutated
// through a reader's copy.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: append([]Edge(nil), g.Edges...),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n
		if n.Metadata != nil {
			md := make(map[string]any, len(n.Metadata))
			for k, v := range n.Metadata {
				md[k] = v
			}
			out.Nodes[i].Metadata = md
		}
	}
	return out
}
