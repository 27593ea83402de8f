// ABOUTME: ExecutionPath records the ordered sequence of nodes observed to run during one session.
// ABOUTME: Consecutive repeats collapse into a single step; non-consecutive repeats are kept.
package engine

// ExecutionPath is an append-only list of node identifiers.
type ExecutionPath struct {
	nodes []string
}

// OnToolCall appends id unless it equals the current last element. It
// reports whether the path grew.
func (p *ExecutionPath) OnToolCall(id string) bool {
	if n := len(p.nodes); n > 0 && p.nodes[n-1] == id {
		return false
	}
	p.nodes = append(p.nodes, id)
	return true
}

// Active returns the most recently started node, or "" when the path is empty.
func (p *ExecutionPath) Active() string {
	if len(p.nodes) == 0 {
		return ""
	}
	return p.nodes[len(p.nodes)-1]
}

// Nodes returns a copy of the path.
func (p *ExecutionPath) Nodes() []string {
	return append([]string(nil), p.nodes...)
}
