// ABOUTME: TopologyStore holds the latest full agent/tool graph snapshot for a session.
// ABOUTME: Every topology event replaces the stored graph wholesale; there is no incremental patching.
package engine

import "github.com/2389-research/tickertape/stream"

// TopologyStore keeps the last graph received.
type TopologyStore struct {
	graph *stream.Graph
}

// OnTopology replaces the stored graph unconditionally.
func (t *TopologyStore) OnTopology(g stream.Graph) {
	t.graph = g.Clone()
}

// Current returns a copy of the stored graph, or nil if none has arrived.
func (t *TopologyStore) Current() *stream.Graph {
	return t.graph.Clone()
}
