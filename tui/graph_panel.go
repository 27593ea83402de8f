// ABOUTME: Bubble Tea sub-model rendering the latest topology with visited/active marks and a spinner.
// ABOUTME: Uses Kahn's algorithm for level layout; nodes caught in a cycle are listed after the levels.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/2389-research/tickertape/stream"
)

// GraphPanelModel displays the topology graph.
type GraphPanelModel struct {
	graph        *stream.Graph
	statuses     map[string]NodeStatus
	spinnerIndex int
	width        int
	height       int
}

// NewGraphPanelModel creates an empty graph panel.
func NewGraphPanelModel() GraphPanelModel {
	return GraphPanelModel{statuses: make(map[string]NodeStatus)}
}

// SetGraph replaces the displayed graph and the node marks.
func (m *GraphPanelModel) SetGraph(g *stream.Graph, statuses map[string]NodeStatus) {
	m.graph = g
	m.statuses = statuses
}

// GetNodeStatus returns a node's mark (defaults to NodePending).
func (m GraphPanelModel) GetNodeStatus(nodeID string) NodeStatus {
	if s, ok := m.statuses[nodeID]; ok {
		return s
	}
	return NodePending
}

// AdvanceSpinner increments the spinner frame index.
func (m *GraphPanelModel) AdvanceSpinner() {
	m.spinnerIndex++
}

// SetSize sets the available dimensions.
func (m *GraphPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// View renders the panel.
func (m GraphPanelModel) View() string {
	var b strings.Builder
	if m.graph == nil || len(m.graph.Nodes) == 0 {
		b.WriteString(TitleStyle.Render("TOPOLOGY"))
		b.WriteString("\n")
		b.WriteString(PendingStyle.Render("(no topology yet)"))
		return m.frame(b.String())
	}

	b.WriteString(TitleStyle.Render(fmt.Sprintf("TOPOLOGY (%d nodes, %d edges)", len(m.graph.Nodes), len(m.graph.Edges))))
	b.WriteString("\n")

	levels, cyclic := topologicalLevels(m.graph)
	for levelIdx, level := range levels {
		for _, nodeID := range level {
			m.writeNode(&b, nodeID, levelIdx < len(levels)-1)
		}
	}
	if len(cyclic) > 0 {
		b.WriteString(EdgeStyle.Render("  (cycle)"))
		b.WriteString("\n")
		for _, nodeID := range cyclic {
			m.writeNode(&b, nodeID, false)
		}
	}
	return m.frame(strings.TrimRight(b.String(), "\n"))
}

func (m GraphPanelModel) writeNode(b *strings.Builder, nodeID string, withEdges bool) {
	node := m.graph.FindNode(nodeID)
	if node == nil {
		return
	}
	status := m.GetNodeStatus(nodeID)
	line := fmt.Sprintf("  %s %s", status.Icon(), nodeLabel(node))
	if node.Kind != "" {
		line += fmt.Sprintf(" (%s)", node.Kind)
	}
	if status == NodeActive {
		line += " " + SpinnerFrames[m.spinnerIndex%len(SpinnerFrames)]
	}
	b.WriteString(StyleForStatus(status).Render(line))
	b.WriteString("\n")

	if !withEdges {
		return
	}
	for _, edge := range m.graph.Edges {
		if edge.Source != nodeID {
			continue
		}
		target := edge.Target
		if t := m.graph.FindNode(edge.Target); t != nil {
			target = nodeLabel(t)
		}
		b.WriteString(EdgeStyle.Render("    --> " + target))
		b.WriteString("\n")
	}
}

func (m GraphPanelModel) frame(content string) string {
	style := BorderStyle
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	if m.height > 2 {
		style = style.Height(m.height - 2)
	}
	return style.Render(content)
}

// topologicalLevels computes levels with Kahn's algorithm. Nodes within a
// level are sorted for deterministic output. Nodes never reaching in-degree
// zero (cycles) are returned separately, sorted. Edges naming unknown nodes
// are ignored.
func topologicalLevels(g *stream.Graph) (levels [][]string, cyclic []string) {
	if g == nil || len(g.Nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		inDegree[n.ID] = 0
	}
	outgoing := make(map[string][]string)
	for _, e := range g.Edges {
		if _, ok := inDegree[e.Source]; !ok {
			continue
		}
		if _, ok := inDegree[e.Target]; !ok {
			continue
		}
		inDegree[e.Target]++
		outgoing[e.Source] = append(outgoing[e.Source], e.Target)
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	placed := make(map[string]bool, len(inDegree))
	for len(queue) > 0 {
		level := append([]string(nil), queue...)
		levels = append(levels, level)

		var next []string
		for _, id := range queue {
			placed[id] = true
			for _, to := range outgoing[id] {
				inDegree[to]--
				if inDegree[to] == 0 {
					next = append(next, to)
				}
			}
		}
		sort.Strings(next)
		queue = next
	}

	for id := range inDegree {
		if !placed[id] {
			cyclic = append(cyclic, id)
		}
	}
	sort.Strings(cyclic)
	return levels, cyclic
}

// nodeLabel returns the display label for a node, falling back to the node ID.
func nodeLabel(node *stream.Node) string {
	if node.Label != "" {
		return node.Label
	}
	return node.ID
}
