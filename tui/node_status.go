// ABOUTME: Defines the NodeStatus marks a topology node can carry: pending, active, visited, or failed.
// ABOUTME: Marks are derived from a snapshot's execution path and session status, never stored.
package tui

import "github.com/2389-research/tickertape/engine"

// NodeStatus is how a node is drawn.
type NodeStatus int

const (
	NodePending NodeStatus = iota // never seen in the path
	NodeActive                    // last node in the path of a running session
	NodeVisited                   // appeared in the path
	NodeFailed                    // last node in the path of an errored session
)

func (s NodeStatus) String() string {
	switch s {
	case NodePending:
		return "pending"
	case NodeActive:
		return "active"
	case NodeVisited:
		return "visited"
	case NodeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Icon returns a bracket-style marker.
func (s NodeStatus) Icon() string {
	switch s {
	case NodePending:
		return "[ ]"
	case NodeActive:
		return "[~]"
	case NodeVisited:
		return "[*]"
	case NodeFailed:
		return "[!]"
	default:
		return "[?]"
	}
}

// SpinnerFrames animates the active node.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// nodeStatuses derives a mark for every node in the snapshot's path.
func nodeStatuses(snap engine.Snapshot) map[string]NodeStatus {
	out := make(map[string]NodeStatus, len(snap.Path))
	for _, id := range snap.Path {
		out[id] = NodeVisited
	}
	if snap.Active == "" {
		return out
	}
	switch snap.Session.Status {
	case engine.StatusRunning:
		out[snap.Active] = NodeActive
	case engine.StatusErrored:
		out[snap.Active] = NodeFailed
	}
	return out
}
