// ABOUTME: Bubble Tea message types used in the dashboard message loop.
package tui

import (
	"time"

	"github.com/2389-research/tickertape/engine"
)

// SnapshotMsg carries the controller's latest state into the loop.
type SnapshotMsg struct {
	Snapshot engine.Snapshot
}

// TickMsg drives the spinner and the elapsed-time display.
type TickMsg struct {
	Time time.Time
}
