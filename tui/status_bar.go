// ABOUTME: Single-line status bar showing session id, status, elapsed time, steps, and the latest message.
// ABOUTME: Elapsed time keeps running while busy and freezes at the final latency once terminal.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/tickertape/engine"
)

// StatusBarModel renders the bottom line of the dashboard.
type StatusBarModel struct {
	snap  engine.Snapshot
	now   time.Time
	width int
}

// NewStatusBarModel creates an idle status bar.
func NewStatusBarModel() StatusBarModel {
	return StatusBarModel{snap: engine.Snapshot{Session: engine.Session{Status: engine.StatusIdle}}}
}

// SetSnapshot updates the session shown.
func (m *StatusBarModel) SetSnapshot(snap engine.Snapshot) {
	m.snap = snap
}

// SetNow sets the reference time for the elapsed display.
func (m *StatusBarModel) SetNow(now time.Time) {
	m.now = now
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// formatElapsed formats a duration as a human-readable string.
// Durations under a minute show tenths of a second (e.g. "12.3s").
// Durations of a minute or more show as minutes and seconds (e.g. "2m30s").
func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Truncate(100*time.Millisecond).Seconds())
	}
	d = d.Truncate(time.Second)
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	id := m.snap.Session.ID
	if len(id) > 10 {
		id = id[len(id)-10:]
	}
	if id == "" {
		id = "-"
	}
	status := StyleForSession(m.snap.Session.Status).Render(string(m.snap.Session.Status))

	tail := m.snap.Message
	if m.snap.Error != "" {
		tail = m.snap.Error
	}

	content := fmt.Sprintf("Session: %s | %s | Elapsed: %s | %d steps | %s",
		id, status, formatElapsed(m.snap.Elapsed(m.now)), len(m.snap.Path), tail)

	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, StatusBarStyle.Width(m.width).MaxHeight(1).Render(content))
}
