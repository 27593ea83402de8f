// ABOUTME: Defines lipgloss styles for the dashboard panels, node marks, and trace levels.
// ABOUTME: StyleForStatus and StyleForLevel map domain values to their display styles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/tickertape/engine"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))
	FocusedBorderStyle = BorderStyle.
				BorderForeground(lipgloss.Color("170"))

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Node marks
	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	VisitedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	EdgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Trace levels
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogDebugStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	LogInfoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	LogWarnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	LogErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	LogPayloadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// StyleForStatus returns the style for a node mark.
func StyleForStatus(status NodeStatus) lipgloss.Style {
	switch status {
	case NodeActive:
		return ActiveStyle
	case NodeVisited:
		return VisitedStyle
	case NodeFailed:
		return FailedStyle
	default:
		return PendingStyle
	}
}

// StyleForLevel returns the style for a trace entry's level tag.
func StyleForLevel(level engine.Level) lipgloss.Style {
	switch level {
	case engine.LevelDebug:
		return LogDebugStyle
	case engine.LevelWarn:
		return LogWarnStyle
	case engine.LevelError:
		return LogErrorStyle
	default:
		return LogInfoStyle
	}
}

// StyleForSession returns the style for the session status badge.
func StyleForSession(status engine.Status) lipgloss.Style {
	switch status {
	case engine.StatusRunning:
		return ActiveStyle
	case engine.StatusCompleted:
		return VisitedStyle
	case engine.StatusErrored:
		return FailedStyle
	default:
		return PendingStyle
	}
}
