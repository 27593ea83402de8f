// ABOUTME: Scrollable trace log panel using the bubbles viewport component.
// ABOUTME: Entries are colored by level; payloads are deep-parsed and shown compactly.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/tickertape/engine"
	"github.com/2389-research/tickertape/present"
)

const payloadPreview = 160

// LogPanelModel is a scrollable view of the session's trace entries.
type LogPanelModel struct {
	entries  []engine.TraceEntry
	max      int
	viewport viewport.Model
	focused  bool
	width    int
	height   int
}

// NewLogPanelModel creates a log panel that shows at most maxEntries of the
// newest entries. If maxEntries is <= 0, it defaults to 500.
func NewLogPanelModel(maxEntries int) LogPanelModel {
	if maxEntries <= 0 {
		maxEntries = 500
	}
	return LogPanelModel{
		max:      maxEntries,
		viewport: viewport.New(80, 10),
	}
}

// SetEntries replaces the displayed entries. The view follows the tail
// unless the panel is focused and the user has scrolled up.
func (m *LogPanelModel) SetEntries(entries []engine.TraceEntry) {
	if len(entries) > m.max {
		entries = entries[len(entries)-m.max:]
	}
	follow := !m.focused || m.viewport.AtBottom()
	m.entries = entries
	m.syncViewport(follow)
}

// Len returns the number of displayed entries.
func (m LogPanelModel) Len() int {
	return len(m.entries)
}

// SetFocused sets whether this panel accepts scroll keys.
func (m *LogPanelModel) SetFocused(focused bool) {
	m.focused = focused
}

// IsFocused returns whether the panel is focused.
func (m LogPanelModel) IsFocused() bool {
	return m.focused
}

// SetSize sets the available dimensions and updates the viewport.
func (m *LogPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// Reserve space for the border (2 lines top/bottom) and title (1 line)
	m.viewport.Width = max(w-2, 1)
	m.viewport.Height = max(h-3, 1)
	m.syncViewport(!m.focused || m.viewport.AtBottom())
}

// Update forwards scroll keys to the viewport when focused.
func (m LogPanelModel) Update(msg tea.Msg) (LogPanelModel, tea.Cmd) {
	if !m.focused {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the log panel.
func (m LogPanelModel) View() string {
	title := "TRACE LOG"
	style := BorderStyle
	if m.focused {
		title = "TRACE LOG (focused)"
		style = FocusedBorderStyle
	}

	content := "No events yet"
	if len(m.entries) > 0 {
		content = m.viewport.View()
	}
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	if m.height > 2 {
		style = style.Height(m.height - 2)
	}
	return style.Render(TitleStyle.Render(title) + "\n" + content)
}

func (m *LogPanelModel) syncViewport(follow bool) {
	if len(m.entries) == 0 {
		m.viewport.SetContent("")
		return
	}
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		lines = append(lines, formatEntry(e))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.viewport.GotoBottom()
	}
}

// formatEntry formats a single trace entry as a log line.
func formatEntry(e engine.TraceEntry) string {
	parts := []string{
		LogTimestampStyle.Render(e.At.Format("15:04:05.000")),
		StyleForLevel(e.Level).Render(fmt.Sprintf("%-5s", e.Level)),
		StyleForLevel(e.Level).Render(e.Type),
	}
	if e.Tool != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Tool))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if payload := present.Compact(e.Payload, payloadPreview); payload != "" {
		parts = append(parts, LogPayloadStyle.Render(payload))
	}
	return strings.Join(parts, " ")
}
