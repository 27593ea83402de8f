// ABOUTME: Renders the execution path as an arrow chain with the active step highlighted.
package tui

import (
	"strings"

	"github.com/2389-research/tickertape/engine"
)

// PathPanelModel shows the ordered steps of the current run.
type PathPanelModel struct {
	path         []string
	status       engine.Status
	spinnerIndex int
	width        int
}

// NewPathPanelModel creates an empty path panel.
func NewPathPanelModel() PathPanelModel {
	return PathPanelModel{status: engine.StatusIdle}
}

// SetPath replaces the displayed path.
func (m *PathPanelModel) SetPath(path []string, status engine.Status) {
	m.path = path
	m.status = status
}

// AdvanceSpinner increments the spinner frame index.
func (m *PathPanelModel) AdvanceSpinner() {
	m.spinnerIndex++
}

// SetWidth sets the available width.
func (m *PathPanelModel) SetWidth(w int) {
	m.width = w
}

// View renders the panel.
func (m PathPanelModel) View() string {
	var content string
	if len(m.path) == 0 {
		content = PendingStyle.Render("(no steps yet)")
	} else {
		parts := make([]string, len(m.path))
		last := len(m.path) - 1
		for i, id := range m.path {
			switch {
			case i < last:
				parts[i] = VisitedStyle.Render(id)
			case m.status == engine.StatusRunning:
				parts[i] = ActiveStyle.Render(id + " " + SpinnerFrames[m.spinnerIndex%len(SpinnerFrames)])
			case m.status == engine.StatusErrored:
				parts[i] = FailedStyle.Render(id)
			default:
				parts[i] = VisitedStyle.Render(id)
			}
		}
		content = strings.Join(parts, EdgeStyle.Render(" → "))
	}

	style := BorderStyle
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	return style.Render(TitleStyle.Render("PATH") + "\n" + content)
}
