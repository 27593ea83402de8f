// ABOUTME: Prompt input for submitting a new question, built on the bubbles textinput component.
// ABOUTME: Enter submits the trimmed text; the app model clears the field after a successful submit.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PromptModel holds the text being composed.
type PromptModel struct {
	input textinput.Model
	width int
}

// NewPromptModel creates a focused prompt input.
func NewPromptModel() PromptModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask something and press enter..."
	ti.CharLimit = 4000
	ti.Focus()
	return PromptModel{input: ti}
}

// Value returns the trimmed input text.
func (m PromptModel) Value() string {
	return strings.TrimSpace(m.input.Value())
}

// SetValue replaces the input text.
func (m *PromptModel) SetValue(s string) {
	m.input.SetValue(s)
}

// Reset clears the input.
func (m *PromptModel) Reset() {
	m.input.Reset()
}

// SetWidth sets the available width.
func (m *PromptModel) SetWidth(w int) {
	m.width = w
	m.input.Width = max(w-6, 10)
}

// Update forwards key input to the text field.
func (m PromptModel) Update(msg tea.Msg) (PromptModel, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the prompt box.
func (m PromptModel) View() string {
	style := BorderStyle
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	return style.Render(m.input.View())
}
