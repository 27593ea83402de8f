// ABOUTME: Top-level Bubble Tea AppModel composing prompt, path, topology, metrics, log, and status bar panels.
// ABOUTME: The model only renders snapshots; submissions and aborts go straight to the session runner.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/tickertape/engine"
)

const tickInterval = 100 * time.Millisecond

// Runner starts and cancels sessions. *engine.Controller satisfies it.
type Runner interface {
	Submit(ctx context.Context, content string) engine.Session
	Abort() bool
}

// FocusTarget indicates which panel currently has keyboard focus.
type FocusTarget int

const (
	FocusPrompt FocusTarget = iota
	FocusLog
)

// AppModel is the dashboard.
type AppModel struct {
	prompt    PromptModel
	path      PathPanelModel
	graph     GraphPanelModel
	metrics   MetricsPanelModel
	log       LogPanelModel
	statusBar StatusBarModel

	runner  Runner
	ctx     context.Context
	initial string

	snap   engine.Snapshot
	focus  FocusTarget
	width  int
	height int
}

// NewAppModel creates the dashboard. A non-empty initial prompt is
// submitted as soon as the program starts.
func NewAppModel(ctx context.Context, runner Runner, initial string) AppModel {
	return AppModel{
		prompt:    NewPromptModel(),
		path:      NewPathPanelModel(),
		graph:     NewGraphPanelModel(),
		metrics:   NewMetricsPanelModel(),
		log:       NewLogPanelModel(500),
		statusBar: NewStatusBarModel(),
		runner:    runner,
		ctx:       ctx,
		initial:   strings.TrimSpace(initial),
		snap:      engine.Snapshot{Session: engine.Session{Status: engine.StatusIdle}},
		focus:     FocusPrompt,
	}
}

// submitMsg asks the model to start a session for an initial prompt.
type submitMsg struct{ content string }

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{TickCmd(tickInterval), textinput.Blink}
	if m.initial != "" {
		content := m.initial
		cmds = append(cmds, func() tea.Msg { return submitMsg{content: content} })
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)
		return m, nil

	case TickMsg:
		m.statusBar.SetNow(msg.Time)
		m.path.AdvanceSpinner()
		m.graph.AdvanceSpinner()
		return m, TickCmd(tickInterval)

	case submitMsg:
		m.runner.Submit(m.ctx, msg.content)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *AppModel) applySnapshot(snap engine.Snapshot) {
	m.snap = snap
	m.path.SetPath(snap.Path, snap.Session.Status)
	m.graph.SetGraph(snap.Topology, nodeStatuses(snap))
	m.metrics.SetMetrics(snap.Metrics, snap.Path)
	m.log.SetEntries(snap.Trace)
	m.statusBar.SetSnapshot(snap)
}

// handleKeyMsg processes app-level shortcuts, then routes to the focused panel.
func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.runner.Abort()
		return m, tea.Quit
	case "ctrl+x":
		m.runner.Abort()
		return m, nil
	case "tab":
		m.focus = m.nextFocus()
		m.log.SetFocused(m.focus == FocusLog)
		return m, nil
	case "esc":
		m.focus = FocusPrompt
		m.log.SetFocused(false)
		return m, nil
	}

	if m.focus == FocusLog {
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}

	if msg.Type == tea.KeyEnter {
		if content := m.prompt.Value(); content != "" {
			m.runner.Submit(m.ctx, content)
			m.prompt.Reset()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m AppModel) nextFocus() FocusTarget {
	if m.focus == FocusPrompt {
		return FocusLog
	}
	return FocusPrompt
}

// View implements tea.Model.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.width < 60 || m.height < 20 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 60x20.", m.width, m.height)
	}

	m.layout()

	middle := lipgloss.JoinHorizontal(lipgloss.Top, m.graph.View(), m.metrics.View())

	var b strings.Builder
	b.WriteString(m.prompt.View())
	b.WriteString("\n")
	b.WriteString(m.path.View())
	b.WriteString("\n")
	b.WriteString(middle)
	b.WriteString("\n")
	b.WriteString(m.log.View())
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())
	return b.String()
}

// layout distributes the terminal among the panels.
func (m *AppModel) layout() {
	const (
		promptHeight    = 3
		pathHeight      = 4
		statusBarHeight = 1
	)
	rest := m.height - promptHeight - pathHeight - statusBarHeight
	middleHeight := max(rest*45/100, 5)
	logHeight := max(rest-middleHeight, 4)

	graphWidth := m.width * 45 / 100
	metricsWidth := m.width - graphWidth

	m.prompt.SetWidth(m.width)
	m.path.SetWidth(m.width)
	m.graph.SetSize(graphWidth, middleHeight)
	m.metrics.SetSize(metricsWidth, middleHeight)
	m.log.SetSize(m.width, logHeight)
	m.statusBar.SetWidth(m.width)
}

// Run starts the dashboard for ctrl and blocks until the user quits.
func Run(ctx context.Context, ctrl *engine.Controller, initial string) error {
	p := tea.NewProgram(NewAppModel(ctx, ctrl, initial), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge := NewSnapshotBridge(p.Send)
	unsubscribe := ctrl.Subscribe(bridge.Observe)
	defer func() {
		unsubscribe()
		bridge.Close()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
