// ABOUTME: Tests for the dashboard panels, the snapshot bridge, and AppModel key handling.
// ABOUTME: Renders views as plain strings and drives the model with synthetic tea messages.
package tui

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/tickertape/engine"
	"github.com/2389-research/tickertape/stream"
)

func diamond() *stream.Graph {
	return &stream.Graph{
		Nodes: []stream.Node{
			{ID: "plan", Label: "Planner", Kind: "agent"},
			{ID: "search"},
			{ID: "read"},
			{ID: "write"},
		},
		Edges: []stream.Edge{
			{Source: "plan", Target: "search"},
			{Source: "plan", Target: "read"},
			{Source: "search", Target: "write"},
			{Source: "read", Target: "write"},
			{Source: "write", Target: "ghost"},
		},
	}
}

func TestTopologicalLevels(t *testing.T) {
	levels, cyclic := topologicalLevels(diamond())
	want := [][]string{{"plan"}, {"read", "search"}, {"write"}}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("levels = %v, want %v", levels, want)
	}
	if len(cyclic) != 0 {
		t.Errorf("cyclic = %v", cyclic)
	}
}

func TestTopologicalLevelsCycle(t *testing.T) {
	g := &stream.Graph{
		Nodes: []stream.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []stream.Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}, {Source: "c", Target: "b"}},
	}
	levels, cyclic := topologicalLevels(g)
	if !reflect.DeepEqual(levels, [][]string{{"a"}}) {
		t.Errorf("levels = %v", levels)
	}
	if !reflect.DeepEqual(cyclic, []string{"b", "c"}) {
		t.Errorf("cyclic = %v", cyclic)
	}
}

func TestNodeStatuses(t *testing.T) {
	snap := engine.Snapshot{
		Session: engine.Session{Status: engine.StatusRunning},
		Path:    []string{"plan", "search"},
		Active:  "search",
	}
	got := nodeStatuses(snap)
	if got["plan"] != NodeVisited || got["search"] != NodeActive {
		t.Errorf("running statuses = %v", got)
	}
	snap.Session.Status = engine.StatusErrored
	if nodeStatuses(snap)["search"] != NodeFailed {
		t.Error("errored active node should be failed")
	}
	snap.Session.Status = engine.StatusCompleted
	if nodeStatuses(snap)["search"] != NodeVisited {
		t.Error("completed active node should be visited")
	}
}

func TestGraphPanelView(t *testing.T) {
	m := NewGraphPanelModel()
	if !strings.Contains(m.View(), "(no topology yet)") {
		t.Error("empty panel should say no topology")
	}
	m.SetGraph(diamond(), map[string]NodeStatus{"plan": NodeVisited, "search": NodeActive})
	view := m.View()
	for _, want := range []string{"[*] Planner (agent)", "[~] search " + SpinnerFrames[0], "[ ] write", "--> search"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	m.AdvanceSpinner()
	if !strings.Contains(m.View(), SpinnerFrames[1]) {
		t.Error("spinner did not advance")
	}
}

func TestPathPanelView(t *testing.T) {
	m := NewPathPanelModel()
	if !strings.Contains(m.View(), "(no steps yet)") {
		t.Error("empty path view")
	}
	m.SetPath([]string{"a", "b", "a"}, engine.StatusCompleted)
	if !strings.Contains(m.View(), "a → b → a") {
		t.Errorf("path view = %s", m.View())
	}
}

func TestMetricsPanelOrderAndFormat(t *testing.T) {
	d, total := 1500.0, int64(15)
	metrics := map[string]engine.MetricsRecord{
		"zeta":   {Latencies: []float64{10, 30}},
		"search": {Duration: &d, TotalTokens: &total},
		"alpha":  {},
	}
	order := rowOrder(metrics, []string{"search", "missing", "search"})
	if !reflect.DeepEqual(order, []string{"search", "alpha", "zeta"}) {
		t.Errorf("order = %v", order)
	}

	row := formatMetricsRow("search", metrics["search"])
	if !strings.Contains(row, "1.50s") || !strings.Contains(row, "15") {
		t.Errorf("row = %q", row)
	}
	if row := formatMetricsRow("zeta", metrics["zeta"]); !strings.Contains(row, "20ms×2") {
		t.Errorf("latency row = %q", row)
	}
	if row := formatMetricsRow(engine.RunMetricsKey, metrics["search"]); !strings.HasPrefix(row, "(run) ") {
		t.Errorf("run-level row = %q", row)
	}

	m := NewMetricsPanelModel()
	m.SetMetrics(metrics, nil)
	if !strings.Contains(m.View(), "METRICS") || !strings.Contains(m.View(), "search") {
		t.Errorf("view = %s", m.View())
	}
}

func TestLogPanelFormatsEntries(t *testing.T) {
	entry := engine.TraceEntry{
		At:      time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   engine.LevelInfo,
		Type:    "tool_result",
		Tool:    "search",
		Message: "finished",
		Payload: json.RawMessage(`{"hits":"[1,2]"}`),
	}
	line := formatEntry(entry)
	for _, want := range []string{"15:04:05.000", "tool_result", "[search]", "finished", `{"hits":[1,2]}`} {
		if !strings.Contains(line, want) {
			t.Errorf("line missing %q: %s", want, line)
		}
	}

	m := NewLogPanelModel(2)
	m.SetSize(80, 10)
	m.SetEntries([]engine.TraceEntry{{Type: "one"}, {Type: "two"}, {Type: "three"}})
	if m.Len() != 2 {
		t.Errorf("len = %d, want 2", m.Len())
	}
	if view := m.View(); strings.Contains(view, "one") || !strings.Contains(view, "three") {
		t.Errorf("view = %s", view)
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0.0s"},
		{1234 * time.Millisecond, "1.2s"},
		{150 * time.Second, "2m30s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestStatusBarFrozenAfterTerminal(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewStatusBarModel()
	m.SetWidth(120)
	m.SetSnapshot(engine.Snapshot{
		Session:      engine.Session{ID: "01HZZZZZZZZZZZZZZZZZZZZZZZ", StartedAt: start, Status: engine.StatusErrored},
		FinalLatency: 2 * time.Second,
		Error:        "stream ended unexpectedly",
	})
	m.SetNow(start.Add(time.Hour))
	view := m.View()
	for _, want := range []string{"errored", "Elapsed: 2.0s", "stream ended unexpectedly"} {
		if !strings.Contains(view, want) {
			t.Errorf("status bar missing %q: %s", want, view)
		}
	}
}

func TestSnapshotBridgeCoalesces(t *testing.T) {
	var mu sync.Mutex
	var got []string
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	send := func(msg tea.Msg) {
		snap := msg.(SnapshotMsg).Snapshot
		mu.Lock()
		got = append(got, snap.Message)
		first := len(got) == 1
		mu.Unlock()
		if first {
			started <- struct{}{}
			<-release
		}
	}
	b := NewSnapshotBridge(send)

	b.Observe(engine.Snapshot{Message: "s1"})
	<-started
	b.Observe(engine.Snapshot{Message: "s2"})
	b.Observe(engine.Snapshot{Message: "s3"})
	close(release)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	b.Close()

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(got, []string{"s1", "s3"}) {
		t.Fatalf("delivered = %v, want [s1 s3]", got)
	}
}

type fakeRunner struct {
	submitted []string
	aborts    int
}

func (f *fakeRunner) Submit(_ context.Context, content string) engine.Session {
	f.submitted = append(f.submitted, content)
	return engine.Session{ID: "S", Status: engine.StatusRunning}
}

func (f *fakeRunner) Abort() bool {
	f.aborts++
	return true
}

func update(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(AppModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return am, cmd
}

func TestAppModelSubmitAndAbort(t *testing.T) {
	r := &fakeRunner{}
	m := NewAppModel(context.Background(), r, "")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("why is the sky blue")})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !reflect.DeepEqual(r.submitted, []string{"why is the sky blue"}) {
		t.Fatalf("submitted = %v", r.submitted)
	}
	if m.prompt.Value() != "" {
		t.Errorf("prompt not cleared: %q", m.prompt.Value())
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(r.submitted) != 1 {
		t.Error("empty prompt was submitted")
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	if r.aborts != 1 || cmd != nil {
		t.Errorf("ctrl+x aborts=%d cmd=%v", r.aborts, cmd)
	}

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if r.aborts != 2 {
		t.Errorf("ctrl+c should abort, aborts=%d", r.aborts)
	}
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c cmd is not tea.Quit")
	}
}

func TestAppModelInitialPrompt(t *testing.T) {
	r := &fakeRunner{}
	m := NewAppModel(context.Background(), r, "  first question ")
	m, _ = update(t, m, submitMsg{content: m.initial})
	if !reflect.DeepEqual(r.submitted, []string{"first question"}) {
		t.Fatalf("submitted = %v", r.submitted)
	}
}

func TestAppModelFocusRoutesKeys(t *testing.T) {
	r := &fakeRunner{}
	m := NewAppModel(context.Background(), r, "")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != FocusLog || !m.log.IsFocused() {
		t.Fatalf("focus = %d", m.focus)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.prompt.Value() != "" {
		t.Error("keys leaked into prompt while log focused")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.focus != FocusPrompt || m.log.IsFocused() {
		t.Error("esc should return focus to prompt")
	}
}

func TestAppModelRendersSnapshot(t *testing.T) {
	m := NewAppModel(context.Background(), &fakeRunner{}, "")
	if m.View() != "Initializing..." {
		t.Errorf("view before size = %q", m.View())
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})
	if !strings.Contains(m.View(), "Terminal too small") {
		t.Error("expected too-small message")
	}

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, SnapshotMsg{Snapshot: engine.Snapshot{
		Session:  engine.Session{ID: "01ABCDEFGHJKMNPQRSTVWXYZ00", Status: engine.StatusRunning, StartedAt: time.Now()},
		Path:     []string{"plan", "search"},
		Active:   "search",
		Topology: diamond(),
		Metrics:  map[string]engine.MetricsRecord{"search": {Latencies: []float64{5}}},
		Trace:    []engine.TraceEntry{{Level: engine.LevelInfo, Type: "status", Message: "planning"}},
		Message:  "planning",
	}})
	view := m.View()
	for _, want := range []string{"PATH", "plan → search", "TOPOLOGY (4 nodes, 5 edges)", "METRICS", "TRACE LOG", "running", "planning"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	_, cmd := update(t, m, TickMsg{Time: time.Now()})
	if cmd == nil {
		t.Error("tick should schedule another tick")
	}
}
