// ABOUTME: Per-node metrics table: duration, token counts, and latency samples.
// ABOUTME: Rows follow the execution path first, then any other reported nodes alphabetically.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/2389-research/tickertape/engine"
)

// MetricsPanelModel renders accumulated metrics.
type MetricsPanelModel struct {
	metrics map[string]engine.MetricsRecord
	order   []string
	width   int
	height  int
}

// NewMetricsPanelModel creates an empty metrics panel.
func NewMetricsPanelModel() MetricsPanelModel {
	return MetricsPanelModel{metrics: map[string]engine.MetricsRecord{}}
}

// SetMetrics replaces the table contents, ordered by path.
func (m *MetricsPanelModel) SetMetrics(metrics map[string]engine.MetricsRecord, path []string) {
	m.metrics = metrics
	m.order = rowOrder(metrics, path)
}

// SetSize sets the available dimensions.
func (m *MetricsPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// View renders the panel.
func (m MetricsPanelModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("METRICS"))
	b.WriteString("\n")
	if len(m.order) == 0 {
		b.WriteString(PendingStyle.Render("(no metrics yet)"))
	} else {
		b.WriteString(LabelStyle.Render(fmt.Sprintf("%-16s %9s %8s %8s %8s %10s", "node", "duration", "prompt", "compl", "total", "latency")))
		for _, id := range m.order {
			b.WriteString("\n")
			b.WriteString(ValueStyle.Render(formatMetricsRow(id, m.metrics[id])))
		}
	}

	style := BorderStyle
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	if m.height > 2 {
		style = style.Height(m.height - 2)
	}
	return style.Render(b.String())
}

func rowOrder(metrics map[string]engine.MetricsRecord, path []string) []string {
	seen := make(map[string]bool, len(metrics))
	var order []string
	for _, id := range path {
		if _, ok := metrics[id]; ok && !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	var rest []string
	for id := range metrics {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func formatMetricsRow(id string, rec engine.MetricsRecord) string {
	if id == engine.RunMetricsKey {
		id = "(run)"
	}
	if len(id) > 16 {
		id = id[:15] + "…"
	}
	duration := "-"
	if rec.Duration != nil {
		duration = formatMillis(*rec.Duration)
	}
	latency := "-"
	if n := len(rec.Latencies); n > 0 {
		var sum float64
		for _, l := range rec.Latencies {
			sum += l
		}
		latency = fmt.Sprintf("%s×%d", formatMillis(sum/float64(n)), n)
	}
	return fmt.Sprintf("%-16s %9s %8s %8s %8s %10s",
		id, duration, formatCount(rec.PromptTokens), formatCount(rec.CompletionTokens), formatCount(rec.TotalTokens), latency)
}

func formatCount(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

// formatMillis renders a backend duration reported in milliseconds.
func formatMillis(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	return fmt.Sprintf("%.0fms", ms)
}
