// ABOUTME: MetricsAggregator accumulates per-node duration, token counts, and latency samples.
// ABOUTME: Merges are non-destructive: scalars overwrite field by field, latencies append.
package engine

import "github.com/2389-research/tickertape/stream"

// MetricsRecord is the accumulated metrics for one node. Nil scalars have
// never been reported.
type MetricsRecord struct {
	Duration         *float64  `json:"duration,omitempty"`
	PromptTokens     *int64    `json:"prompt_tokens,omitempty"`
	CompletionTokens *int64    `json:"completion_tokens,omitempty"`
	TotalTokens      *int64    `json:"total_tokens,omitempty"`
	Latencies        []float64 `json:"latencies"`
}

func (r MetricsRecord) clone() MetricsRecord {
	out := MetricsRecord{
		Duration:         copyFloat(r.Duration),
		PromptTokens:     copyInt(r.PromptTokens),
		CompletionTokens: copyInt(r.CompletionTokens),
		TotalTokens:      copyInt(r.TotalTokens),
	}
	if len(r.Latencies) > 0 {
		out.Latencies = append([]float64(nil), r.Latencies...)
	}
	return out
}

// RunMetricsKey is the record that holds metrics reported without a node id.
const RunMetricsKey = "_run"

// MetricsAggregator is keyed by node id.
type MetricsAggregator struct {
	records map[string]*MetricsRecord
}

func (m *MetricsAggregator) record(node string) *MetricsRecord {
	if m.records == nil {
		m.records = make(map[string]*MetricsRecord)
	}
	rec, ok := m.records[node]
	if !ok {
		rec = &MetricsRecord{}
		m.records[node] = rec
	}
	return rec
}

// OnMetrics merges a partial record into node's stored record.
func (m *MetricsAggregator) OnMetrics(node string, partial stream.Metrics) {
	rec := m.record(node)
	if partial.Duration != nil {
		rec.Duration = copyFloat(partial.Duration)
	}
	if partial.PromptTokens != nil {
		rec.PromptTokens = copyInt(partial.PromptTokens)
	}
	if partial.CompletionTokens != nil {
		rec.CompletionTokens = copyInt(partial.CompletionTokens)
	}
	if partial.TotalTokens != nil {
		rec.TotalTokens = copyInt(partial.TotalTokens)
	}
	if len(partial.Latencies) > 0 {
		rec.Latencies = append(rec.Latencies, partial.Latencies...)
	}
}

// OnDuration sets node's duration.
func (m *MetricsAggregator) OnDuration(node string, d float64) {
	m.OnMetrics(node, stream.Metrics{Duration: &d})
}

// OnLatency appends one latency sample for node.
func (m *MetricsAggregator) OnLatency(node string, d float64) {
	rec := m.record(node)
	rec.Latencies = append(rec.Latencies, d)
}

// All returns a deep copy of every record.
func (m *MetricsAggregator) All() map[string]MetricsRecord {
	out := make(map[string]MetricsRecord, len(m.records))
	for node, rec := range m.records {
		out[node] = rec.clone()
	}
	return out
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
