// ABOUTME: Display helpers that unwrap JSON encoded inside string fields and pretty-print payloads.
// ABOUTME: Presentation only; nothing here feeds back into session state.
package present

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MaxDepth bounds how many nested levels DeepParse will descend.
const MaxDepth = 8

// DeepParse walks v and replaces every string holding a JSON object or
// array with its parsed form, recursively. Strings that are not JSON, or
// JSON scalars, are left alone so the result is idempotent.
func DeepParse(v any) any {
	return deepParse(v, 0)
}

func deepParse(v any, depth int) any {
	if depth >= MaxDepth {
		return v
	}
	switch t := v.(type) {
	case string:
		parsed, ok := parseContainer(t)
		if !ok {
			return t
		}
		return deepParse(parsed, depth+1)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepParse(val, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepParse(val, depth+1)
		}
		return out
	default:
		return v
	}
}

// parseContainer parses s only when it encodes an object or array.
func parseContainer(s string) (any, bool) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 2 {
		return nil, false
	}
	first, last := trimmed[0], trimmed[len(trimmed)-1]
	if !(first == '{' && last == '}') && !(first == '[' && last == ']') {
		return nil, false
	}
	var out any
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return nil, false
	}
	return out, true
}

// DeepParseRaw decodes raw and deep-parses it. Invalid JSON comes back as
// its original text.
func DeepParseRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return DeepParse(v)
}

// Pretty renders raw as indented JSON after deep-parsing nested strings.
// Payloads that are not JSON are returned unchanged.
func Pretty(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	v := DeepParseRaw(raw)
	if s, ok := v.(string); ok && !json.Valid(raw) {
		return s
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// Compact renders raw on one line after deep-parsing, truncated to max
// runes when max > 0.
func Compact(raw json.RawMessage, max int) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var s string
	if !json.Valid(raw) {
		s = string(raw)
	} else if out, err := json.Marshal(DeepParseRaw(raw)); err == nil {
		s = string(out)
	} else {
		s = string(raw)
	}
	if r := []rune(s); max > 0 && len(r) > max {
		return string(r[:max]) + "…"
	}
	return s
}
