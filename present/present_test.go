// ABOUTME: Tests for deep-parsing nested JSON strings and the pretty/compact renderers.
// ABOUTME: Covers idempotence, depth bounding, and non-JSON passthrough.
package present

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDeepParseUnwrapsNestedStrings(t *testing.T) {
	in := map[string]any{
		"result": `{"items":["a","b"],"inner":"{\"k\":1}"}`,
		"plain":  "hello",
		"num":    "42",
	}
	got := DeepParse(in)
	want := map[string]any{
		"result": map[string]any{
			"items": []any{"a", "b"},
			"inner": map[string]any{"k": float64(1)},
		},
		"plain": "hello",
		"num":   "42",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DeepParse = %#v\nwant %#v", got, want)
	}
}

func TestDeepParseIdempotent(t *testing.T) {
	in := []any{`[1,"{\"x\":\"[2]\"}"]`, "text", nil, true}
	once := DeepParse(in)
	twice := DeepParse(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent:\n%#v\n%#v", once, twice)
	}
}

func TestDeepParseLeavesMalformedJSON(t *testing.T) {
	if got := DeepParse(`{"unterminated": `); got != `{"unterminated": ` {
		t.Fatalf("got %#v", got)
	}
}

func TestDeepParseDepthBounded(t *testing.T) {
	s := `"leaf"`
	for i := 0; i < MaxDepth*2; i++ {
		b, _ := json.Marshal(map[string]any{"n": json.RawMessage(s)})
		enc, _ := json.Marshal(string(b))
		s = string(enc)
	}
	var top string
	if err := json.Unmarshal([]byte(s), &top); err != nil {
		t.Fatal(err)
	}
	// Must terminate and leave some level as an unparsed string.
	out, _ := json.Marshal(DeepParse(top))
	if !strings.Contains(string(out), `\"n\"`) {
		t.Fatalf("expected remaining encoded level beyond MaxDepth, got %s", out)
	}
}

func TestPretty(t *testing.T) {
	got := Pretty(json.RawMessage(`{"a":"{\"b\":true}"}`))
	want := "{\n  \"a\": {\n    \"b\": true\n  }\n}"
	if got != want {
		t.Fatalf("Pretty =\n%s\nwant\n%s", got, want)
	}
	if got := Pretty(json.RawMessage(`not json`)); got != "not json" {
		t.Errorf("Pretty(non-json) = %q", got)
	}
	if got := Pretty(nil); got != "" {
		t.Errorf("Pretty(nil) = %q", got)
	}
}

func TestCompactTruncates(t *testing.T) {
	got := Compact(json.RawMessage(`{"query":"streaming ndjson"}`), 10)
	if got != `{"query":"…` {
		t.Fatalf("Compact = %q", got)
	}
	if got := Compact(json.RawMessage(`"{\"a\":1}"`), 0); got != `{"a":1}` {
		t.Errorf("Compact nested = %q", got)
	}
}
