// ABOUTME: Stateful incremental UTF-8 decoding for stream bodies, mirroring browser TextDecoder semantics.
// ABOUTME: Strips a leading BOM and replaces invalid sequences with U+FFFD while carrying partial runes across reads.
package transport

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type decodedBody struct {
	io.Reader
	closer io.Closer
}

func (d decodedBody) Close() error {
	return d.closer.Close()
}

// DecodeUTF8 wraps rc in an incremental decoder. A rune split across two
// underlying reads is held back until its remaining bytes arrive.
func DecodeUTF8(rc io.ReadCloser) io.ReadCloser {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return decodedBody{Reader: transform.NewReader(rc, dec), closer: rc}
}
