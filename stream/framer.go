// ABOUTME: Incremental newline framer that turns arbitrary byte chunks into complete text lines.
// ABOUTME: Carries the incomplete tail across chunks and bounds line length to survive adversarial input.
package stream

import (
	"bytes"
	"errors"
	"strings"
)

// DefaultMaxLineBytes is the line-length cap used when a Framer is created with max <= 0.
const DefaultMaxLineBytes = 1 << 20

// ErrLineTooLong is reported in place of a line that exceeded the framer's cap.
var ErrLineTooLong = errors.New("line exceeds maximum length")

// Frame is one framing result: either a complete line or a framing error
// occupying that line's position in the stream.
type Frame struct {
	Text string
	Err  error
}

// Framer splits a byte stream on '\n'. Splitting happens on raw bytes, so a
// multi-byte UTF-8 sequence that straddles two chunks is always reassembled
// before the line is converted to a string.
type Framer struct {
	buf        []byte
	max        int
	discarding bool // inside an over-long line, dropping bytes until '\n'
}

// NewFramer returns a framer that rejects lines longer than maxLine bytes.
func NewFramer(maxLine int) *Framer {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	return &Framer{max: maxLine}
}

// Feed appends chunk and returns every line it completed, in order. The final
// fragment (which may be empty) is retained for the next call.
func (f *Framer) Feed(chunk []byte) []Frame {
	var out []Frame
	for len(chunk) > 0 {
		idx := bytes.IndexByte(chunk, '\n')
		if idx < 0 {
			out = f.appendPartial(out, chunk)
			break
		}

		part := chunk[:idx]
		chunk = chunk[idx+1:]

		if f.discarding {
			f.discarding = false
			continue
		}
		if len(f.buf)+len(part) > f.max {
			f.buf = f.buf[:0]
			out = append(out, Frame{Err: ErrLineTooLong})
			continue
		}

		var line string
		if len(f.buf) == 0 {
			line = string(part)
		} else {
			f.buf = append(f.buf, part...)
			line = string(f.buf)
			f.buf = f.buf[:0]
		}
		out = append(out, Frame{Text: line})
	}
	return out
}

// appendPartial buffers a fragment with no newline, switching to discard mode
// the moment the pending line grows past the cap.
func (f *Framer) appendPartial(out []Frame, part []byte) []Frame {
	if f.discarding {
		return out
	}
	if len(f.buf)+len(part) > f.max {
		f.buf = f.buf[:0]
		f.discarding = true
		return append(out, Frame{Err: ErrLineTooLong})
	}
	f.buf = append(f.buf, part...)
	return out
}

// Flush ends the stream. A residual fragment that is not blank is emitted as a
// final line, for servers that omit the trailing newline.
func (f *Framer) Flush() []Frame {
	rest := f.buf
	f.buf = nil
	f.discarding = false
	if len(rest) == 0 || strings.TrimSpace(string(rest)) == "" {
		return nil
	}
	return []Frame{{Text: string(rest)}}
}

// Buffered reports how many bytes of an incomplete line are being held.
func (f *Framer) Buffered() int {
	return len(f.buf)
}
