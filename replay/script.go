// ABOUTME: Recorded NDJSON scripts that the mock orchestrator replays to clients.
// ABOUTME: A script is the ordered list of non-blank lines from a capture file.
package replay

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmptyScript is returned when a script has no lines to replay.
var ErrEmptyScript = errors.New("replay script has no events")

// Script is an ordered sequence of raw event lines, without newlines.
type Script struct {
	Lines []string
}

// ParseScript reads r line by line, dropping blank lines. Lines are kept
// verbatim; malformed JSON is replayed as-is so clients see what the
// capture contained.
func ParseScript(r io.Reader) (Script, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var s Script
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.Lines = append(s.Lines, line)
	}
	if err := sc.Err(); err != nil {
		return Script{}, fmt.Errorf("reading script: %w", err)
	}
	if len(s.Lines) == 0 {
		return Script{}, ErrEmptyScript
	}
	return s, nil
}

// LoadScript parses the script file at path.
func LoadScript(path string) (Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return Script{}, fmt.Errorf("opening script: %w", err)
	}
	defer f.Close()
	return ParseScript(f)
}

// Bytes returns the script as a newline-terminated NDJSON payload.
func (s Script) Bytes() []byte {
	var buf bytes.Buffer
	for _, line := range s.Lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
