// ABOUTME: Append-only JSONL archive of trace entries, one file per session.
// ABOUTME: Replay tolerates a truncated final line left by a crash mid-write.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389-research/tickertape/engine"
)

// JsonlArchive stores each session's trace log under dir/<session_id>.jsonl.
type JsonlArchive struct {
	dir string
}

// OpenJsonlArchive creates dir if needed.
func OpenJsonlArchive(dir string) (*JsonlArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &JsonlArchive{dir: dir}, nil
}

// Path returns the archive file for sessionID.
func (a *JsonlArchive) Path(sessionID string) string {
	return filepath.Join(a.dir, sessionID+".jsonl")
}

// Append writes entries as JSON lines and fsyncs the file.
func (a *JsonlArchive) Append(sessionID string, entries []engine.TraceEntry) error {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) {
		return fmt.Errorf("invalid session id %q", sessionID)
	}
	file, err := os.OpenFile(a.Path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open archive file: %w", err)
	}
	defer func() { _ = file.Close() }()

	w := bufio.NewWriter(file)
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entry %d: %w", e.Seq, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write entry line: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	return nil
}

// Replay reads a session's entries in order. A final line that fails to
// parse is treated as a torn write and skipped; a bad line anywhere else is
// an error.
func (a *JsonlArchive) Replay(sessionID string) ([]engine.TraceEntry, error) {
	file, err := os.Open(a.Path(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("open archive for replay: %w", err)
	}
	defer func() { _ = file.Close() }()

	var (
		entries []engine.TraceEntry
		pending error
		lineNum int
	)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if pending != nil {
			return nil, pending
		}
		var e engine.TraceEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			pending = fmt.Errorf("parse line %d: %w", lineNum, err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan archive: %w", err)
	}
	return entries, nil
}
