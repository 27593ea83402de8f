// ABOUTME: SQLite-backed index of finished sessions for the history listing.
// ABOUTME: One row per session, upserted when the session reaches a terminal state.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/2389-research/tickertape/engine"
)

// ErrNotFound is returned when a session id has no row.
var ErrNotFound = errors.New("session not found")

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SessionRecord is the persisted summary of one session.
type SessionRecord struct {
	SessionID  string        `json:"session_id"`
	Prompt     string        `json:"prompt"`
	Status     engine.Status `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	LatencyMS  int64         `json:"latency_ms"`
	Error      string        `json:"error,omitempty"`
	Path       []string      `json:"path"`
	EventCount int           `json:"event_count"`
}

// RecordFromSnapshot summarizes a terminal snapshot.
func RecordFromSnapshot(snap engine.Snapshot) SessionRecord {
	return SessionRecord{
		SessionID:  snap.Session.ID,
		Prompt:     snap.Prompt,
		Status:     snap.Session.Status,
		StartedAt:  snap.Session.StartedAt,
		FinishedAt: snap.FinishedAt,
		LatencyMS:  snap.FinalLatency.Milliseconds(),
		Error:      snap.Error,
		Path:       snap.Path,
		EventCount: len(snap.Trace),
	}
}

// SqliteIndex stores session summaries. Trace entries live in the JSONL
// archive; this index only answers list and lookup queries.
type SqliteIndex struct {
	db *sql.DB
}

// OpenSqlite opens or creates the index database at path.
func OpenSqlite(path string) (*SqliteIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			latency_ms INTEGER NOT NULL,
			error TEXT NOT NULL,
			path_json TEXT NOT NULL,
			event_count INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS sessions_started_at ON sessions(started_at);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SqliteIndex{db: db}, nil
}

// Close closes the database.
func (idx *SqliteIndex) Close() error {
	return idx.db.Close()
}

// Upsert inserts or replaces the row for rec.SessionID.
func (idx *SqliteIndex) Upsert(rec SessionRecord) error {
	path := rec.Path
	if path == nil {
		path = []string{}
	}
	pathJSON, err := json.Marshal(path)
	if err != nil {
		return fmt.Errorf("marshal path: %w", err)
	}
	_, err = idx.db.Exec(
		`INSERT INTO sessions (session_id, prompt, status, started_at, finished_at, latency_ms, error, path_json, event_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			prompt = excluded.prompt,
			status = excluded.status,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			latency_ms = excluded.latency_ms,
			error = excluded.error,
			path_json = excluded.path_json,
			event_count = excluded.event_count`,
		rec.SessionID,
		rec.Prompt,
		string(rec.Status),
		rec.StartedAt.UTC().Format(timeLayout),
		rec.FinishedAt.UTC().Format(timeLayout),
		rec.LatencyMS,
		rec.Error,
		string(pathJSON),
		rec.EventCount,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

const selectColumns = `session_id, prompt, status, started_at, finished_at, latency_ms, error, path_json, event_count`

// Get returns the record for id, or ErrNotFound.
func (idx *SqliteIndex) Get(id string) (SessionRecord, error) {
	row := idx.db.QueryRow(`SELECT `+selectColumns+` FROM sessions WHERE session_id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (idx *SqliteIndex) List(limit int) ([]SessionRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM sessions ORDER BY started_at DESC, session_id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := idx.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (SessionRecord, error) {
	var (
		rec               SessionRecord
		status            string
		started, finished string
		pathJSON          string
	)
	if err := s.Scan(&rec.SessionID, &rec.Prompt, &status, &started, &finished,
		&rec.LatencyMS, &rec.Error, &pathJSON, &rec.EventCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionRecord{}, err
		}
		return SessionRecord{}, fmt.Errorf("scan session: %w", err)
	}
	rec.Status = engine.Status(status)
	var err error
	if rec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return SessionRecord{}, fmt.Errorf("parse started_at: %w", err)
	}
	if rec.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return SessionRecord{}, fmt.Errorf("parse finished_at: %w", err)
	}
	if err := json.Unmarshal([]byte(pathJSON), &rec.Path); err != nil {
		return SessionRecord{}, fmt.Errorf("parse path: %w", err)
	}
	return rec, nil
}
