// Package sqlitestore provides SQLite-based persistence for the tool-call journal.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nayeemcharx/discord-mcp-toolkit/persistence"
)

// SQLiteStore implements persistence.Journal using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ persistence.Journal = (*SQLiteStore)(nil)

// New creates a new SQLite-based journal at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS calls (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL,
    tool        TEXT NOT NULL,
    arguments   TEXT NOT NULL,
    result      TEXT NOT NULL,
    success     BOOLEAN NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    duration_ns INTEGER NOT NULL DEFAULT 0,
    timestamp   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_calls_session ON calls(session_id);
CREATE INDEX IF NOT EXISTS idx_calls_timestamp ON calls(session_id, timestamp);
`
	_, err := s.db.Exec(schema)
	return err
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (persistence.Entry, error) {
	var (
		e          persistence.Entry
		args, res  string
		durationNs int64
		unixNano   int64
	)
	if err := row.Scan(&e.ID, &e.Tool, &args, &res, &e.Success, &e.Error, &durationNs, &unixNano); err != nil {
		return persistence.Entry{}, err
	}
	e.Arguments = json.RawMessage(args)
	e.Result = json.RawMessage(res)
	e.Duration = time.Duration(durationNs)
	e.Timestamp = time.Unix(0, unixNano).UTC()
	return e, nil
}

// AddEntry implements persistence.Journal.
func (s *SQLiteStore) AddEntry(sessionID string, entry persistence.Entry) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO calls (session_id, tool, arguments, result, success, error, duration_ns, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, entry.Tool, rawText(entry.Arguments), rawText(entry.Result), entry.Success, entry.Error, int64(entry.Duration), entry.Timestamp.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get insert id: %w", err)
	}

	return id, nil
}

// GetEntry implements persistence.Journal.
func (s *SQLiteStore) GetEntry(sessionID string, id int64) (persistence.Entry, error) {
	row := s.db.QueryRow(
		`SELECT id, tool, arguments, result, success, error, duration_ns, timestamp FROM calls WHERE session_id = ? AND id = ?`,
		sessionID, id,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Entry{}, fmt.Errorf("entry %d: %w", id, persistence.ErrEntryNotFound)
		}
		return persistence.Entry{}, fmt.Errorf("query entry: %w", err)
	}
	return e, nil
}

// GetEntries implements persistence.Journal.
func (s *SQLiteStore) GetEntries(sessionID string) ([]persistence.Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, tool, arguments, result, success, error, duration_ns, timestamp FROM calls WHERE session_id = ? ORDER BY timestamp, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []persistence.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// ListSessions implements persistence.Journal.
func (s *SQLiteStore) ListSessions() ([]persistence.Session, error) {
	rows, err := s.db.Query(`
SELECT session_id,
       COUNT(*),
       SUM(CASE WHEN success THEN 0 ELSE 1 END),
       MIN(timestamp),
       MAX(timestamp)
FROM calls
GROUP BY session_id
ORDER BY MIN(timestamp), session_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		var (
			sess          persistence.Session
			first, latest int64
		)
		if err := rows.Scan(&sess.ID, &sess.Calls, &sess.Failures, &first, &latest); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Started = time.Unix(0, first).UTC()
		sess.LastCall = time.Unix(0, latest).UTC()
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// DeleteSession implements persistence.Journal.
func (s *SQLiteStore) DeleteSession(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM calls WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	return nil
}

// Close implements persistence.Journal.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
