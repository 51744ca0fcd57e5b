// Package index keeps a SQLite catalog of session logs and their events,
// mirrored into an FTS5 table for search.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when a session key is not in the catalog.
var ErrSessionNotFound = errors.New("session not found")

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS sessions (
    session_key  TEXT PRIMARY KEY,
    session_id   TEXT NOT NULL DEFAULT '',
    file_path    TEXT NOT NULL,
    project_key  TEXT NOT NULL DEFAULT '',
    project_name TEXT NOT NULL DEFAULT '',
    cwd          TEXT NOT NULL DEFAULT '',
    started_at   TEXT NOT NULL DEFAULT '',
    updated_at   TEXT NOT NULL DEFAULT '',
    summary      TEXT NOT NULL DEFAULT '',
    prompts      INTEGER NOT NULL DEFAULT 0,
    mtime        INTEGER NOT NULL DEFAULT 0,
    size         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
    session_key TEXT NOT NULL,
    event_index INTEGER NOT NULL,
    ts          TEXT NOT NULL DEFAULT '',
    role        TEXT NOT NULL,
    kind        TEXT NOT NULL,
    text        TEXT NOT NULL,
    page        INTEGER NOT NULL DEFAULT 0,
    anchor      TEXT NOT NULL DEFAULT '',
    line_number INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (session_key, event_index)
);

CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
    text,
    content=events,
    content_rowid=rowid,
    tokenize='unicode61'
);

-- triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS events_ai AFTER INSERT ON events BEGIN
    INSERT INTO events_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TRIGGER IF NOT EXISTS events_ad AFTER DELETE ON events BEGIN
    INSERT INTO events_fts(events_fts, rowid, text) VALUES('delete', old.rowid, old.text);
END;

CREATE TRIGGER IF NOT EXISTS events_au AFTER UPDATE ON events BEGIN
    INSERT INTO events_fts(events_fts, rowid, text) VALUES('delete', old.rowid, old.text);
    INSERT INTO events_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrateSchemaVersion(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return d, nil
}

// schemaVersion should be bumped whenever event extraction changes to force
// a full re-index.
const schemaVersion = "1"

func (d *DB) migrateSchemaVersion() error {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err == nil && ver == schemaVersion {
		return nil
	}
	// force re-index by resetting all session mtime/size to 0
	if _, err := d.db.Exec("UPDATE sessions SET mtime = 0, size = 0"); err != nil {
		return err
	}
	_, err = d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

type SessionInfo struct {
	Mtime int64
	Size  int64
}

func (d *DB) GetSessionInfo(sessionKey string) (*SessionInfo, error) {
	var info SessionInfo
	err := d.db.QueryRow(
		"SELECT mtime, size FROM sessions WHERE session_key = ?",
		sessionKey,
	).Scan(&info.Mtime, &info.Size)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (d *DB) AllSessionKeys() (map[string]struct{}, error) {
	rows, err := d.db.Query("SELECT session_key FROM sessions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

func (d *DB) DeleteSession(sessionKey string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM events WHERE session_key = ?", sessionKey); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE session_key = ?", sessionKey); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) SessionCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}

func (d *DB) EventCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&n)
	return n, err
}

// FTSCount returns the number of rows in the full-text mirror.
func (d *DB) FTSCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM events_fts").Scan(&n)
	return n, err
}

type SessionRow struct {
	SessionKey  string
	SessionID   string
	FilePath    string
	ProjectKey  string
	ProjectName string
	Cwd         string
	StartedAt   string
	UpdatedAt   string
	Summary     string
	Prompts     int
	Mtime       int64
}

const sessionColumns = "session_key, session_id, file_path, project_key, project_name, cwd, started_at, updated_at, summary, prompts, mtime"

func scanSession(sc interface{ Scan(...any) error }) (SessionRow, error) {
	var s SessionRow
	err := sc.Scan(&s.SessionKey, &s.SessionID, &s.FilePath, &s.ProjectKey, &s.ProjectName,
		&s.Cwd, &s.StartedAt, &s.UpdatedAt, &s.Summary, &s.Prompts, &s.Mtime)
	return s, err
}

func (d *DB) GetSessionByKey(sessionKey string) (*SessionRow, error) {
	s, err := scanSession(d.db.QueryRow(
		"SELECT "+sessionColumns+" FROM sessions WHERE session_key = ?",
		sessionKey,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionKey)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RecentSessions returns up to limit sessions that have a summary, most
// recently modified first.
func (d *DB) RecentSessions(limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.Query(
		"SELECT "+sessionColumns+" FROM sessions WHERE summary != ? ORDER BY mtime DESC, session_key LIMIT ?",
		parse.NoSummary, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type EventRow struct {
	SessionKey string
	EventIndex int
	Ts         string
	Role       string
	Kind       string
	Text       string
	Page       int
	Anchor     string
	LineNumber int
}

const eventColumns = "session_key, event_index, ts, role, kind, text, page, anchor, line_number"

func scanEvent(sc interface{ Scan(...any) error }) (EventRow, error) {
	var e EventRow
	err := sc.Scan(&e.SessionKey, &e.EventIndex, &e.Ts, &e.Role, &e.Kind, &e.Text, &e.Page, &e.Anchor, &e.LineNumber)
	return e, err
}

func (d *DB) GetEvents(sessionKey string) ([]EventRow, error) {
	rows, err := d.db.Query(
		"SELECT "+eventColumns+" FROM events WHERE session_key = ? ORDER BY event_index",
		sessionKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEventsWindow returns a window of events around a hit event.
// It only loads the necessary rows from the database instead of all events.
// startPos is the number of events before the returned window.
// totalCount is the total number of events in the session.
func (d *DB) GetEventsWindow(sessionKey string, hitIndex, context int) (events []EventRow, hitIdx int, startPos int, totalCount int, err error) {
	err = d.db.QueryRow(
		"SELECT COUNT(*) FROM events WHERE session_key = ?", sessionKey,
	).Scan(&totalCount)
	if err != nil {
		return nil, -1, 0, 0, err
	}

	// find the row_number (0-based position) of the hit event
	hitPos := -1
	if hitIndex >= 0 {
		err = d.db.QueryRow(`
			SELECT pos FROM (
				SELECT event_index, ROW_NUMBER() OVER (ORDER BY event_index) - 1 AS pos
				FROM events WHERE session_key = ?
			) WHERE event_index = ?`,
			sessionKey, hitIndex,
		).Scan(&hitPos)
		if err == sql.ErrNoRows {
			hitPos = -1
			err = nil
		} else if err != nil {
			return nil, -1, 0, 0, err
		}
	}

	startPos = 0
	limit := totalCount
	if hitPos >= 0 {
		startPos = max(hitPos-context, 0)
		endPos := min(hitPos+context+1, totalCount)
		limit = endPos - startPos
	}

	rows, err := d.db.Query(
		"SELECT "+eventColumns+" FROM events WHERE session_key = ? ORDER BY event_index LIMIT ? OFFSET ?",
		sessionKey, limit, startPos,
	)
	if err != nil {
		return nil, -1, 0, 0, err
	}
	defer rows.Close()

	localHitIdx := -1
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, -1, 0, 0, err
		}
		if e.EventIndex == hitIndex {
			localHitIdx = len(events)
		}
		events = append(events, e)
	}
	return events, localHitIdx, startPos, totalCount, rows.Err()
}

// LineOf returns the source line of an event, or 1 when unknown.
func (d *DB) LineOf(sessionKey string, eventIndex int) int {
	var line int
	err := d.db.QueryRow(
		"SELECT line_number FROM events WHERE session_key = ? AND event_index = ?",
		sessionKey, eventIndex,
	).Scan(&line)
	if err != nil || line < 1 {
		return 1
	}
	return line
}
