package mal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists the inputs that defined global names, so a session can be
// rebuilt by replaying them, plus a history of trace records.
type Store interface {
	AppendDefinition(session string, def Definition) error
	Definitions(session string) ([]Definition, error)
	AppendTrace(session string, rec TraceRecord) error
	Traces(session string, limit int) ([]TraceRecord, error)
	Sessions() ([]string, error)
	Clear(session string) error
	Close() error
}

// Definition is one logged input that bound global names. Kind is the error
// kind the input stopped with, empty when it completed; replay expects the
// same outcome.
type Definition struct {
	Source string
	Kind   string
}

// TraceRecord is the persisted form of a Trace. Values are stored printed.
type TraceRecord struct {
	Input     string   `json:"input"`
	Result    string   `json:"result,omitempty"`
	Error     string   `json:"error,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Defined   []string `json:"defined"`
	Timestamp string   `json:"timestamp"`
}

// Record converts a Trace for storage.
func (t *Trace) Record() TraceRecord {
	rec := TraceRecord{
		Input:     t.Input,
		Error:     t.Error,
		Defined:   t.Defined,
		Timestamp: t.Timestamp,
	}
	if t.OK() {
		rec.Result = t.Result.String()
	} else {
		rec.Kind = t.Kind.String()
	}
	if rec.Defined == nil {
		rec.Defined = []string{}
	}
	return rec
}

const schema = `
CREATE TABLE IF NOT EXISTS definitions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session    TEXT NOT NULL,
	source     TEXT NOT NULL,
	kind       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS definitions_session ON definitions(session, id);
CREATE TABLE IF NOT EXISTS traces (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session    TEXT NOT NULL,
	input      TEXT NOT NULL,
	result     TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	kind       TEXT NOT NULL DEFAULT '',
	defined    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS traces_session ON traces(session, id);
`

type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := ensureColumn(db, "definitions", "kind", "TEXT NOT NULL DEFAULT ''"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// ensureColumn adds a column missing from a database created by an older
// schema.
func ensureColumn(db *sql.DB, table, column, decl string) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl)); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (s *SQLiteStore) AppendDefinition(session string, def Definition) error {
	_, err := s.db.Exec(
		`INSERT INTO definitions (session, source, kind, created_at) VALUES (?, ?, ?, ?)`,
		session, def.Source, def.Kind, now())
	if err != nil {
		return fmt.Errorf("append definition: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Definitions(session string) ([]Definition, error) {
	rows, err := s.db.Query(`SELECT source, kind FROM definitions WHERE session = ? ORDER BY id`, session)
	if err != nil {
		return nil, fmt.Errorf("query definitions: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		var def Definition
		if err := rows.Scan(&def.Source, &def.Kind); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (s *SQLiteStore) AppendTrace(session string, rec TraceRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO traces (session, input, result, error, kind, defined, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session, rec.Input, rec.Result, rec.Error, rec.Kind, strings.Join(rec.Defined, " "), rec.Timestamp)
	if err != nil {
		return fmt.Errorf("append trace: %w", err)
	}
	return nil
}

// Traces returns the most recent limit records in chronological order; all of
// them when limit <= 0.
func (s *SQLiteStore) Traces(session string, limit int) ([]TraceRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT input, result, error, kind, defined, created_at FROM traces
		 WHERE session = ? ORDER BY id DESC LIMIT ?`, session, limit)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	var recs []TraceRecord
	for rows.Next() {
		var rec TraceRecord
		var defined string
		if err := rows.Scan(&rec.Input, &rec.Result, &rec.Error, &rec.Kind, &defined, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		rec.Defined = strings.Fields(defined)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// Sessions lists every session with at least one stored definition.
func (s *SQLiteStore) Sessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT session FROM definitions ORDER BY session`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Clear drops every definition and trace of one session in a single
// transaction.
func (s *SQLiteStore) Clear(session string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("clear: begin: %w", err)
	}
	for _, stmt := range []string{
		`DELETE FROM definitions WHERE session = ?`,
		`DELETE FROM traces WHERE session = ?`,
	} {
		if _, err := tx.Exec(stmt, session); err != nil {
			tx.Rollback()
			return fmt.Errorf("clear: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
