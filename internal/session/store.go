// Package session persists loaded records, their group labels, the settings
// in force and any computed output tables under a name, so an analysis can
// be reopened later.
package session

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/settings"
	"github.com/harrison/fedviz/internal/table"
)

// LastUsed is the reserved name for the most recent working session.
const LastUsed = "LAST_USED"

// ErrNotFound is returned when no session has the requested name.
var ErrNotFound = errors.New("session not found")

// Output is a computed table kept with a session.
type Output struct {
	Name   string
	Kind   string
	Params map[string]string
	Table  *table.Table
}

// Session is a named snapshot of the working state.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Records   []*record.Record
	Outputs   []Output
	Settings  *settings.Settings
}

// Summary describes a stored session without its payload.
type Summary struct {
	ID        string
	Name      string
	Records   int
	Outputs   int
	UpdatedAt time.Time
}

// Store manages the SQLite database of saved sessions.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the session database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	return openAndInitStore(dbPath)
}

func openAndInitStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	// busy_timeout must be first so the rest wait on locks
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry retries stmt with exponential backoff while the database is locked.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save writes sess under sess.Name, replacing any session of the same name.
// ID and timestamps are filled in on sess.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if strings.TrimSpace(sess.Name) == "" {
		return fmt.Errorf("session name is required")
	}

	var settingsText sql.NullString
	if sess.Settings != nil {
		var buf bytes.Buffer
		if err := sess.Settings.WriteCSV(&buf); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		settingsText = sql.NullString{String: buf.String(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	var created time.Time
	err = tx.QueryRowContext(ctx, `SELECT id, created_at FROM sessions WHERE name = ?`, sess.Name).Scan(&existingID, &created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existingID = uuid.NewString()
		created = time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, name, settings, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			existingID, sess.Name, settingsText, created, created); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	case err != nil:
		return fmt.Errorf("query session: %w", err)
	default:
		if err := deleteChildren(ctx, tx, existingID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET settings = ?, updated_at = ? WHERE id = ?`,
			settingsText, time.Now().UTC(), existingID); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
	}

	for i, rec := range sess.Records {
		data, err := encodeRecord(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", rec.Basename, err)
		}
		labels, err := json.Marshal(rec.Groups().Labels())
		if err != nil {
			return fmt.Errorf("encode groups for %s: %w", rec.Basename, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_records (session_id, position, record_id, basename, path, groups, data) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			existingID, i, rec.ID, rec.Basename, rec.Path, string(labels), data); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.Basename, err)
		}
	}

	for i, out := range sess.Outputs {
		if out.Table == nil {
			return fmt.Errorf("output %s has no table", out.Name)
		}
		params := out.Params
		if params == nil {
			params = map[string]string{}
		}
		paramJSON, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode params for %s: %w", out.Name, err)
		}
		tableJSON, err := json.Marshal(out.Table)
		if err != nil {
			return fmt.Errorf("encode table %s: %w", out.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_outputs (session_id, position, name, kind, params, data) VALUES (?, ?, ?, ?, ?, ?)`,
			existingID, i, out.Name, out.Kind, string(paramJSON), string(tableJSON)); err != nil {
			return fmt.Errorf("insert output %s: %w", out.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	sess.ID = existingID
	sess.CreatedAt = created
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

// Load reads the named session. It returns ErrNotFound if none exists.
func (s *Store) Load(ctx context.Context, name string) (*Session, error) {
	sess := &Session{Name: name}
	var settingsText sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, settings, created_at, updated_at FROM sessions WHERE name = ?`, name).
		Scan(&sess.ID, &settingsText, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if settingsText.Valid {
		st, err := settings.ReadCSV(strings.NewReader(settingsText.String))
		if err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
		sess.Settings = st
	}

	if sess.Records, err = s.loadRecords(ctx, sess.ID); err != nil {
		return nil, err
	}
	if sess.Outputs, err = s.loadOutputs(ctx, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) loadRecords(ctx context.Context, id string) ([]*record.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT basename, groups, data FROM session_records WHERE session_id = ? ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []*record.Record
	for rows.Next() {
		var basename, groupsJSON string
		var data []byte
		if err := rows.Scan(&basename, &groupsJSON, &data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", basename, err)
		}
		var labels []string
		if err := json.Unmarshal([]byte(groupsJSON), &labels); err != nil {
			return nil, fmt.Errorf("decode groups for %s: %w", basename, err)
		}
		rec.SetGroups(record.NewMembership(labels...))
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) loadOutputs(ctx context.Context, id string) ([]Output, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, kind, params, data FROM session_outputs WHERE session_id = ? ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer rows.Close()

	var outputs []Output
	for rows.Next() {
		var out Output
		var params, data string
		if err := rows.Scan(&out.Name, &out.Kind, &params, &data); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &out.Params); err != nil {
			return nil, fmt.Errorf("decode params for %s: %w", out.Name, err)
		}
		out.Table = &table.Table{}
		if err := json.Unmarshal([]byte(data), out.Table); err != nil {
			return nil, fmt.Errorf("decode table %s: %w", out.Name, err)
		}
		outputs = append(outputs, out)
	}
	return outputs, rows.Err()
}

// List returns stored sessions, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT s.id, s.name, s.updated_at,
       (SELECT COUNT(*) FROM session_records r WHERE r.session_id = s.id),
       (SELECT COUNT(*) FROM session_outputs o WHERE o.session_id = s.id)
FROM sessions s
ORDER BY s.updated_at DESC, s.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.UpdatedAt, &sum.Records, &sum.Outputs); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the named session. It returns ErrNotFound if none exists.
func (s *Store) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query session: %w", err)
	}
	if err := deleteChildren(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return tx.Commit()
}

func deleteChildren(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_records WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_outputs WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete outputs: %w", err)
	}
	return nil
}

func encodeRecord(rec *record.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*record.Record, error) {
	rec := &record.Record{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
