// Package sqlite provides a SQLite-backed journal store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pushpipe/pushpipe/pkg/journal"
)

const schema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id   TEXT NOT NULL,
	event_type TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL,
	at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_entries_event_id ON journal_entries (event_id);
`

// Store implements journal.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (and migrates) a SQLite-backed journal.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	// SQLite-specific pragmas
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Append records an entry and returns it with its assigned sequence number.
func (s *Store) Append(ctx context.Context, entry *journal.Entry) (*journal.Entry, error) {
	if entry == nil {
		return nil, errors.New("cannot append nil entry")
	}

	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_entries (event_id, event_type, data, at) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.Type, entry.Data, at,
	)
	if err != nil {
		return nil, fmt.Errorf("appending journal entry: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading journal sequence: %w", err)
	}

	appended := *entry
	appended.Seq = seq
	appended.At = at

	return &appended, nil
}

// After returns all entries recorded after the entry with the given event ID,
// oldest first.
func (s *Store) After(ctx context.Context, id string) ([]*journal.Entry, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT seq FROM journal_entries WHERE event_id = ? ORDER BY seq DESC LIMIT 1`,
		id,
	).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, journal.ErrUnknownID{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("resolving journal entry %q: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, event_id, event_type, data, at FROM journal_entries WHERE seq > ? ORDER BY seq ASC`,
		seq,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent returns up to limit most recent entries, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*journal.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, event_id, event_type, data, at FROM (
			SELECT seq, event_id, event_type, data, at FROM journal_entries ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntries(rows *sql.Rows) ([]*journal.Entry, error) {
	var entries []*journal.Entry

	for rows.Next() {
		entry := &journal.Entry{}
		if err := rows.Scan(&entry.Seq, &entry.ID, &entry.Type, &entry.Data, &entry.At); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal entries: %w", err)
	}

	return entries, nil
}
