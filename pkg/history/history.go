// Package history journals terminal download events into SQLite so a CLI
// session can be reviewed after the fact.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	mathrand "math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Event is one observed terminal notification.
type Event struct {
	ID         string `json:"id"`
	GID        string `json:"gid"`
	Method     string `json:"method"`
	ReceivedAt int64  `json:"receivedAt"`
}

// Store owns the SQLite database for a profile.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init ensures pragmas and schema are configured.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			gid TEXT NOT NULL,
			method TEXT NOT NULL,
			received_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_gid ON events(gid);`,
		`CREATE INDEX IF NOT EXISTS idx_events_received ON events(received_at);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Record journals one terminal event and returns the stored row.
func (s *Store) Record(ctx context.Context, gid, method string) (Event, error) {
	ev := Event{
		ID:         newEventID(),
		GID:        gid,
		Method:     method,
		ReceivedAt: time.Now().UnixMilli(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(id, gid, method, received_at) VALUES(?,?,?,?)`,
		ev.ID, ev.GID, ev.Method, ev.ReceivedAt)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Recent returns the newest events, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, gid, method, received_at
		FROM events
		ORDER BY received_at DESC, id DESC
		LIMIT ?;
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ByGID returns every journaled event for one download, oldest first.
func (s *Store) ByGID(ctx context.Context, gid string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, gid, method, received_at
		FROM events
		WHERE gid = ?
		ORDER BY received_at ASC, id ASC;
	`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Purge drops every journaled event.
func (s *Store) Purge(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events`)
	return err
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.GID, &ev.Method, &ev.ReceivedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newEventID generates a ULID string so rows sort by insertion time.
func newEventID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
