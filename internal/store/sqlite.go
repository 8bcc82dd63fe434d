// Package store persists generated insights in SQLite so restarts do not
// throw away work and repeated requests inside the TTL skip the providers
// entirely.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when no fresh entry exists for a key.
var ErrNotFound = errors.New("store: entry not found")

// Store is a TTL'd key-value cache backed by SQLite. Values are opaque bytes;
// callers own the encoding.
//
// The database runs in WAL mode with a single writer connection, which is all
// a single-instance service needs.
type Store struct {
	db  *sql.DB
	ttl time.Duration

	closeOnce sync.Once

	saveStmt   *sql.Stmt
	loadStmt   *sql.Stmt
	deleteStmt *sql.Stmt
	purgeStmt  *sql.Stmt
}

const busyTimeout = 5 * time.Second

// New opens (or creates) the SQLite database at path. Entries older than ttl
// are treated as absent; a zero ttl disables expiry.
func New(path string, ttl time.Duration) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: db path cannot be empty")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("store: ttl cannot be negative")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		path, int(busyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, ttl: ttl}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS insights (
		key        TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_insights_created_at ON insights(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO insights (key, payload, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`)
	if err != nil {
		return err
	}

	s.loadStmt, err = s.db.Prepare(`SELECT payload, created_at FROM insights WHERE key = ?`)
	if err != nil {
		return err
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM insights WHERE key = ?`)
	if err != nil {
		return err
	}

	s.purgeStmt, err = s.db.Prepare(`DELETE FROM insights WHERE created_at < ?`)
	return err
}

// Save writes or replaces the entry for key.
func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	_, err := s.saveStmt.ExecContext(ctx, key, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: failed to save %q: %w", key, err)
	}
	return nil
}

// Load returns the payload and creation time for key. Entries past the TTL
// are deleted on read and reported as ErrNotFound.
func (s *Store) Load(ctx context.Context, key string) ([]byte, time.Time, error) {
	var payload []byte
	var createdUnix int64

	err := s.loadStmt.QueryRowContext(ctx, key).Scan(&payload, &createdUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("store: failed to load %q: %w", key, err)
	}

	createdAt := time.Unix(createdUnix, 0)
	if s.ttl > 0 && time.Since(createdAt) > s.ttl {
		if _, err := s.deleteStmt.ExecContext(ctx, key); err != nil {
			return nil, time.Time{}, fmt.Errorf("store: failed to expire %q: %w", key, err)
		}
		return nil, time.Time{}, ErrNotFound
	}

	return payload, createdAt, nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.deleteStmt.ExecContext(ctx, key)
	if err != nil {
		return fmt.Errorf("store: failed to delete %q: %w", key, err)
	}
	return nil
}

// Purge removes every entry past the TTL and returns how many were removed.
// With a zero TTL it is a no-op.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	if s.ttl == 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-s.ttl).Unix()
	res, err := s.purgeStmt.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: failed to purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close releases the prepared statements and the database handle.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.saveStmt, s.loadStmt, s.deleteStmt, s.purgeStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}
