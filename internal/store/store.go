// Package store persists relation cache snapshots in SQLite, so a
// resolver can restart without losing still-live trust data.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned by LatestSnapshot when nothing has been
// persisted yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Store wraps a SQLite database holding cache snapshots.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// SaveSnapshot stores an exported cache snapshot and prunes older ones,
// keeping the most recent keep rows (keep <= 0 keeps everything).
func (s *Store) SaveSnapshot(payload []byte, keep int) error {
	if _, err := s.db.Exec(`INSERT INTO snapshots (payload) VALUES (?)`, string(payload)); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if keep > 0 {
		_, err := s.db.Exec(
			`DELETE FROM snapshots WHERE id NOT IN
			   (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`, keep)
		if err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
	}
	return nil
}

// LatestSnapshot returns the most recently saved snapshot payload and
// its creation time.
func (s *Store) LatestSnapshot() ([]byte, time.Time, error) {
	var (
		payload   string
		createdAt time.Time
	)
	err := s.db.QueryRow(
		`SELECT payload, created_at FROM snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query snapshot: %w", err)
	}
	return []byte(payload), createdAt, nil
}

// SnapshotCount returns the number of stored snapshots.
func (s *Store) SnapshotCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}
