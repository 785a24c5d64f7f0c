// Package store provides an in-memory SQLite capture log for a dice session.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is a SQLite database held in process memory. Nothing is written to
// disk; the data lives exactly as long as the Store.
type Store struct {
	db        *sql.DB
	sessionID uuid.UUID
	startedAt time.Time
}

// New opens a fresh in-memory database, enables foreign keys, runs
// migrations and registers a new session.
func New() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, so the pool is
	// pinned to a single connection that is never recycled.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{
		db:        db,
		sessionID: uuid.New(),
		startedAt: time.Now().UTC(),
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if _, err := db.Exec(
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		s.sessionID.String(), s.startedAt,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	return s, nil
}

// Close closes the database connection, discarding all data.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SessionID returns the identifier of the session this store belongs to.
func (s *Store) SessionID() uuid.UUID {
	return s.sessionID
}

// StartedAt returns when the session was registered.
func (s *Store) StartedAt() time.Time {
	return s.startedAt
}
