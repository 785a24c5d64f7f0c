package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ayusman/dicecount/internal/roll"
)

// RollRepository stores captures and their values. It implements roll.Record.
type RollRepository struct {
	db        *sql.DB
	sessionID string
}

// Rolls returns the roll repository for this store's session.
func (s *Store) Rolls() *RollRepository {
	return &RollRepository{db: s.db, sessionID: s.sessionID.String()}
}

// Append inserts a capture and its values in a single transaction.
func (r *RollRepository) Append(c roll.Capture) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM captures WHERE session_id = ?`,
		r.sessionID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("next capture sequence: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO captures (id, session_id, seq, captured_at) VALUES (?, ?, ?, ?)`,
		c.ID.String(), r.sessionID, seq, c.At.UTC(),
	); err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO rolls (capture_id, position, value) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range c.Values {
		if _, err := stmt.Exec(c.ID.String(), i, v); err != nil {
			return fmt.Errorf("insert roll: %w", err)
		}
	}

	return tx.Commit()
}

// Values returns every recorded value in capture order, then die order.
func (r *RollRepository) Values() ([]int, error) {
	rows, err := r.db.Query(
		`SELECT r.value
		 FROM rolls r
		 JOIN captures c ON c.id = r.capture_id
		 WHERE c.session_id = ?
		 ORDER BY c.seq, r.position`,
		r.sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []int{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return values, nil
}

// Captures returns the capture log, including captures that saw no dice.
func (r *RollRepository) Captures() ([]roll.Capture, error) {
	rows, err := r.db.Query(
		`SELECT c.id, c.captured_at, r.value
		 FROM captures c
		 LEFT JOIN rolls r ON r.capture_id = c.id
		 WHERE c.session_id = ?
		 ORDER BY c.seq, r.position`,
		r.sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	captures := []roll.Capture{}
	for rows.Next() {
		var (
			id    string
			c     roll.Capture
			value sql.NullInt64
		)
		if err := rows.Scan(&id, &c.At, &value); err != nil {
			return nil, err
		}

		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse capture id %q: %w", id, err)
		}

		if n := len(captures); n == 0 || captures[n-1].ID != parsed {
			c.ID = parsed
			c.Values = []int{}
			captures = append(captures, c)
		}
		if value.Valid {
			last := &captures[len(captures)-1]
			last.Values = append(last.Values, int(value.Int64))
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return captures, nil
}

// Count returns the number of recorded values.
func (r *RollRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*)
		 FROM rolls r
		 JOIN captures c ON c.id = r.capture_id
		 WHERE c.session_id = ?`,
		r.sessionID,
	).Scan(&n)
	return n, err
}
