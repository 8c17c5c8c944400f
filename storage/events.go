package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Outcomes recorded for chord events
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
	OutcomeUnbound  = "unbound"
)

// ChordEvent is one recognized chord and what came of it
type ChordEvent struct {
	ID           int64
	Timestamp    time.Time
	SessionID    string
	Chord        string
	Keys         string
	Action       string
	Slot         int
	Outcome      string
	ErrorMessage string
	LatencyMs    int64
}

// SaveChordEvent stores e under the current session
func (db *DB) SaveChordEvent(e *ChordEvent) error {
	query := `
		INSERT INTO chord_events (
			session_id, chord, keys, action, slot_index, outcome, error_message, latency_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errMsg sql.NullString
	if e.ErrorMessage != "" {
		errMsg = sql.NullString{String: e.ErrorMessage, Valid: true}
	}

	result, err := db.conn.Exec(query,
		db.session, e.Chord, e.Keys, e.Action, e.Slot, e.Outcome, errMsg, e.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save chord event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	e.ID = id
	e.SessionID = db.session
	return nil
}

// GetChordEvents retrieves events newest first with pagination
func (db *DB) GetChordEvents(limit, offset int) ([]ChordEvent, error) {
	query := `
		SELECT id, timestamp, session_id, chord, keys, action, slot_index, outcome,
			error_message, latency_ms
		FROM chord_events
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query chord events: %w", err)
	}
	defer rows.Close()

	var events []ChordEvent
	for rows.Next() {
		var e ChordEvent
		var errMsg sql.NullString
		err := rows.Scan(&e.ID, &e.Timestamp, &e.SessionID, &e.Chord, &e.Keys, &e.Action,
			&e.Slot, &e.Outcome, &errMsg, &e.LatencyMs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chord event: %w", err)
		}
		e.ErrorMessage = errMsg.String
		events = append(events, e)
	}

	return events, rows.Err()
}

// GetChordEventCount returns the total number of stored events
func (db *DB) GetChordEventCount() (int, error) {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM chord_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chord events: %w", err)
	}
	return count, nil
}

// DeleteChordEventsBefore removes events older than cutoff
func (db *DB) DeleteChordEventsBefore(cutoff time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM chord_events WHERE timestamp < ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("failed to delete chord events: %w", err)
	}
	return result.RowsAffected()
}
