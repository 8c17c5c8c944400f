package storage

import (
	"fmt"
	"time"
)

// SlotRecord is the persisted part of a window slot
type SlotRecord struct {
	Index     int
	Title     string
	ExePath   string
	Handle    int64
	UpdatedAt time.Time
}

// SaveSlots replaces the stored slots with records
func (db *DB) SaveSlots(records []SlotRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM slots`); err != nil {
		return fmt.Errorf("failed to clear slots: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO slots (slot_index, title, exe_path, handle, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare slot insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Index, r.Title, r.ExePath, r.Handle); err != nil {
			return fmt.Errorf("failed to save slot %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit slots: %w", err)
	}
	return nil
}

// LoadSlots returns the stored slots ordered by index
func (db *DB) LoadSlots() ([]SlotRecord, error) {
	rows, err := db.conn.Query(`
		SELECT slot_index, title, exe_path, handle, updated_at
		FROM slots
		ORDER BY slot_index
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	var records []SlotRecord
	for rows.Next() {
		var r SlotRecord
		if err := rows.Scan(&r.Index, &r.Title, &r.ExePath, &r.Handle, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}
