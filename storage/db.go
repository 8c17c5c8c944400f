package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	conn    *sql.DB
	session string
}

// Open opens the database in dir and initializes the schema
func Open(dir string) (*DB, error) {
	dbPath := filepath.Join(dir, "winchord.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db := &DB{conn: conn, session: uuid.NewString()}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Session identifies this run in the event history
func (db *DB) Session() string {
	return db.session
}

// initSchema creates the database schema
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS slots (
		slot_index INTEGER PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		exe_path TEXT NOT NULL DEFAULT '',
		handle INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chord_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_id TEXT NOT NULL,

		-- What was recognized
		chord TEXT NOT NULL,
		keys TEXT NOT NULL,

		-- What was done about it
		action TEXT NOT NULL,
		slot_index INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		error_message TEXT,
		latency_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_chord_events_timestamp ON chord_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_chord_events_chord ON chord_events(chord);
	CREATE INDEX IF NOT EXISTS idx_chord_events_outcome ON chord_events(outcome);
	`

	_, err := db.conn.Exec(schema)
	return err
}
