package storage

import (
	"fmt"
)

// DailyStats represents chord activity for a single day
type DailyStats struct {
	Date         string
	TotalChords  int
	SuccessCount int
	FailureCount int
}

// ChordStats represents activity grouped by chord
type ChordStats struct {
	Chord        string
	TotalChords  int
	SuccessCount int
	FailureCount int
	AvgLatencyMs float64
}

// OverallStats represents overall statistics
type OverallStats struct {
	TotalChords   int
	SuccessCount  int
	NotFoundCount int
	FailureCount  int
	UnboundCount  int
	Sessions      int
	AvgLatencyMs  float64
}

// GetDailyStats retrieves statistics grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp) as date,
			COUNT(*) as total_chords,
			SUM(CASE WHEN outcome = 'ok' THEN 1 ELSE 0 END) as success_count,
			SUM(CASE WHEN outcome != 'ok' THEN 1 ELSE 0 END) as failure_count
		FROM chord_events
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		if err := rows.Scan(&s.Date, &s.TotalChords, &s.SuccessCount, &s.FailureCount); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetChordStats retrieves statistics grouped by chord for the last N days
func (db *DB) GetChordStats(days int) ([]ChordStats, error) {
	query := `
		SELECT
			chord,
			COUNT(*) as total_chords,
			SUM(CASE WHEN outcome = 'ok' THEN 1 ELSE 0 END) as success_count,
			SUM(CASE WHEN outcome != 'ok' THEN 1 ELSE 0 END) as failure_count,
			AVG(latency_ms) as avg_latency_ms
		FROM chord_events
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY chord
		ORDER BY total_chords DESC, chord
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query chord stats: %w", err)
	}
	defer rows.Close()

	var stats []ChordStats
	for rows.Next() {
		var s ChordStats
		err := rows.Scan(&s.Chord, &s.TotalChords, &s.SuccessCount, &s.FailureCount, &s.AvgLatencyMs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chord stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics for the last N days
func (db *DB) GetOverallStats(days int) (*OverallStats, error) {
	query := `
		SELECT
			COUNT(*) as total_chords,
			COALESCE(SUM(CASE WHEN outcome = 'ok' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'not_found' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'unbound' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT session_id),
			COALESCE(AVG(latency_ms), 0)
		FROM chord_events
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
	`

	var stats OverallStats
	err := db.conn.QueryRow(query, days).Scan(
		&stats.TotalChords,
		&stats.SuccessCount,
		&stats.NotFoundCount,
		&stats.FailureCount,
		&stats.UnboundCount,
		&stats.Sessions,
		&stats.AvgLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	return &stats, nil
}
