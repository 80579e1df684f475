package store

import (
	"context"
	"fmt"
)

// InsertIngestLog records an ingest run.
func (s *Store) InsertIngestLog(ctx context.Context, entry *IngestLogEntry) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO ingest_log (id, monitor_id, status, created, skipped,
		error_message, duration_ms, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.MonitorID, entry.Status, entry.Created, entry.Skipped,
		entry.ErrorMessage, entry.DurationMs, entry.IngestedAt,
	)
	return err
}

// IngestHistory returns ingest log entries for a monitor, newest first.
func (s *Store) IngestHistory(ctx context.Context, monitorID string, limit int) ([]*IngestLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, monitor_id, status, created, skipped,
		error_message, duration_ms, ingested_at
		FROM ingest_log WHERE monitor_id = ?
		ORDER BY ingested_at DESC LIMIT ?`, monitorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*IngestLogEntry
	for rows.Next() {
		var e IngestLogEntry
		if err := rows.Scan(&e.ID, &e.MonitorID, &e.Status, &e.Created, &e.Skipped,
			&e.ErrorMessage, &e.DurationMs, &e.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan ingest log: %w", err)
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}
