package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const monitorColumns = `id, name, public_figure_id, topic_id, search_interval, enabled,
	last_searched_at, last_status, last_error, fail_count, created_at, updated_at`

// InsertMonitor adds a new monitor.
func (s *Store) InsertMonitor(ctx context.Context, m *Monitor) error {
	now := time.Now().UnixMilli()
	if m.CreatedAt == 0 {
		m.CreatedAt = now
	}
	if m.UpdatedAt == 0 {
		m.UpdatedAt = now
	}
	if m.SearchInterval == 0 {
		m.SearchInterval = 3600000
	}
	if m.LastStatus == "" {
		m.LastStatus = "pending"
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO monitors (id, name, public_figure_id, topic_id, search_interval,
		enabled, last_searched_at, last_status, last_error, fail_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.PublicFigureID, m.TopicID, m.SearchInterval,
		m.Enabled, m.LastSearchedAt, m.LastStatus, m.LastError, m.FailCount,
		m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// GetMonitor retrieves a monitor by ID.
func (s *Store) GetMonitor(ctx context.Context, id string) (*Monitor, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE id = ?`, id)
	return scanMonitor(row)
}

// GetMonitorByPair returns the monitor watching the given figure×topic pair, or nil.
func (s *Store) GetMonitorByPair(ctx context.Context, figureID, topicID string) (*Monitor, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+monitorColumns+` FROM monitors
		WHERE public_figure_id = ? AND topic_id = ? LIMIT 1`, figureID, topicID)
	return scanMonitor(row)
}

// ListMonitors returns all monitors, newest first.
func (s *Store) ListMonitors(ctx context.Context) ([]*Monitor, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+monitorColumns+` FROM monitors ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []*Monitor
	for rows.Next() {
		m, err := scanMonitorRows(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

// UpdateMonitor updates a monitor's mutable fields.
func (s *Store) UpdateMonitor(ctx context.Context, m *Monitor) error {
	m.UpdatedAt = time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE monitors SET name=?, public_figure_id=?, topic_id=?, search_interval=?,
		enabled=?, updated_at=?
		WHERE id=?`,
		m.Name, m.PublicFigureID, m.TopicID, m.SearchInterval,
		m.Enabled, m.UpdatedAt, m.ID,
	)
	return err
}

// DeleteMonitor removes a monitor (cascades to ingest_log; events stay,
// they belong to the figure, not the subscription).
func (s *Store) DeleteMonitor(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM monitors WHERE id = ?`, id)
	return err
}

// CountMonitors returns the total number of monitors.
func (s *Store) CountMonitors(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM monitors`).Scan(&count)
	return count, err
}

// DueMonitors returns enabled monitors whose next search time has passed.
// next search = last_searched_at + search_interval
// Monitors with nil last_searched_at are always due.
func (s *Store) DueMonitors(ctx context.Context, maxFailCount int) ([]*Monitor, error) {
	now := time.Now().UnixMilli()
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+monitorColumns+` FROM monitors
		WHERE enabled = 1
		  AND fail_count < ?
		  AND (last_searched_at IS NULL OR last_searched_at + search_interval <= ?)
		ORDER BY last_searched_at ASC NULLS FIRST`, maxFailCount, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []*Monitor
	for rows.Next() {
		m, err := scanMonitorRows(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

// TouchMonitorSearched updates the last-searched timestamp after an ingest
// run and clears any error state.
func (s *Store) TouchMonitorSearched(ctx context.Context, id string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE monitors SET last_searched_at=?, last_status='ok',
		last_error='', fail_count=0, updated_at=?
		WHERE id=?`, now, now, id)
	return err
}

// RecordSearchError updates a monitor after a failed search run. The
// last-searched timestamp advances so the scheduler does not hot-loop on
// a failing monitor.
func (s *Store) RecordSearchError(ctx context.Context, id, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE monitors SET last_searched_at=?, last_status='error',
		last_error=?, fail_count=fail_count+1, updated_at=?
		WHERE id=?`, now, errMsg, now, id)
	return err
}

// ResetMonitor resets a monitor's error state so the scheduler picks it up again.
func (s *Store) ResetMonitor(ctx context.Context, id string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE monitors SET last_status='pending', last_error='', fail_count=0, updated_at=?
		WHERE id=?`, now, id)
	return err
}

func scanMonitor(row *sql.Row) (*Monitor, error) {
	var m Monitor
	var enabled int
	err := row.Scan(
		&m.ID, &m.Name, &m.PublicFigureID, &m.TopicID, &m.SearchInterval, &enabled,
		&m.LastSearchedAt, &m.LastStatus, &m.LastError, &m.FailCount,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan monitor: %w", err)
	}
	m.Enabled = enabled != 0
	return &m, nil
}

func scanMonitorRows(rows *sql.Rows) (*Monitor, error) {
	var m Monitor
	var enabled int
	err := rows.Scan(
		&m.ID, &m.Name, &m.PublicFigureID, &m.TopicID, &m.SearchInterval, &enabled,
		&m.LastSearchedAt, &m.LastStatus, &m.LastError, &m.FailCount,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan monitor: %w", err)
	}
	m.Enabled = enabled != 0
	return &m, nil
}
