package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const eventColumns = `id, public_figure_id, topic_id, title, summary,
	event_date, event_type, dedup_hash, created_at`

// InsertEvent stores a new event. The UNIQUE index on dedup_hash rejects
// a concurrent insert of the same logical event; callers detect that with
// IsUniqueViolation and treat it as a duplicate, not an error.
func (s *Store) InsertEvent(ctx context.Context, e *Event) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	if e.EventType == "" {
		e.EventType = "statement"
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO events (id, public_figure_id, topic_id, title, summary,
		event_date, event_type, dedup_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PublicFigureID, e.TopicID, e.Title, e.Summary,
		e.EventDate, e.EventType, e.DedupHash, e.CreatedAt,
	)
	return err
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (*Event, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// GetEventByHash returns the event with the given dedup hash, or nil.
func (s *Store) GetEventByHash(ctx context.Context, hash string) (*Event, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE dedup_hash = ? LIMIT 1`, hash)
	return scanEvent(row)
}

// ListEventsByPair returns events for a figure×topic pair, newest first.
func (s *Store) ListEventsByPair(ctx context.Context, figureID, topicID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		WHERE public_figure_id = ? AND topic_id = ?
		ORDER BY event_date DESC LIMIT ?`, figureID, topicID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListEventsByFigure returns events for a public figure across all topics,
// newest first.
func (s *Store) ListEventsByFigure(ctx context.Context, figureID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		WHERE public_figure_id = ?
		ORDER BY event_date DESC LIMIT ?`, figureID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.PublicFigureID, &e.TopicID, &e.Title, &e.Summary,
			&e.EventDate, &e.EventType, &e.DedupHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func scanEvent(row *sql.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.PublicFigureID, &e.TopicID, &e.Title, &e.Summary,
		&e.EventDate, &e.EventType, &e.DedupHash, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &e, nil
}
