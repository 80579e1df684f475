package store

import (
	"context"
	"fmt"
)

// Search performs a FTS5 full-text search on events.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]*SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT e.id, e.public_figure_id, e.title, e.summary, rank
		FROM events_fts f
		JOIN events e ON e.rowid = f.rowid
		WHERE events_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []*SearchHit
	for rows.Next() {
		var r SearchHit
		if err := rows.Scan(&r.EventID, &r.PublicFigureID, &r.Title, &r.Summary, &r.Rank); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}
