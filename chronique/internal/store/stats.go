package store

import "context"

// Stats returns aggregate counters for the database.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	for _, c := range []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM monitors`, &stats.Monitors},
		{`SELECT COUNT(*) FROM events`, &stats.Events},
		{`SELECT COUNT(*) FROM articles`, &stats.Articles},
		{`SELECT COUNT(*) FROM ingest_log`, &stats.IngestLogs},
	} {
		if err := s.DB.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, err
		}
	}
	return &stats, nil
}
