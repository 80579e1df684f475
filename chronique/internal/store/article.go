package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const articleColumns = `id, event_id, headline, source_url, source_publisher,
	published_at, source_type, content_hash, full_text, key_quotes, created_at`

// InsertArticle stores a new citation. The UNIQUE index on source_url
// rejects a URL that is already recorded, no matter which event first
// cited it; callers detect that with IsUniqueViolation and leave the
// existing row untouched.
func (s *Store) InsertArticle(ctx context.Context, a *Article) error {
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}
	if a.SourceType == "" {
		a.SourceType = "media"
	}
	if a.KeyQuotes == "" {
		a.KeyQuotes = "[]"
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO articles (id, event_id, headline, source_url, source_publisher,
		published_at, source_type, content_hash, full_text, key_quotes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.EventID, a.Headline, a.SourceURL, a.SourcePublisher,
		a.PublishedAt, a.SourceType, a.ContentHash, a.FullText, a.KeyQuotes, a.CreatedAt,
	)
	return err
}

// GetArticleByURL returns the citation stored for a URL, or nil.
func (s *Store) GetArticleByURL(ctx context.Context, url string) (*Article, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE source_url = ? LIMIT 1`, url)
	var a Article
	err := row.Scan(&a.ID, &a.EventID, &a.Headline, &a.SourceURL, &a.SourcePublisher,
		&a.PublishedAt, &a.SourceType, &a.ContentHash, &a.FullText, &a.KeyQuotes, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}
	return &a, nil
}

// ListArticlesByEvent returns citations for an event, oldest first.
func (s *Store) ListArticlesByEvent(ctx context.Context, eventID string) ([]*Article, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles
		WHERE event_id = ? ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.EventID, &a.Headline, &a.SourceURL, &a.SourcePublisher,
			&a.PublishedAt, &a.SourceType, &a.ContentHash, &a.FullText, &a.KeyQuotes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, &a)
	}
	return articles, rows.Err()
}
