// Package store provides the data access layer for chronique.
//
// The store is the sole dedup authority: UNIQUE indexes on
// events(dedup_hash) and articles(source_url) hold across concurrent
// ingest calls, so correctness never depends on in-memory state.
package store

import (
	"database/sql"
	"strings"
)

// Store wraps the chronique database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// IsUniqueViolation reports whether err is a UNIQUE constraint rejection.
// If column is non-empty, the match is narrowed to that table.column, so
// an unrelated constraint on the same insert is not mistaken for an
// expected duplicate.
func IsUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return column == "" || strings.Contains(msg, column)
}
