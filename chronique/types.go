// Package chronique tracks what public figures do: it ingests candidate
// events discovered by an external search step, collapses rediscovered
// duplicates through a content-addressed dedup hash, and stores events
// with their source citations in SQLite. FTS5 search runs directly on
// events.
package chronique

import (
	"github.com/hazyhaar/chronique/chronique/internal/pipeline"
	"github.com/hazyhaar/chronique/chronique/internal/store"
)

// Re-export store and pipeline types for the public API.
type (
	Monitor        = store.Monitor
	Event          = store.Event
	Article        = store.Article
	IngestLogEntry = store.IngestLogEntry
	SearchHit      = store.SearchHit
	Stats          = store.Stats

	SearchResult   = pipeline.SearchResult
	CandidateEvent = pipeline.CandidateEvent
	Citation       = pipeline.Citation
	Summary        = pipeline.Summary
)

// EventHash computes the dedup key for a candidate event. See the
// pipeline package for the normalization rules.
func EventHash(title, eventDate, publicFigureID string) string {
	return pipeline.EventHash(title, eventDate, publicFigureID)
}

// ClassifyEventType infers an event category from a free-text title.
func ClassifyEventType(title string) string {
	return pipeline.ClassifyEventType(title)
}

// ClassifySourceType infers a citation category from a publisher name.
func ClassifySourceType(publisher string) string {
	return pipeline.ClassifySourceType(publisher)
}
