package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/chronique/chronique/internal/store"
	"github.com/hazyhaar/chronique/idgen"
)

// Ingestor runs candidate batches against the store. Candidates are
// processed strictly in order, one blocking store round-trip at a time;
// concurrency exists only across separate Run calls, where the store's
// UNIQUE indexes are the sole correctness mechanism.
type Ingestor struct {
	logger *slog.Logger
	newID  idgen.Generator
}

// NewIngestor creates an Ingestor.
func NewIngestor(logger *slog.Logger, newID idgen.Generator) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if newID == nil {
		newID = idgen.New
	}
	return &Ingestor{logger: logger, newID: newID}
}

// Run ingests one batch for one monitor and returns aggregate counts.
//
// Per candidate, in order: compute the dedup hash, look it up, and on a
// miss validate the date, classify, insert the event, then insert each
// citation. Duplicate rejections from the store (dedup_hash or
// source_url) are expected outcomes, not errors. Any other per-candidate
// failure is logged with the candidate's title and hash, counted as
// skipped, and the batch continues — one bad candidate never aborts the
// rest.
//
// The monitor's last-searched timestamp is updated exactly once per call,
// even when nothing was created, and an ingest_log row records the run.
func (ing *Ingestor) Run(ctx context.Context, st *store.Store, mon *store.Monitor, result *SearchResult) *Summary {
	start := time.Now()
	log := ing.logger.With("monitor_id", mon.ID, "figure_id", mon.PublicFigureID)

	sum := &Summary{}
	if result != nil {
		for _, candidate := range result.Events {
			if ing.ingestOne(ctx, st, mon, &candidate, log) {
				sum.Created++
			} else {
				sum.Skipped++
			}
		}
	}

	if err := st.TouchMonitorSearched(ctx, mon.ID); err != nil {
		log.Warn("ingest: touch monitor failed", "error", err)
	}

	duration := time.Since(start).Milliseconds()
	entry := &store.IngestLogEntry{
		ID:         ing.newID(),
		MonitorID:  mon.ID,
		Status:     "ok",
		Created:    sum.Created,
		Skipped:    sum.Skipped,
		DurationMs: duration,
		IngestedAt: time.Now().UnixMilli(),
	}
	if err := st.InsertIngestLog(ctx, entry); err != nil {
		log.Warn("ingest: log write failed", "error", err)
	}

	log.Info("ingest: batch processed",
		"candidates", len(resultEvents(result)), "created", sum.Created,
		"skipped", sum.Skipped, "duration_ms", duration)
	return sum
}

// ingestOne processes a single candidate. Returns true if a new event row
// was created.
func (ing *Ingestor) ingestOne(ctx context.Context, st *store.Store, mon *store.Monitor, candidate *CandidateEvent, log *slog.Logger) bool {
	hash := EventHash(candidate.Title, candidate.EventDate, mon.PublicFigureID)

	existing, err := st.GetEventByHash(ctx, hash)
	if err != nil {
		log.Error("ingest: dedup lookup failed",
			"title", candidate.Title, "hash", hash, "error", err)
		return false
	}
	if existing != nil {
		// Pure duplicate — already recorded by an earlier run or an
		// earlier candidate in this batch.
		return false
	}

	eventDate, err := ParseEventDate(candidate.EventDate)
	if err != nil {
		log.Debug("ingest: invalid event date, skipping",
			"title", candidate.Title, "event_date", candidate.EventDate)
		return false
	}

	event := &store.Event{
		ID:             ing.newID(),
		PublicFigureID: mon.PublicFigureID,
		TopicID:        mon.TopicID,
		Title:          candidate.Title,
		Summary:        candidate.Summary,
		EventDate:      eventDate.UnixMilli(),
		EventType:      ClassifyEventType(candidate.Title),
		DedupHash:      hash,
	}
	if err := st.InsertEvent(ctx, event); err != nil {
		if store.IsUniqueViolation(err, "events.dedup_hash") {
			// Lost a race with a concurrent ingest of the same logical
			// event. The lookup above and this insert are not atomic;
			// the index is the authority.
			return false
		}
		log.Error("ingest: insert event failed",
			"title", candidate.Title, "hash", hash, "error", err)
		return false
	}

	if err := ing.insertCitations(ctx, st, event, candidate); err != nil {
		log.Error("ingest: citation insert failed",
			"title", candidate.Title, "hash", hash, "error", err)
		return false
	}
	return true
}

// insertCitations stores each citation of a freshly created event. A URL
// already claimed by an earlier event is left with that event; any other
// failure aborts the candidate step.
func (ing *Ingestor) insertCitations(ctx context.Context, st *store.Store, event *store.Event, candidate *CandidateEvent) error {
	quotes := candidate.Quotes
	if quotes == nil {
		quotes = []string{}
	}
	quotesJSON, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("marshal quotes: %w", err)
	}

	for _, src := range candidate.Sources {
		article := &store.Article{
			ID:              ing.newID(),
			EventID:         event.ID,
			Headline:        src.Headline,
			SourceURL:       src.URL,
			SourcePublisher: src.Publisher,
			PublishedAt:     event.EventDate,
			SourceType:      ClassifySourceType(src.Publisher),
			ContentHash:     ContentHash(src.URL),
			FullText:        candidate.Summary,
			KeyQuotes:       string(quotesJSON),
		}
		if err := st.InsertArticle(ctx, article); err != nil {
			if store.IsUniqueViolation(err, "articles.source_url") {
				ing.logger.Debug("ingest: citation already recorded",
					"url", src.URL, "event_id", event.ID)
				continue
			}
			return fmt.Errorf("insert citation %s: %w", src.URL, err)
		}
	}
	return nil
}

func resultEvents(result *SearchResult) []CandidateEvent {
	if result == nil {
		return nil
	}
	return result.Events
}
