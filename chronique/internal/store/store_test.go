package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.Exec("PRAGMA foreign_keys=ON")
	if err := ApplySchema(db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func testMonitor(id string) *Monitor {
	return &Monitor{
		ID:             id,
		Name:           "PM on defence",
		PublicFigureID: "fig-" + id,
		TopicID:        "topic-" + id,
		Enabled:        true,
	}
}

func testEvent(id, figureID, hash string) *Event {
	return &Event{
		ID:             id,
		PublicFigureID: figureID,
		TopicID:        "topic-1",
		Title:          "Budget Speech",
		Summary:        "The PM delivered the budget speech.",
		EventDate:      time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC).UnixMilli(),
		DedupHash:      hash,
	}
}

func TestMonitorCRUD(t *testing.T) {
	// WHAT: Insert, get, list, update, delete round-trip for monitors.
	st := setupStore(t)
	ctx := context.Background()

	m := testMonitor("m1")
	if err := st.InsertMonitor(ctx, m); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if m.SearchInterval != 3600000 {
		t.Errorf("default interval = %d, want 3600000", m.SearchInterval)
	}
	if m.LastStatus != "pending" {
		t.Errorf("default status = %q, want pending", m.LastStatus)
	}

	got, err := st.GetMonitor(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Name != "PM on defence" || got.PublicFigureID != "fig-m1" {
		t.Errorf("unexpected monitor: %+v", got)
	}
	if got.LastSearchedAt != nil {
		t.Error("fresh monitor should have nil last_searched_at")
	}

	got.Name = "renamed"
	got.SearchInterval = 7200000
	if err := st.UpdateMonitor(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got2, _ := st.GetMonitor(ctx, "m1")
	if got2.Name != "renamed" || got2.SearchInterval != 7200000 {
		t.Errorf("update not persisted: %+v", got2)
	}

	all, err := st.ListMonitors(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %v, %d monitors", err, len(all))
	}

	n, err := st.CountMonitors(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}

	if err := st.DeleteMonitor(ctx, "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := st.GetMonitor(ctx, "m1")
	if err != nil || gone != nil {
		t.Errorf("expected nil, nil after delete, got %+v, %v", gone, err)
	}
}

func TestGetMonitorByPair(t *testing.T) {
	// WHAT: Monitors resolve by (public_figure_id, topic_id); misses return nil, nil.
	st := setupStore(t)
	ctx := context.Background()

	if err := st.InsertMonitor(ctx, testMonitor("m1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := st.GetMonitorByPair(ctx, "fig-m1", "topic-m1")
	if err != nil || got == nil || got.ID != "m1" {
		t.Fatalf("by pair: %+v, %v", got, err)
	}
	miss, err := st.GetMonitorByPair(ctx, "fig-m1", "other")
	if err != nil || miss != nil {
		t.Errorf("expected nil, nil on miss, got %+v, %v", miss, err)
	}
}

func TestInsertMonitor_DuplicatePairViolatesUnique(t *testing.T) {
	// WHAT: A second monitor on the same figure×topic pair fails the UNIQUE index.
	// WHY: The index is the cross-process guarantee; callers translate it.
	st := setupStore(t)
	ctx := context.Background()

	first := testMonitor("m1")
	if err := st.InsertMonitor(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := testMonitor("m2")
	dup.PublicFigureID = first.PublicFigureID
	dup.TopicID = first.TopicID
	err := st.InsertMonitor(ctx, dup)
	if !IsUniqueViolation(err, "monitors.public_figure_id") {
		t.Errorf("expected unique violation, got: %v", err)
	}
}

func TestTouchMonitorSearched(t *testing.T) {
	// WHAT: Touch stamps last_searched_at, sets status ok, clears error state.
	st := setupStore(t)
	ctx := context.Background()

	m := testMonitor("m1")
	if err := st.InsertMonitor(ctx, m); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.RecordSearchError(ctx, "m1", "search provider down"); err != nil {
		t.Fatalf("record error: %v", err)
	}
	got, _ := st.GetMonitor(ctx, "m1")
	if got.LastStatus != "error" || got.FailCount != 1 || got.LastError == "" {
		t.Errorf("error not recorded: %+v", got)
	}

	before := time.Now().UnixMilli()
	if err := st.TouchMonitorSearched(ctx, "m1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, _ = st.GetMonitor(ctx, "m1")
	if got.LastSearchedAt == nil || *got.LastSearchedAt < before {
		t.Errorf("last_searched_at not stamped: %+v", got.LastSearchedAt)
	}
	if got.LastStatus != "ok" || got.FailCount != 0 || got.LastError != "" {
		t.Errorf("touch should clear error state: %+v", got)
	}
}

func TestDueMonitors(t *testing.T) {
	// WHAT: DueMonitors returns enabled monitors past their interval or never searched,
	// and excludes disabled or repeatedly failing ones.
	st := setupStore(t)
	ctx := context.Background()

	never := testMonitor("never")
	if err := st.InsertMonitor(ctx, never); err != nil {
		t.Fatalf("insert: %v", err)
	}

	fresh := testMonitor("fresh")
	if err := st.InsertMonitor(ctx, fresh); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.TouchMonitorSearched(ctx, "fresh"); err != nil {
		t.Fatalf("touch: %v", err)
	}

	disabled := testMonitor("off")
	disabled.Enabled = false
	if err := st.InsertMonitor(ctx, disabled); err != nil {
		t.Fatalf("insert: %v", err)
	}

	stale := testMonitor("stale")
	if err := st.InsertMonitor(ctx, stale); err != nil {
		t.Fatalf("insert: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour).UnixMilli()
	if _, err := st.DB.ExecContext(ctx,
		"UPDATE monitors SET last_searched_at = ? WHERE id = 'stale'", old); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	failing := testMonitor("failing")
	if err := st.InsertMonitor(ctx, failing); err != nil {
		t.Fatalf("insert: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := st.RecordSearchError(ctx, "failing", "boom"); err != nil {
			t.Fatalf("record error: %v", err)
		}
	}

	due, err := st.DueMonitors(ctx, 10)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	ids := map[string]bool{}
	for _, m := range due {
		ids[m.ID] = true
	}
	if !ids["never"] || !ids["stale"] {
		t.Errorf("never-searched and stale monitors should be due, got %v", ids)
	}
	if ids["fresh"] || ids["off"] || ids["failing"] {
		t.Errorf("fresh, disabled, and failing monitors should not be due, got %v", ids)
	}
}

func TestEventInsertAndLookup(t *testing.T) {
	// WHAT: Events round-trip and resolve by id, hash, pair, and figure.
	st := setupStore(t)
	ctx := context.Background()

	e := testEvent("e1", "fig-1", "hash-1")
	if err := st.InsertEvent(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if e.EventType != "statement" {
		t.Errorf("default event type = %q, want statement", e.EventType)
	}

	byID, err := st.GetEvent(ctx, "e1")
	if err != nil || byID == nil || byID.Title != "Budget Speech" {
		t.Fatalf("get: %+v, %v", byID, err)
	}

	byHash, err := st.GetEventByHash(ctx, "hash-1")
	if err != nil || byHash == nil || byHash.ID != "e1" {
		t.Fatalf("by hash: %+v, %v", byHash, err)
	}
	miss, err := st.GetEventByHash(ctx, "absent")
	if err != nil || miss != nil {
		t.Errorf("expected nil, nil on miss, got %+v, %v", miss, err)
	}

	byPair, err := st.ListEventsByPair(ctx, "fig-1", "topic-1", 10)
	if err != nil || len(byPair) != 1 {
		t.Fatalf("by pair: %d events, %v", len(byPair), err)
	}
	byFigure, err := st.ListEventsByFigure(ctx, "fig-1", 10)
	if err != nil || len(byFigure) != 1 {
		t.Fatalf("by figure: %d events, %v", len(byFigure), err)
	}
}

func TestInsertEvent_DuplicateHashViolatesUnique(t *testing.T) {
	// WHAT: Inserting a second event with the same dedup_hash fails the UNIQUE index,
	// and IsUniqueViolation recognizes the failure by column.
	st := setupStore(t)
	ctx := context.Background()

	if err := st.InsertEvent(ctx, testEvent("e1", "fig-1", "same")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := st.InsertEvent(ctx, testEvent("e2", "fig-1", "same"))
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(err, "events.dedup_hash") {
		t.Errorf("IsUniqueViolation(dedup_hash) = false for: %v", err)
	}
	if IsUniqueViolation(err, "articles.source_url") {
		t.Errorf("violation should not match an unrelated column: %v", err)
	}
}

func TestArticleInsertAndUniqueURL(t *testing.T) {
	// WHAT: Articles round-trip; a source URL can be stored once globally.
	st := setupStore(t)
	ctx := context.Background()

	if err := st.InsertEvent(ctx, testEvent("e1", "fig-1", "h1")); err != nil {
		t.Fatalf("event: %v", err)
	}
	a := &Article{
		ID:              "a1",
		EventID:         "e1",
		Headline:        "PM delivers budget speech",
		SourceURL:       "https://example.com/budget",
		SourcePublisher: "Example News",
	}
	if err := st.InsertArticle(ctx, a); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if a.SourceType != "media" {
		t.Errorf("default source type = %q, want media", a.SourceType)
	}
	if a.KeyQuotes != "[]" {
		t.Errorf("default key quotes = %q, want []", a.KeyQuotes)
	}

	byURL, err := st.GetArticleByURL(ctx, "https://example.com/budget")
	if err != nil || byURL == nil || byURL.ID != "a1" {
		t.Fatalf("by url: %+v, %v", byURL, err)
	}

	if err := st.InsertEvent(ctx, testEvent("e2", "fig-1", "h2")); err != nil {
		t.Fatalf("event: %v", err)
	}
	dup := &Article{ID: "a2", EventID: "e2", Headline: "Same story", SourceURL: "https://example.com/budget"}
	err = st.InsertArticle(ctx, dup)
	if !IsUniqueViolation(err, "articles.source_url") {
		t.Errorf("expected unique violation on source_url, got: %v", err)
	}

	list, err := st.ListArticlesByEvent(ctx, "e1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %d articles, %v", len(list), err)
	}
}

func TestDeleteEvent_CascadesArticles(t *testing.T) {
	// WHAT: Deleting an event removes its articles via the FK cascade.
	st := setupStore(t)
	ctx := context.Background()

	if err := st.InsertEvent(ctx, testEvent("e1", "fig-1", "h1")); err != nil {
		t.Fatalf("event: %v", err)
	}
	a := &Article{ID: "a1", EventID: "e1", Headline: "h", SourceURL: "https://example.com/x"}
	if err := st.InsertArticle(ctx, a); err != nil {
		t.Fatalf("article: %v", err)
	}
	if _, err := st.DB.ExecContext(ctx, "DELETE FROM events WHERE id = 'e1'"); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	list, err := st.ListArticlesByEvent(ctx, "e1")
	if err != nil || len(list) != 0 {
		t.Errorf("expected no articles after cascade, got %d, %v", len(list), err)
	}
}

func TestIngestLogHistory(t *testing.T) {
	// WHAT: Ingest runs are logged per monitor and read back newest first.
	st := setupStore(t)
	ctx := context.Background()

	if err := st.InsertMonitor(ctx, testMonitor("m1")); err != nil {
		t.Fatalf("monitor: %v", err)
	}
	for i, id := range []string{"l1", "l2"} {
		entry := &IngestLogEntry{
			ID:         id,
			MonitorID:  "m1",
			Status:     "ok",
			Created:    i,
			Skipped:    1,
			DurationMs: 12,
			IngestedAt: time.Now().UnixMilli() + int64(i),
		}
		if err := st.InsertIngestLog(ctx, entry); err != nil {
			t.Fatalf("insert log: %v", err)
		}
	}
	history, err := st.IngestHistory(ctx, "m1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].ID != "l2" {
		t.Errorf("expected newest first, got %+v", history)
	}
}

func TestSearch_FTS(t *testing.T) {
	// WHAT: Full-text search finds events by words in title or summary.
	st := setupStore(t)
	ctx := context.Background()

	e := testEvent("e1", "fig-1", "h1")
	e.Title = "Ceasefire negotiations resume"
	e.Summary = "Talks restarted after a pause."
	if err := st.InsertEvent(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}
	other := testEvent("e2", "fig-1", "h2")
	other.Title = "Budget tabled"
	other.Summary = "Fiscal plan presented."
	if err := st.InsertEvent(ctx, other); err != nil {
		t.Fatalf("insert: %v", err)
	}

	hits, err := st.Search(ctx, "ceasefire", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].EventID != "e1" {
		t.Errorf("expected one hit for e1, got %+v", hits)
	}
}

func TestStats(t *testing.T) {
	// WHAT: Stats aggregates row counts per table.
	st := setupStore(t)
	ctx := context.Background()

	if err := st.InsertMonitor(ctx, testMonitor("m1")); err != nil {
		t.Fatalf("monitor: %v", err)
	}
	if err := st.InsertEvent(ctx, testEvent("e1", "fig-1", "h1")); err != nil {
		t.Fatalf("event: %v", err)
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Monitors != 1 || stats.Events != 1 || stats.Articles != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestIsUniqueViolation_NonConstraintErrors(t *testing.T) {
	// WHAT: Arbitrary errors are not misread as unique violations.
	if IsUniqueViolation(nil, "") {
		t.Error("nil error should not be a violation")
	}
	if IsUniqueViolation(errors.New("database is locked"), "") {
		t.Error("busy error should not be a violation")
	}
}
