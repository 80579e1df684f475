package store

import "database/sql"

// Schema is the complete chronique schema.
const Schema = `
-- Monitors: who is watching which public figure on which topic
CREATE TABLE IF NOT EXISTS monitors (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    public_figure_id TEXT NOT NULL,
    topic_id         TEXT NOT NULL,
    search_interval  INTEGER NOT NULL DEFAULT 3600000,
    enabled          INTEGER NOT NULL DEFAULT 1,
    last_searched_at INTEGER,
    last_status      TEXT NOT NULL DEFAULT 'pending',
    last_error       TEXT NOT NULL DEFAULT '',
    fail_count       INTEGER NOT NULL DEFAULT 0,
    created_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitors_enabled ON monitors(enabled, last_searched_at);

-- Events: deduplicated, canonicalized records of things a figure did
CREATE TABLE IF NOT EXISTS events (
    id               TEXT PRIMARY KEY,
    public_figure_id TEXT NOT NULL,
    topic_id         TEXT NOT NULL,
    title            TEXT NOT NULL,
    summary          TEXT NOT NULL DEFAULT '',
    event_date       INTEGER NOT NULL,
    event_type       TEXT NOT NULL DEFAULT 'statement',
    dedup_hash       TEXT NOT NULL DEFAULT '',
    created_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_figure ON events(public_figure_id, event_date DESC);
CREATE INDEX IF NOT EXISTS idx_events_topic ON events(topic_id, event_date DESC);

-- Articles: source citations supporting an event
CREATE TABLE IF NOT EXISTS articles (
    id               TEXT PRIMARY KEY,
    event_id         TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    headline         TEXT NOT NULL DEFAULT '',
    source_url       TEXT NOT NULL,
    source_publisher TEXT NOT NULL DEFAULT '',
    published_at     INTEGER NOT NULL,
    source_type      TEXT NOT NULL DEFAULT 'media',
    content_hash     TEXT NOT NULL DEFAULT '',
    full_text        TEXT NOT NULL DEFAULT '',
    key_quotes       TEXT NOT NULL DEFAULT '[]',
    created_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_event ON articles(event_id);

-- FTS5 on events (title + summary)
CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
    title, summary, content='events', content_rowid='rowid',
    tokenize='unicode61 remove_diacritics 2'
);

-- Triggers to keep FTS5 in sync
CREATE TRIGGER IF NOT EXISTS events_ai AFTER INSERT ON events BEGIN
    INSERT INTO events_fts(rowid, title, summary) VALUES (new.rowid, new.title, new.summary);
END;
CREATE TRIGGER IF NOT EXISTS events_ad AFTER DELETE ON events BEGIN
    INSERT INTO events_fts(events_fts, rowid, title, summary) VALUES('delete', old.rowid, old.title, old.summary);
END;
CREATE TRIGGER IF NOT EXISTS events_au AFTER UPDATE ON events BEGIN
    INSERT INTO events_fts(events_fts, rowid, title, summary) VALUES('delete', old.rowid, old.title, old.summary);
    INSERT INTO events_fts(rowid, title, summary) VALUES (new.rowid, new.title, new.summary);
END;

-- Ingest log (observability)
CREATE TABLE IF NOT EXISTS ingest_log (
    id            TEXT PRIMARY KEY,
    monitor_id    TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
    status        TEXT NOT NULL,
    created       INTEGER NOT NULL DEFAULT 0,
    skipped       INTEGER NOT NULL DEFAULT 0,
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    ingested_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ingest_log_monitor ON ingest_log(monitor_id, ingested_at DESC);
`

// Migration001UniqueDedupHash adds the UNIQUE index enforcing event dedup.
// The existence check in the ingestor is only an optimization; this index
// is what holds under concurrent ingestion.
const Migration001UniqueDedupHash = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup_hash ON events(dedup_hash);
`

// Migration002UniqueSourceURL adds the UNIQUE index enforcing citation dedup.
const Migration002UniqueSourceURL = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_source_url ON articles(source_url);
`

// Migration003UniqueMonitorPair prevents two monitors from watching the
// same figure×topic pair.
const Migration003UniqueMonitorPair = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_monitors_pair ON monitors(public_figure_id, topic_id);
`

// ApplySchema creates all tables and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return err
	}
	for _, m := range []string{
		Migration001UniqueDedupHash,
		Migration002UniqueSourceURL,
		Migration003UniqueMonitorPair,
	} {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
