package store

// Monitor represents a subscription: one public figure watched on one topic.
type Monitor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PublicFigureID string `json:"public_figure_id"`
	TopicID        string `json:"topic_id"`
	SearchInterval int64  `json:"search_interval"` // ms
	Enabled        bool   `json:"enabled"`
	LastSearchedAt *int64 `json:"last_searched_at,omitempty"`
	LastStatus     string `json:"last_status"`
	LastError      string `json:"last_error"`
	FailCount      int    `json:"fail_count"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// Event is a deduplicated record of something a public figure did.
type Event struct {
	ID             string `json:"id"`
	PublicFigureID string `json:"public_figure_id"`
	TopicID        string `json:"topic_id"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	EventDate      int64  `json:"event_date"` // ms, UTC
	EventType      string `json:"event_type"`
	DedupHash      string `json:"dedup_hash"`
	CreatedAt      int64  `json:"created_at"`
}

// Article is a source citation supporting an event. A URL is stored at
// most once globally; it stays with the first event that cited it.
type Article struct {
	ID              string `json:"id"`
	EventID         string `json:"event_id"`
	Headline        string `json:"headline"`
	SourceURL       string `json:"source_url"`
	SourcePublisher string `json:"source_publisher"`
	PublishedAt     int64  `json:"published_at"` // ms, UTC
	SourceType      string `json:"source_type"`
	ContentHash     string `json:"content_hash"`
	FullText        string `json:"full_text"`
	KeyQuotes       string `json:"key_quotes"` // JSON array of strings
	CreatedAt       int64  `json:"created_at"`
}

// IngestLogEntry is one ingest run record.
type IngestLogEntry struct {
	ID           string `json:"id"`
	MonitorID    string `json:"monitor_id"`
	Status       string `json:"status"`
	Created      int    `json:"created"`
	Skipped      int    `json:"skipped"`
	ErrorMessage string `json:"error_message"`
	DurationMs   int64  `json:"duration_ms"`
	IngestedAt   int64  `json:"ingested_at"`
}

// SearchHit is a FTS5 search hit on events.
type SearchHit struct {
	EventID        string  `json:"event_id"`
	PublicFigureID string  `json:"public_figure_id"`
	Title          string  `json:"title"`
	Summary        string  `json:"summary"`
	Rank           float64 `json:"rank"`
}

// Stats holds aggregate counters for the database.
type Stats struct {
	Monitors   int `json:"monitors"`
	Events     int `json:"events"`
	Articles   int `json:"articles"`
	IngestLogs int `json:"ingest_logs"`
}
