package pipeline

// SearchResult is the batch handed over by the search collaborator: an
// ordered sequence of candidate events, possibly containing duplicates of
// each other and of previously ingested events.
type SearchResult struct {
	Events []CandidateEvent `json:"events"`
}

// CandidateEvent is an unpersisted, possibly-duplicate event record.
type CandidateEvent struct {
	Title     string     `json:"title"`
	Summary   string     `json:"summary"`
	EventDate string     `json:"event_date"`
	Quotes    []string   `json:"quotes,omitempty"`
	Sources   []Citation `json:"sources,omitempty"`
}

// Citation is one external reference supporting a candidate event. The
// URL is its canonical identity.
type Citation struct {
	URL       string `json:"url"`
	Headline  string `json:"headline"`
	Publisher string `json:"publisher"`
}

// Summary aggregates the outcome of one ingest run.
type Summary struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}
