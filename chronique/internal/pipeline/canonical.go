// Package pipeline turns noisy candidate events from the search
// collaborator into deduplicated event and article rows.
package pipeline

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// eventDateLayouts are tried in order when parsing a candidate's date.
// Search results mix full RFC 3339 timestamps, zoneless timestamps, and
// bare calendar dates.
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseEventDate parses a candidate event's date string. Zoneless inputs
// are taken as UTC.
func ParseEventDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty event date")
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable event date %q", raw)
}

// NormalizeTitle lowercases a title and strips everything that is not an
// ASCII letter or digit. Two titles differing only in case, punctuation,
// or spacing normalize identically.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DayKey reduces an event date to its UTC calendar day, YYYY-MM-DD.
// Two events on the same UTC day collapse regardless of time-of-day;
// day-boundary straddling across source time zones is accepted
// coarse-graining.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// EventHash computes the dedup key for a candidate event: a digest over
// the normalized title, the UTC day, and the figure ID, joined with a
// fixed delimiter. It performs no validation — an unparseable date feeds
// the raw string into the digest, deterministic but meaningless, which is
// why the ingestor checks date validity before trusting the result.
func EventHash(title, eventDate, publicFigureID string) string {
	day := strings.TrimSpace(eventDate)
	if t, err := ParseEventDate(eventDate); err == nil {
		day = DayKey(t)
	}
	return EventHashForDay(title, day, publicFigureID)
}

// EventHashForDay is EventHash with the day already reduced to
// YYYY-MM-DD. Used by the backfill migration, which reads dates back out
// of the store rather than from candidate strings.
func EventHashForDay(title, day, publicFigureID string) string {
	return hashHex(NormalizeTitle(title) + "-" + day + "-" + publicFigureID)
}

// ContentHash computes the stored fingerprint of a citation URL. It is
// not the citation dedup key — that is the UNIQUE index on source_url.
func ContentHash(url string) string {
	return hashHex(url)
}

func hashHex(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
