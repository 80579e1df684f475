package chronique

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/hazyhaar/chronique/chronique/internal/pipeline"
	"github.com/hazyhaar/chronique/dbopen"
)

// MigrateDedupHashes backfills missing dedup hashes and removes duplicate
// events. For each group of events sharing the same hash, the oldest (by
// created_at) is kept and the others are deleted (CASCADE removes their
// articles, unless a UNIQUE source_url row belongs to the survivor).
//
// This migration is idempotent and safe to call at every startup. It must
// run BEFORE the UNIQUE index on events(dedup_hash) is applied.
func MigrateDedupHashes(db *sql.DB) error {
	// Check if the events table exists (new DBs may not have it yet).
	var tableCount int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='events'`,
	).Scan(&tableCount); err != nil || tableCount == 0 {
		return nil
	}

	rows, err := db.Query(
		`SELECT id, public_figure_id, title, event_date, dedup_hash, created_at
		FROM events ORDER BY created_at ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type entry struct {
		id        string
		figureID  string
		title     string
		eventDate int64
		hash      string
		createdAt int64
	}
	var all []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.figureID, &e.title, &e.eventDate, &e.hash, &e.createdAt); err != nil {
			return err
		}
		all = append(all, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(all) == 0 {
		return nil
	}

	// Group by computed hash, preserving insertion order (oldest first).
	type group struct {
		hash    string
		entries []entry
	}
	groups := make(map[string]*group)
	var order []string
	for _, e := range all {
		day := pipeline.DayKey(time.UnixMilli(e.eventDate))
		hash := pipeline.EventHashForDay(e.title, day, e.figureID)
		g, exists := groups[hash]
		if !exists {
			g = &group{hash: hash}
			groups[hash] = g
			order = append(order, hash)
		}
		g.entries = append(g.entries, e)
	}

	// Apply changes in a single transaction, retrying on SQLITE_BUSY.
	var deleted, updated int
	err = dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		deleted, updated = 0, 0
		for _, hash := range order {
			g := groups[hash]
			keep := g.entries[0] // oldest by created_at (query was ORDER BY created_at ASC)

			// Delete duplicates (all except the oldest).
			for _, dup := range g.entries[1:] {
				if _, err := tx.Exec(`DELETE FROM events WHERE id = ?`, dup.id); err != nil {
					return err
				}
				deleted++
			}

			// Backfill the surviving event's hash if it changed.
			if keep.hash != g.hash {
				if _, err := tx.Exec(
					`UPDATE events SET dedup_hash = ? WHERE id = ?`, g.hash, keep.id,
				); err != nil {
					return err
				}
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if deleted > 0 || updated > 0 {
		slog.Info("chronique: dedup migration complete", "deleted", deleted, "backfilled", updated)
	}
	return nil
}
