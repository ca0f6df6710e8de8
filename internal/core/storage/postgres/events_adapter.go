package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/parcelmap/listing-search/internal/core/listing"
)

// EventsAdapter reads the event subsystem's listing_events table. The table
// is owned and written elsewhere; this core only reads active windows.
type EventsAdapter struct {
	db    *sql.DB
	nowFn func() time.Time
}

// NewEventsAdapter shares the listing store's connection pool.
func NewEventsAdapter(db *sql.DB) *EventsAdapter {
	return &EventsAdapter{db: db, nowFn: time.Now}
}

// ActiveEventsFor returns the not-yet-ended events of each listing, keyed by
// listing id. Listings without events are absent from the map.
func (a *EventsAdapter) ActiveEventsFor(ctx context.Context, ids []int64) (map[int64][]listing.EventSummary, error) {
	out := make(map[int64][]listing.EventSummary)
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := a.db.QueryContext(ctx, queryActiveEvents, pq.Array(ids), a.nowFn().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query active events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			listingID int64
			evt       listing.EventSummary
			title     sql.NullString
		)
		if err := rows.Scan(&listingID, &evt.ID, &evt.Kind, &title, &evt.StartsAt, &evt.EndsAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		evt.Title = title.String
		out[listingID] = append(out[listingID], evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	slog.Debug("[Postgres] Loaded active events",
		"listings", len(ids),
		"with_events", len(out))
	return out, nil
}

// AgentDirectory resolves agent identifiers against the agents table.
type AgentDirectory struct {
	db *sql.DB
}

// NewAgentDirectory shares the listing store's connection pool.
func NewAgentDirectory(db *sql.DB) *AgentDirectory {
	return &AgentDirectory{db: db}
}

// Resolve accepts agent keys, license numbers, office codes or emails and
// returns the matching agent keys. Unknown identifiers resolve to nothing.
func (d *AgentDirectory) Resolve(ctx context.Context, identifiers []string) ([]string, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}
	emails := make([]string, len(identifiers))
	for i, id := range identifiers {
		emails[i] = strings.ToLower(id)
	}

	rows, err := d.db.QueryContext(ctx, queryResolveAgents, pq.Array(identifiers), pq.Array(emails))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve agents: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan agent row: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}
	return keys, nil
}
