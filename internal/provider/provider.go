// Package provider manages the hub's external data sources.
//
// Each configured source (weather API, calendar feed, task list, indoor
// sensor) is wrapped in a Slot that owns its cached payload, staleness
// metadata, and an in-flight guard preventing overlapping fetches. The
// Registry maps provider names to slots and is the only path by which
// the rest of the hub reads provider data.
//
// Reads never fetch. Callers that want refresh-on-demand behaviour
// (the layout resolver) decide that policy themselves; the slot only
// guarantees that a failed fetch never destroys previously cached data.
package provider

import (
	"context"
	"time"
)

// Payload is the parsed data a fetcher returns. Widgets read keys from
// it by convention (e.g. "temperature_c", "events").
type Payload map[string]any

// Staleness classifies a cached payload's age against the provider's
// configured max age.
type Staleness string

// Staleness values.
const (
	// StalenessAbsent means no value has ever been cached.
	StalenessAbsent Staleness = "absent"

	// StalenessFresh means the cached value is within max age.
	StalenessFresh Staleness = "fresh"

	// StalenessStale means the cached value has outlived max age but is
	// still served (stale-but-present beats absent).
	StalenessStale Staleness = "stale"
)

// Fetcher retrieves fresh data from an external source.
// Implementations must honour ctx cancellation and must not retain the
// returned payload after returning it.
type Fetcher interface {
	Fetch(ctx context.Context) (Payload, error)
}

// Status is a read-only snapshot of one slot's health.
type Status struct {
	Name          string    `json:"name"`
	Staleness     Staleness `json:"staleness"`
	LastFetchedAt time.Time `json:"last_fetched_at,omitzero"`
	LastError     string    `json:"last_error,omitempty"`
}
