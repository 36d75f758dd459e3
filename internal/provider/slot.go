package provider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Slot wraps one external data source with its cached value and
// staleness metadata.
//
// The cached value is only ever replaced by a successful fetch. A
// failed fetch records the error and leaves the previous value intact.
// At most one fetch per slot runs at a time; a Refresh issued while
// another is in flight returns immediately, treating the in-flight
// fetch as authoritative.
type Slot struct {
	name    string
	fetcher Fetcher
	maxAge  time.Duration

	mu            sync.Mutex
	cachedValue   Payload
	lastFetchedAt time.Time
	lastError     error
	fetchInFlight bool

	// now is swappable for staleness tests.
	now func() time.Time
}

// NewSlot creates a slot for the named source.
func NewSlot(name string, fetcher Fetcher, maxAge time.Duration) *Slot {
	return &Slot{
		name:    name,
		fetcher: fetcher,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Name returns the slot's provider name.
func (s *Slot) Name() string {
	return s.name
}

// Refresh invokes the fetcher and updates the cache.
//
// If a fetch is already in flight, Refresh returns nil immediately
// without issuing a second fetch. The guard is released on every exit
// path, including fetcher panic or ctx expiry.
func (s *Slot) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.fetchInFlight {
		s.mu.Unlock()
		return nil
	}
	s.fetchInFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.fetchInFlight = false
		s.mu.Unlock()
	}()

	payload, err := s.fetcher.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.lastError = err
		return fmt.Errorf("%w: %s: %w", ErrFetchFailed, s.name, err)
	}

	s.cachedValue = payload
	s.lastFetchedAt = s.now()
	s.lastError = nil
	return nil
}

// Read returns the cached value and its staleness classification.
// Read never blocks on a fetch and never triggers one.
func (s *Slot) Read() (Payload, Staleness) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastFetchedAt.IsZero() {
		return nil, StalenessAbsent
	}
	if s.now().Sub(s.lastFetchedAt) <= s.maxAge {
		return s.cachedValue, StalenessFresh
	}
	return s.cachedValue, StalenessStale
}

// Status returns a snapshot of the slot's health.
func (s *Slot) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Name:          s.name,
		LastFetchedAt: s.lastFetchedAt,
	}
	switch {
	case s.lastFetchedAt.IsZero():
		st.Staleness = StalenessAbsent
	case s.now().Sub(s.lastFetchedAt) <= s.maxAge:
		st.Staleness = StalenessFresh
	default:
		st.Staleness = StalenessStale
	}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	return st
}
