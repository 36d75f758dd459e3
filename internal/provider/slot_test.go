package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockFetcher counts calls and can block or fail on demand.
type mockFetcher struct {
	calls   atomic.Int64
	payload Payload
	err     error

	// block, when non-nil, holds Fetch open until closed.
	block chan struct{}
}

func (m *mockFetcher) Fetch(_ context.Context) (Payload, error) {
	m.calls.Add(1)
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.payload, nil
}

func TestRefreshUpdatesCache(t *testing.T) {
	fetcher := &mockFetcher{payload: Payload{"temperature_c": 21.5}}
	slot := NewSlot("weather", fetcher, time.Minute)

	if err := slot.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	value, staleness := slot.Read()
	if staleness != StalenessFresh {
		t.Errorf("expected fresh, got %s", staleness)
	}
	if value["temperature_c"] != 21.5 {
		t.Errorf("unexpected cached value: %v", value)
	}
}

func TestRefreshWhileInFlightIssuesNoSecondFetch(t *testing.T) {
	fetcher := &mockFetcher{
		payload: Payload{"v": 1},
		block:   make(chan struct{}),
	}
	slot := NewSlot("weather", fetcher, time.Minute)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slot.Refresh(context.Background())
	}()

	// Wait for the first fetch to be in flight.
	deadline := time.Now().Add(time.Second)
	for fetcher.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first fetch never started")
		}
		time.Sleep(time.Millisecond)
	}

	// A second refresh must return immediately without fetching.
	if err := slot.Refresh(context.Background()); err != nil {
		t.Fatalf("concurrent Refresh() error: %v", err)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch call, got %d", got)
	}

	close(fetcher.block)
	wg.Wait()

	// The guard must be released afterwards.
	if err := slot.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() after unblock error: %v", err)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("expected 2 fetch calls after guard release, got %d", got)
	}
}

func TestFailedFetchKeepsCachedValue(t *testing.T) {
	fetcher := &mockFetcher{payload: Payload{"v": "first"}}
	slot := NewSlot("weather", fetcher, time.Minute)
	slot.now = func() time.Time { return time.Unix(1000, 0) }

	if err := slot.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	fetcher.err = errors.New("upstream down")
	err := slot.Refresh(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}

	// Move past max age: the old value must survive as stale.
	slot.now = func() time.Time { return time.Unix(1000+120, 0) }
	value, staleness := slot.Read()
	if staleness != StalenessStale {
		t.Errorf("expected stale, got %s", staleness)
	}
	if value["v"] != "first" {
		t.Errorf("expected prior value preserved, got %v", value)
	}

	status := slot.Status()
	if status.LastError == "" {
		t.Error("expected lastError recorded after failed fetch")
	}
}

func TestErrorClearedOnNextSuccess(t *testing.T) {
	fetcher := &mockFetcher{err: errors.New("boom")}
	slot := NewSlot("weather", fetcher, time.Minute)

	if err := slot.Refresh(context.Background()); err == nil {
		t.Fatal("expected error from failed fetch")
	}

	fetcher.err = nil
	fetcher.payload = Payload{"v": 2}
	if err := slot.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	if status := slot.Status(); status.LastError != "" {
		t.Errorf("expected lastError cleared, got %q", status.LastError)
	}
}

func TestStalenessBoundaries(t *testing.T) {
	fetchedAt := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	fetcher := &mockFetcher{payload: Payload{"v": 1}}
	slot := NewSlot("weather", fetcher, 60*time.Second)
	slot.now = func() time.Time { return fetchedAt }

	if err := slot.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	cases := []struct {
		name   string
		offset time.Duration
		want   Staleness
	}{
		{"59s after fetch", 59 * time.Second, StalenessFresh},
		{"exactly max age", 60 * time.Second, StalenessFresh},
		{"61s after fetch", 61 * time.Second, StalenessStale},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot.now = func() time.Time { return fetchedAt.Add(tc.offset) }
			_, staleness := slot.Read()
			if staleness != tc.want {
				t.Errorf("expected %s, got %s", tc.want, staleness)
			}
		})
	}
}

func TestReadBeforeFirstFetchIsAbsent(t *testing.T) {
	slot := NewSlot("weather", &mockFetcher{}, time.Minute)

	value, staleness := slot.Read()
	if staleness != StalenessAbsent {
		t.Errorf("expected absent, got %s", staleness)
	}
	if value != nil {
		t.Errorf("expected nil value, got %v", value)
	}
}
