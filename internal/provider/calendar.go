package provider

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/slatehub/slate-core/internal/infrastructure/config"
)

// defaultMaxEvents caps how many upcoming events the payload carries.
const defaultMaxEvents = 5

// calendarFetcher pulls upcoming events from an iCalendar (ICS) feed,
// such as a Google Calendar secret address or a Nextcloud share.
type calendarFetcher struct {
	client    *http.Client
	feedURL   string
	maxEvents int

	// now is swappable for tests.
	now func() time.Time
}

func newCalendarFetcher(cfg config.ProviderConfig) (*calendarFetcher, error) {
	feedURL := stringOption(cfg.Options, "url", "")
	if feedURL == "" {
		return nil, fmt.Errorf("calendar provider: url option is required")
	}

	return &calendarFetcher{
		client:    newHTTPClient(),
		feedURL:   feedURL,
		maxEvents: intOption(cfg.Options, "max_events", defaultMaxEvents),
		now:       time.Now,
	}, nil
}

// calendarEvent is one parsed VEVENT.
type calendarEvent struct {
	Summary string
	Start   time.Time
	AllDay  bool
}

// Fetch downloads the feed and returns upcoming events sorted by start.
func (f *calendarFetcher) Fetch(ctx context.Context) (Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building calendar request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar feed returned status %d", resp.StatusCode)
	}

	events, err := parseICS(bufio.NewScanner(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing calendar feed: %w", err)
	}

	// Keep events from the start of today onward.
	today := f.now().Truncate(24 * time.Hour)
	var upcoming []calendarEvent
	for _, ev := range events {
		if !ev.Start.Before(today) {
			upcoming = append(upcoming, ev)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].Start.Before(upcoming[j].Start)
	})
	if len(upcoming) > f.maxEvents {
		upcoming = upcoming[:f.maxEvents]
	}

	items := make([]map[string]any, 0, len(upcoming))
	for _, ev := range upcoming {
		items = append(items, map[string]any{
			"summary": ev.Summary,
			"start":   ev.Start.Format(time.RFC3339),
			"all_day": ev.AllDay,
		})
	}

	return Payload{
		"events": items,
		"count":  len(items),
	}, nil
}

// parseICS extracts VEVENT summary/start pairs from an ICS stream.
// Only the fields the calendar widget needs are parsed; everything
// else (recurrence expansion, timezones beyond UTC/floating) is left
// to the upstream feed.
func parseICS(scanner *bufio.Scanner) ([]calendarEvent, error) {
	var events []calendarEvent
	var current *calendarEvent

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case line == "BEGIN:VEVENT":
			current = &calendarEvent{}
		case line == "END:VEVENT":
			if current != nil && current.Summary != "" && !current.Start.IsZero() {
				events = append(events, *current)
			}
			current = nil
		case current == nil:
			continue
		case strings.HasPrefix(line, "SUMMARY:"):
			current.Summary = unescapeICS(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "DTSTART"):
			start, allDay, err := parseICSDate(line)
			if err == nil {
				current.Start = start
				current.AllDay = allDay
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// parseICSDate handles the DTSTART forms that common feeds emit:
// DTSTART:20260115T090000Z, DTSTART;TZID=...:20260115T090000, and
// all-day DTSTART;VALUE=DATE:20260115.
func parseICSDate(line string) (time.Time, bool, error) {
	idx := strings.LastIndex(line, ":")
	if idx < 0 {
		return time.Time{}, false, fmt.Errorf("malformed DTSTART line")
	}
	value := line[idx+1:]

	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse("20060102T150405", value); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse("20060102", value); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("unrecognised DTSTART value %q", value)
}

// unescapeICS reverses the text escaping ICS applies to commas,
// semicolons and newlines.
func unescapeICS(s string) string {
	r := strings.NewReplacer(`\,`, ",", `\;`, ";", `\n`, " ", `\\`, `\`)
	return r.Replace(s)
}
