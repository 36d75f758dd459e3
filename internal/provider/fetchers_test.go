package provider

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/slatehub/slate-core/internal/infrastructure/config"
	"github.com/slatehub/slate-core/internal/sensor"
)

func TestNewFetcherUnknownType(t *testing.T) {
	_, err := NewFetcher("mystery", config.ProviderConfig{Type: "mystery"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown fetcher type")
	}
}

func TestWeatherFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") == "" {
			t.Error("expected latitude query parameter")
		}
		w.Write([]byte(`{
			"current": {"temperature_2m": 8.4, "relative_humidity_2m": 71,
			            "weather_code": 61, "wind_speed_10m": 14.2},
			"daily": {"temperature_2m_max": [10.1], "temperature_2m_min": [3.2]}
		}`))
	}))
	defer srv.Close()

	f, err := newWeatherFetcher(config.ProviderConfig{
		Options: map[string]any{
			"latitude":  51.5,
			"longitude": -0.12,
			"base_url":  srv.URL,
		},
	})
	if err != nil {
		t.Fatalf("newWeatherFetcher() error: %v", err)
	}

	payload, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if payload["temperature_c"] != 8.4 {
		t.Errorf("unexpected temperature: %v", payload["temperature_c"])
	}
	if payload["condition"] != "Rain" {
		t.Errorf("expected condition Rain for code 61, got %v", payload["condition"])
	}
	if payload["temp_max_c"] != 10.1 {
		t.Errorf("unexpected daily max: %v", payload["temp_max_c"])
	}
}

func TestWeatherFetcherRequiresCoordinates(t *testing.T) {
	_, err := newWeatherFetcher(config.ProviderConfig{Options: map[string]any{}})
	if err == nil {
		t.Fatal("expected error for missing coordinates")
	}
}

func TestCalendarFetcher(t *testing.T) {
	ics := "BEGIN:VCALENDAR\r\n" +
		"BEGIN:VEVENT\r\n" +
		"SUMMARY:Dentist\r\n" +
		"DTSTART:20990120T090000Z\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"SUMMARY:Bin day\r\n" +
		"DTSTART;VALUE=DATE:20990119\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"SUMMARY:Ancient history\r\n" +
		"DTSTART:20000101T000000Z\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(ics))
	}))
	defer srv.Close()

	f, err := newCalendarFetcher(config.ProviderConfig{
		Options: map[string]any{"url": srv.URL},
	})
	if err != nil {
		t.Fatalf("newCalendarFetcher() error: %v", err)
	}

	payload, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	events, ok := payload["events"].([]map[string]any)
	if !ok {
		t.Fatalf("expected events slice, got %T", payload["events"])
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 upcoming events (past one dropped), got %d", len(events))
	}
	// Sorted by start: the all-day event on the 19th comes first.
	if events[0]["summary"] != "Bin day" {
		t.Errorf("expected Bin day first, got %v", events[0]["summary"])
	}
	if events[0]["all_day"] != true {
		t.Error("expected all-day flag on date-only event")
	}
}

func TestTasksFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[
			{"content": "Water plants", "priority": 1},
			{"content": "Pay rent", "priority": 4, "due": {"date": "2026-09-01"}}
		]`))
	}))
	defer srv.Close()

	f, err := newTasksFetcher(config.ProviderConfig{
		Credentials: map[string]string{"token": "secret-token"},
		Options:     map[string]any{"base_url": srv.URL},
	})
	if err != nil {
		t.Fatalf("newTasksFetcher() error: %v", err)
	}

	payload, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	tasks, ok := payload["tasks"].([]map[string]any)
	if !ok {
		t.Fatalf("expected tasks slice, got %T", payload["tasks"])
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0]["title"] != "Pay rent" {
		t.Errorf("expected highest priority first, got %v", tasks[0]["title"])
	}
	if tasks[0]["due"] != "2026-09-01" {
		t.Errorf("expected due date preserved, got %v", tasks[0]["due"])
	}
}

func TestTasksFetcherBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f, err := newTasksFetcher(config.ProviderConfig{
		Credentials: map[string]string{"token": "wrong"},
		Options:     map[string]any{"base_url": srv.URL},
	})
	if err != nil {
		t.Fatalf("newTasksFetcher() error: %v", err)
	}

	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("expected error on rejected credentials")
	}
}

func TestIndoorFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indoor_test.db")
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE sensor_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sensor_id TEXT NOT NULL,
		temperature_c REAL NOT NULL,
		humidity REAL NOT NULL,
		recorded_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("creating table: %v", err)
	}

	store := sensor.NewStore(db)
	ctx := context.Background()

	f, err := newIndoorFetcher(config.ProviderConfig{Options: map[string]any{}}, store)
	if err != nil {
		t.Fatalf("newIndoorFetcher() error: %v", err)
	}

	// Empty store: fetch fails, slot semantics keep it absent.
	if _, err := f.Fetch(ctx); err == nil {
		t.Fatal("expected error before any readings")
	}

	r := sensor.Reading{SensorID: "esp32-living", TemperatureC: 20.5, Humidity: 48,
		RecordedAt: time.Now().UTC()}
	if err := store.Insert(ctx, &r); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	payload, err := f.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if payload["temperature_c"] != 20.5 {
		t.Errorf("unexpected temperature: %v", payload["temperature_c"])
	}
	if payload["avg_temp_c"] != 20.5 {
		t.Errorf("expected stats included, got %v", payload["avg_temp_c"])
	}
}
