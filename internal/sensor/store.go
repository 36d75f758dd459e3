package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Validation bounds for incoming readings. Values outside these ranges
// indicate a sensor fault or a malformed payload.
const (
	minTemperatureC = -40.0
	maxTemperatureC = 85.0
	minHumidity     = 0.0
	maxHumidity     = 100.0
)

// Store persists sensor readings in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a sensor reading store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert validates and records a reading. RecordedAt defaults to now.
func (s *Store) Insert(ctx context.Context, r *Reading) error {
	if r.SensorID == "" {
		return fmt.Errorf("%w: sensor_id is required", ErrInvalidReading)
	}
	if r.TemperatureC < minTemperatureC || r.TemperatureC > maxTemperatureC {
		return fmt.Errorf("%w: temperature %.1f out of range", ErrInvalidReading, r.TemperatureC)
	}
	if r.Humidity < minHumidity || r.Humidity > maxHumidity {
		return fmt.Errorf("%w: humidity %.1f out of range", ErrInvalidReading, r.Humidity)
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO sensor_readings (sensor_id, temperature_c, humidity, recorded_at)
		 VALUES (?, ?, ?, ?)`,
		r.SensorID, r.TemperatureC, r.Humidity, r.RecordedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting sensor reading: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		r.ID = id
	}

	return nil
}

// Latest returns the most recent reading. When sensorID is empty the
// most recent reading across all sensors is returned.
func (s *Store) Latest(ctx context.Context, sensorID string) (*Reading, error) {
	query := `SELECT id, sensor_id, temperature_c, humidity, recorded_at
	          FROM sensor_readings`
	var args []any
	if sensorID != "" {
		query += " WHERE sensor_id = ?"
		args = append(args, sensorID)
	}
	query += " ORDER BY recorded_at DESC, id DESC LIMIT 1"

	var r Reading
	var recordedAt string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&r.ID, &r.SensorID, &r.TemperatureC, &r.Humidity, &recordedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoReadings
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest reading: %w", err)
	}

	t, err := time.Parse(time.RFC3339, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing reading timestamp %q: %w", recordedAt, err)
	}
	r.RecordedAt = t

	return &r, nil
}

// Readings returns readings recorded within the past window, oldest first.
func (s *Store) Readings(ctx context.Context, sensorID string, window time.Duration) ([]Reading, error) {
	since := time.Now().UTC().Add(-window).Format(time.RFC3339)

	query := `SELECT id, sensor_id, temperature_c, humidity, recorded_at
	          FROM sensor_readings WHERE recorded_at >= ?`
	args := []any{since}
	if sensorID != "" {
		query += " AND sensor_id = ?"
		args = append(args, sensorID)
	}
	query += " ORDER BY recorded_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var r Reading
		var recordedAt string
		if err := rows.Scan(&r.ID, &r.SensorID, &r.TemperatureC, &r.Humidity, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		t, err := time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing reading timestamp %q: %w", recordedAt, err)
		}
		r.RecordedAt = t
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}

	if readings == nil {
		readings = []Reading{}
	}
	return readings, nil
}

// WindowStats computes min/max/average temperature over the past window.
func (s *Store) WindowStats(ctx context.Context, sensorID string, window time.Duration) (*Stats, error) {
	since := time.Now().UTC().Add(-window).Format(time.RFC3339)

	query := `SELECT COUNT(*), COALESCE(MIN(temperature_c), 0),
	                 COALESCE(MAX(temperature_c), 0), COALESCE(AVG(temperature_c), 0)
	          FROM sensor_readings WHERE recorded_at >= ?`
	args := []any{since}
	if sensorID != "" {
		query += " AND sensor_id = ?"
		args = append(args, sensorID)
	}

	stats := Stats{SensorID: sensorID}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.Count, &stats.MinTempC, &stats.MaxTempC, &stats.AvgTempC,
	)
	if err != nil {
		return nil, fmt.Errorf("computing sensor stats: %w", err)
	}
	if stats.Count == 0 {
		return nil, ErrNoReadings
	}

	return &stats, nil
}

// Sensors returns the distinct sensor IDs that have reported readings.
func (s *Store) Sensors(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT sensor_id FROM sensor_readings ORDER BY sensor_id`)
	if err != nil {
		return nil, fmt.Errorf("querying sensors: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning sensor id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensors: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Prune deletes readings older than the retention window and returns
// the number of rows removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sensor_readings WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning sensor readings: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // rows affected is informational only
	}
	return n, nil
}
