package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slatehub/slate-core/internal/infrastructure/config"
	"github.com/slatehub/slate-core/internal/sensor"
)

// statsWindow is the window for the min/max/average figures shown
// alongside the current indoor reading.
const statsWindow = 24 * time.Hour

// indoorFetcher reads the latest reading from the local sensor store.
// Unlike the network fetchers its source of truth is in-process, but it
// goes through the same slot machinery so widgets treat all providers
// uniformly.
type indoorFetcher struct {
	store    *sensor.Store
	sensorID string
}

func newIndoorFetcher(cfg config.ProviderConfig, store *sensor.Store) (*indoorFetcher, error) {
	if store == nil {
		return nil, fmt.Errorf("indoor_sensor provider: sensor store not available")
	}

	return &indoorFetcher{
		store:    store,
		sensorID: stringOption(cfg.Options, "sensor_id", ""),
	}, nil
}

// Fetch returns the latest reading plus 24h stats.
func (f *indoorFetcher) Fetch(ctx context.Context) (Payload, error) {
	latest, err := f.store.Latest(ctx, f.sensorID)
	if err != nil {
		if errors.Is(err, sensor.ErrNoReadings) {
			return nil, fmt.Errorf("indoor sensor has not reported yet: %w", err)
		}
		return nil, fmt.Errorf("reading indoor sensor: %w", err)
	}

	payload := Payload{
		"sensor_id":     latest.SensorID,
		"temperature_c": latest.TemperatureC,
		"humidity":      latest.Humidity,
		"recorded_at":   latest.RecordedAt.Format(time.RFC3339),
	}

	// Stats are best-effort; a thin history should not fail the fetch.
	if stats, err := f.store.WindowStats(ctx, f.sensorID, statsWindow); err == nil {
		payload["min_temp_c"] = stats.MinTempC
		payload["max_temp_c"] = stats.MaxTempC
		payload["avg_temp_c"] = stats.AvgTempC
	}

	return payload, nil
}
