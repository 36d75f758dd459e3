// Package sensor stores indoor climate readings pushed to the hub by
// room sensors, either over MQTT or through the HTTP ingest endpoint.
//
// Readings persist in SQLite so the indoor_sensor provider can serve
// the latest value across hub restarts, and so layouts can show simple
// min/max/average stats for the past day.
package sensor

import (
	"time"
)

// Reading is a single climate measurement from a sensor.
type Reading struct {
	ID           int64     `json:"id"`
	SensorID     string    `json:"sensor_id"`
	TemperatureC float64   `json:"temperature_c"`
	Humidity     float64   `json:"humidity"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Stats summarises readings over a time window.
type Stats struct {
	SensorID string  `json:"sensor_id"`
	Count    int     `json:"count"`
	MinTempC float64 `json:"min_temp_c"`
	MaxTempC float64 `json:"max_temp_c"`
	AvgTempC float64 `json:"avg_temp_c"`
}
