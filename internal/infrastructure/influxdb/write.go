package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading records an indoor sensor reading.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Humidity may be negative to indicate "not reported", in which case the
// field is omitted.
func (c *Client) WriteSensorReading(sensorID string, temperatureC float64, humidity float64) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"temperature_c": temperatureC,
	}
	if humidity >= 0 {
		fields["humidity"] = humidity
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"sensor_id": sensorID,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteProviderFetch records the outcome of a provider fetch cycle.
// Useful for spotting flaky upstream APIs over time.
func (c *Client) WriteProviderFetch(provider string, success bool, durationMs int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"provider_fetches",
		map[string]string{
			"provider": provider,
		},
		map[string]interface{}{
			"success":     success,
			"duration_ms": durationMs,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteFrameDelivery records a display push attempt.
func (c *Client) WriteFrameDelivery(layout string, delivered bool, degraded bool, durationMs int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"frame_deliveries",
		map[string]string{
			"layout": layout,
		},
		map[string]interface{}{
			"delivered":   delivered,
			"degraded":    degraded,
			"duration_ms": durationMs,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements that do not fit the
// helper methods. Tags should stay low cardinality.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
