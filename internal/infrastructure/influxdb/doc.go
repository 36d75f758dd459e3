// Package influxdb provides optional time-series export for Slate Hub.
//
// When enabled, sensor readings, provider fetch outcomes, and frame
// delivery results are written to an InfluxDB v2 bucket for long-term
// trend analysis. The hub's own behaviour never depends on InfluxDB:
// writes are fire-and-forget, and a missing or unhealthy server only
// degrades export, not rendering.
package influxdb
