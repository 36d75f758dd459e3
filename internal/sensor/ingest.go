package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/slatehub/slate-core/internal/infrastructure/logging"
	"github.com/slatehub/slate-core/internal/infrastructure/mqtt"
)

// ingestQoS is the QoS level for sensor reading subscriptions.
// At-least-once is fine; duplicate readings are harmless.
const ingestQoS = 1

// Subscriber is the MQTT capability the ingestor needs.
// Satisfied by *mqtt.Client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// readingPayload is the JSON body sensors publish.
// sensor_id in the payload is optional; the topic segment wins.
type readingPayload struct {
	SensorID     string   `json:"sensor_id,omitempty"`
	TemperatureC *float64 `json:"temperature_c"`
	Humidity     *float64 `json:"humidity"`
	RecordedAt   string   `json:"recorded_at,omitempty"`
}

// Ingestor subscribes to sensor reading topics and persists readings.
type Ingestor struct {
	store  *Store
	logger *logging.Logger

	// onReading is an optional hook invoked after a reading is stored,
	// used to fan out to the InfluxDB exporter.
	onReading func(r *Reading)
}

// NewIngestor creates a sensor ingestor writing to the given store.
func NewIngestor(store *Store, logger *logging.Logger) *Ingestor {
	return &Ingestor{store: store, logger: logger}
}

// SetOnReading registers a hook called after each stored reading.
func (i *Ingestor) SetOnReading(fn func(r *Reading)) {
	i.onReading = fn
}

// Start subscribes to the sensor reading wildcard topic.
func (i *Ingestor) Start(sub Subscriber) error {
	topic := mqtt.Topics{}.AllSensorReadings()
	if err := sub.Subscribe(topic, ingestQoS, i.handleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	i.logger.Info("sensor ingest started", "topic", topic)
	return nil
}

// handleMessage parses and stores a single published reading.
func (i *Ingestor) handleMessage(topic string, payload []byte) error {
	sensorID := sensorIDFromTopic(topic)
	if sensorID == "" {
		return fmt.Errorf("%w: cannot extract sensor id from topic %q", ErrInvalidReading, topic)
	}

	var body readingPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("%w: malformed JSON: %w", ErrInvalidReading, err)
	}
	if body.TemperatureC == nil {
		return fmt.Errorf("%w: temperature_c is required", ErrInvalidReading)
	}

	reading := Reading{
		SensorID:     sensorID,
		TemperatureC: *body.TemperatureC,
	}
	if body.Humidity != nil {
		reading.Humidity = *body.Humidity
	}
	if body.RecordedAt != "" {
		if t, err := time.Parse(time.RFC3339, body.RecordedAt); err == nil {
			reading.RecordedAt = t
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.store.Insert(ctx, &reading); err != nil {
		return fmt.Errorf("storing reading from %s: %w", sensorID, err)
	}

	i.logger.Debug("sensor reading stored",
		"sensor_id", sensorID,
		"temperature_c", reading.TemperatureC,
		"humidity", reading.Humidity,
	)

	if i.onReading != nil {
		i.onReading(&reading)
	}

	return nil
}

// sensorIDFromTopic extracts the sensor ID from slatehub/sensor/{id}/reading.
func sensorIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "slatehub" || parts[1] != "sensor" || parts[3] != "reading" {
		return ""
	}
	return parts[2]
}
