package mqtt

import "fmt"

// Topic prefixes for the Slate Hub MQTT namespace.
const (
	// TopicPrefix is the base for all hub topics.
	TopicPrefix = "slatehub"

	// TopicPrefixSensor is the base for sensor ingest topics.
	TopicPrefixSensor = "slatehub/sensor"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "slatehub/system"
)

// Topics provides builders for Slate Hub MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// SensorReading returns the topic a sensor publishes readings to.
//
// Example: slatehub/sensor/esp32-living/reading
func (Topics) SensorReading(sensorID string) string {
	return fmt.Sprintf("%s/%s/reading", TopicPrefixSensor, sensorID)
}

// AllSensorReadings returns the wildcard pattern matching every sensor's
// reading topic.
func (Topics) AllSensorReadings() string {
	return TopicPrefixSensor + "/+/reading"
}

// SystemStatus returns the retained hub online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// DisplayUpdated returns the topic frame delivery events are published to.
func (Topics) DisplayUpdated() string {
	return TopicPrefix + "/display/updated"
}
