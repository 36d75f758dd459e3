// Package mqtt provides the MQTT client for Slate Hub.
//
// MQTT is an optional transport: battery-powered room sensors publish
// readings to slatehub/sensor/{id}/reading, and the hub publishes display
// delivery events and a retained online/offline status. When the broker is
// unreachable or MQTT is disabled in config.yaml, sensor ingest falls back
// to the HTTP endpoint alone.
//
// The client wraps eclipse/paho.mqtt.golang with reconnect handling,
// automatic re-subscription, panic recovery around handlers, and
// timeout-bounded publish/subscribe calls.
package mqtt
