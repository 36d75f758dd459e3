package sensor

import "errors"

// Domain-specific errors for sensor operations.
var (
	// ErrNoReadings is returned when no readings exist for the requested sensor.
	ErrNoReadings = errors.New("sensor: no readings recorded")

	// ErrInvalidReading is returned when a reading fails validation.
	ErrInvalidReading = errors.New("sensor: invalid reading")
)
