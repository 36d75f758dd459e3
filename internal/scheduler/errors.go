package scheduler

import "errors"

// Domain-specific errors for scheduler operations.
var (
	// ErrJobNotFound is returned when no job with the given key exists.
	ErrJobNotFound = errors.New("scheduler: job not found")

	// ErrInvalidJob is returned for an empty key, nil function, or
	// non-positive cadence.
	ErrInvalidJob = errors.New("scheduler: invalid job definition")
)
