package provider

import "errors"

// Domain-specific errors for provider operations.
var (
	// ErrNotFound is returned when no provider with the given name exists.
	ErrNotFound = errors.New("provider: not found")

	// ErrFetchFailed wraps fetcher failures so callers can distinguish
	// them from lookup errors.
	ErrFetchFailed = errors.New("provider: fetch failed")

	// ErrUnknownType is returned when configuration names a fetcher type
	// with no implementation.
	ErrUnknownType = errors.New("provider: unknown fetcher type")
)
