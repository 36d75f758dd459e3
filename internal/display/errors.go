package display

import "errors"

// Domain-specific errors for display operations.
var (
	// ErrUnknownMode is returned for a mode string that is neither
	// manual nor auto_rotate.
	ErrUnknownMode = errors.New("display: unknown mode")

	// ErrNoRotationSequence is returned when AutoRotate is requested
	// with an empty layout sequence.
	ErrNoRotationSequence = errors.New("display: rotation sequence is empty")

	// ErrPushFailed wraps transport failures.
	ErrPushFailed = errors.New("display: push failed")
)
