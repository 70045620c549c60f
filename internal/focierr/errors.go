// Package focierr defines the error kinds surfaced by the findmaxima pipeline.
package focierr

import "errors"

// Sentinel error kinds, matched with errors.Is. None of these are logged
// and swallowed: every stage that returns one also propagates it to the
// caller unchanged (wrapped with context via fmt.Errorf("%w", ...)).
var (
	// ErrUnsupportedImage is returned when the pixel format is not one of
	// {8-bit, 16-bit, float-32}, or the image carries extra channels/frames.
	ErrUnsupportedImage = errors.New("findmaxima: unsupported image format")

	// ErrCapacityExceeded is returned when the seed count exceeds the
	// configured search capacity. Too many peaks for mask output is
	// reported as ErrTooManyPeaks instead.
	ErrCapacityExceeded = errors.New("findmaxima: capacity exceeded")

	// ErrInvalidConfiguration is returned for mutually exclusive options,
	// an unknown auto-threshold name, or inconsistent mask dimensions.
	ErrInvalidConfiguration = errors.New("findmaxima: invalid configuration")

	// ErrCancelled is returned when cooperative cancellation is observed
	// between pipeline stages.
	ErrCancelled = errors.New("findmaxima: cancelled")

	// ErrTooManyPeaks is returned by mask rasterization when the surviving
	// peak count exceeds the fixed 65535 label capacity.
	ErrTooManyPeaks = errors.New("findmaxima: too many peaks for mask output")
)
