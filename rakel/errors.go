package rakel

import "github.com/pkg/errors"

var (
	// ErrInvalidConfig is returned for option values outside their
	// documented ranges.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCapacityExceeded is returned when every distinct labelset of the
	// requested size has already been drawn.
	ErrCapacityExceeded = errors.New("labelset capacity exceeded")

	// ErrUnderCoverage is returned when a confidence is requested for a label
	// that no absorbed slot has voted on.
	ErrUnderCoverage = errors.New("label not covered by any slot")

	// ErrModelReleased is returned when predicting with a slot whose trained
	// model has been released.
	ErrModelReleased = errors.New("slot model has been released")

	// ErrDimensionMismatch is returned when an example does not match the
	// layout of a dataset or schema.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
