package filters

import "errors"

// Sentinel errors. Failures are wrapped with the step that produced them,
// so use errors.Is to test for these.
var (
	// ErrInvalidParameter is returned when a filter parameter is out of
	// range: a zero radius, a non-positive or non-finite sigma, a zero
	// dimension, or a dimension above the device limit.
	ErrInvalidParameter = errors.New("filters: invalid parameter")

	// ErrBufferSize is returned when pixel data does not hold exactly
	// width*height RGBA8 pixels.
	ErrBufferSize = errors.New("filters: pixel data size does not match dimensions")

	// ErrReleased is returned when a released surface is used.
	ErrReleased = errors.New("filters: surface released")

	// ErrConsumed is returned when an operation is used after Execute.
	ErrConsumed = errors.New("filters: operation already executed")

	// ErrContextClosed is returned when a closed ComputeContext is used.
	ErrContextClosed = errors.New("filters: compute context closed")

	// ErrMapFailed is returned when the readback buffer cannot be mapped.
	ErrMapFailed = errors.New("filters: buffer mapping failed")
)
