package backend

import "errors"

// Backend names.
const (
	// Wgpu is the gogpu/wgpu compute backend.
	Wgpu = "wgpu"

	// Reference is the CPU reference backend.
	Reference = "reference"

	// Default is the backend opened when none is requested.
	Default = Wgpu
)

var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNilDevice is returned when a factory reports success without a device.
	ErrNilDevice = errors.New("backend: factory returned nil device")
)
