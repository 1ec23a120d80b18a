package filters

// ContextOption configures a ComputeContext during creation.
// Use functional options to customize ComputeContext behavior.
//
// Example:
//
//	// Borrow a device and create pipelines lazily
//	fc, err := filters.NewComputeContext(dev)
//
//	// Hand the device over and build every pipeline up front
//	fc, err := filters.NewComputeContext(dev, filters.WithOwnedDevice(), filters.WithWarmup())
type ContextOption func(*contextOptions)

// contextOptions holds optional configuration for ComputeContext creation.
type contextOptions struct {
	warmup bool
	owned  bool
}

// defaultOptions returns the default context options.
func defaultOptions() contextOptions {
	return contextOptions{
		warmup: false, // Pipelines are created on first use
		owned:  false, // The caller closes the device
	}
}

// WithWarmup creates the pipeline of every program when the context is
// created, so the first filter of a chain does not pay for compilation.
// NewComputeContext fails if any pipeline cannot be created.
func WithWarmup() ContextOption {
	return func(o *contextOptions) {
		o.warmup = true
	}
}

// WithOwnedDevice transfers ownership of the device to the context:
// ComputeContext.Close also closes the device.
//
// Example:
//
//	dev, _ := backend.Open(ctx, "wgpu")
//	fc, _ := filters.NewComputeContext(dev, filters.WithOwnedDevice())
//	defer fc.Close() // closes dev as well
func WithOwnedDevice() ContextOption {
	return func(o *contextOptions) {
		o.owned = true
	}
}
