package filters

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/filters/gpucore"
	"github.com/gogpu/filters/internal/label"
)

// ComputeContext is a handle to a compute device shared by any number of
// operations. It lazily creates one pipeline per program and one sampler per
// filter mode and keeps them until Close.
//
// ComputeContext is safe for concurrent use: independent operations may run
// on one context from different goroutines.
type ComputeContext struct {
	device gpucore.Device
	limits gpucore.Limits
	owned  bool

	mu        sync.Mutex
	pipelines map[gpucore.Program]gpucore.ComputePipelineID
	samplers  map[gpucore.FilterMode]gpucore.SamplerID
	closed    bool
}

// NewComputeContext creates a context on device. The device must stay open
// for the lifetime of the context unless [WithOwnedDevice] hands it over.
func NewComputeContext(device gpucore.Device, opts ...ContextOption) (*ComputeContext, error) {
	if device == nil {
		return nil, errors.New("filters: device must not be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &ComputeContext{
		device:    device,
		limits:    device.Limits(),
		owned:     o.owned,
		pipelines: make(map[gpucore.Program]gpucore.ComputePipelineID),
		samplers:  make(map[gpucore.FilterMode]gpucore.SamplerID),
	}
	trackDevice(device)

	info := device.Info()
	Logger().Info("filters: compute context created",
		"device", info.Name, "backend", info.Backend, "software", info.Software)

	if o.warmup {
		for _, p := range gpucore.Programs {
			if _, err := c.pipeline(p); err != nil {
				_ = c.Close()
				return nil, fmt.Errorf("filters: warmup: %w", err)
			}
		}
	}
	return c, nil
}

// Device returns the device the context runs on.
func (c *ComputeContext) Device() gpucore.Device {
	return c.device
}

// Info describes the device the context runs on.
func (c *ComputeContext) Info() gpucore.DeviceInfo {
	return c.device.Info()
}

// Limits returns the device limits.
func (c *ComputeContext) Limits() gpucore.Limits {
	return c.limits
}

// pipeline returns the cached pipeline of p, creating it on first use.
func (c *ComputeContext) pipeline(p gpucore.Program) (gpucore.ComputePipelineID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return gpucore.InvalidID, ErrContextClosed
	}
	if id, ok := c.pipelines[p]; ok {
		return id, nil
	}

	id, err := c.device.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:   label.Pipeline(p.String()),
		Program: p,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("filters: create %s pipeline: %w", p, err)
	}
	c.pipelines[p] = id
	Logger().Debug("filters: pipeline created", "program", p.String())
	return id, nil
}

// sampler returns the cached clamp-to-edge sampler for mode.
func (c *ComputeContext) sampler(mode gpucore.FilterMode) (gpucore.SamplerID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return gpucore.InvalidID, ErrContextClosed
	}
	if id, ok := c.samplers[mode]; ok {
		return id, nil
	}

	id, err := c.device.CreateSampler(&gpucore.SamplerDesc{
		Label:  label.Title(mode.String()) + " sampler",
		Filter: mode,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("filters: create %s sampler: %w", mode, err)
	}
	c.samplers[mode] = id
	return id, nil
}

func (c *ComputeContext) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close destroys the cached pipelines and samplers, and closes the device
// if the context owns it. Close is idempotent. Operations still running on
// the context fail with [ErrContextClosed].
func (c *ComputeContext) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for p, id := range c.pipelines {
		c.device.DestroyComputePipeline(id)
		delete(c.pipelines, p)
	}
	for m, id := range c.samplers {
		c.device.DestroySampler(id)
		delete(c.samplers, m)
	}
	c.mu.Unlock()

	untrackDevice(c.device)
	if c.owned {
		if err := c.device.Close(); err != nil {
			return fmt.Errorf("filters: close device: %w", err)
		}
	}
	return nil
}
