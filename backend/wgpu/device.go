// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/filters/gpucore"

	// Register every HAL backend available on this platform.
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// Errors returned by the wgpu device.
var (
	// ErrNoAdapter is returned when no GPU adapter matches the request.
	ErrNoAdapter = errors.New("wgpu: no suitable GPU adapter")

	// ErrProviderDevice is returned when a DeviceProvider does not hand out
	// gogpu/wgpu objects.
	ErrProviderDevice = errors.New("wgpu: provider does not expose a *wgpu.Device")

	// ErrUnsupportedFormat is returned for texture formats other than
	// RGBA8 unorm.
	ErrUnsupportedFormat = errors.New("wgpu: unsupported texture format")

	// ErrUsage is returned when a resource is used in a way its usage flags
	// do not allow.
	ErrUsage = errors.New("wgpu: resource usage does not allow operation")

	// ErrForeignCommandBuffer is returned when a command buffer recorded on
	// another device is submitted.
	ErrForeignCommandBuffer = errors.New("wgpu: command buffer belongs to another device")
)

type texture struct {
	tex   *wgpu.Texture
	view  *wgpu.TextureView
	size  gpucore.Extent
	usage gpucore.TextureUsage
}

func (t *texture) release() {
	t.view.Release()
	t.tex.Release()
}

type buffer struct {
	buf   *wgpu.Buffer
	size  uint64
	usage gpucore.BufferUsage
}

type pipeline struct {
	program gpucore.Program
	module  *wgpu.ShaderModule
	groups  []*wgpu.BindGroupLayout
	layout  *wgpu.PipelineLayout
	pipe    *wgpu.ComputePipeline
}

func (p *pipeline) release() {
	p.pipe.Release()
	p.layout.Release()
	for _, g := range p.groups {
		g.Release()
	}
	p.module.Release()
}

// Device implements [gpucore.Device] on a gogpu/wgpu device.
//
// Resources are addressed by IDs that map to the wgpu objects. Destroying a
// resource releases it immediately; wgpu defers the actual destruction
// until the submissions that reference it have completed.
//
// Thread safety: Device is safe for concurrent use. Queue operations are
// serialized.
type Device struct {
	mu        sync.Mutex
	textures  map[gpucore.TextureID]*texture
	buffers   map[gpucore.BufferID]*buffer
	samplers  map[gpucore.SamplerID]*wgpu.Sampler
	pipelines map[gpucore.ComputePipelineID]*pipeline
	groups    map[gpucore.BindGroupID]*wgpu.BindGroup
	closed    bool

	queueMu sync.Mutex

	nextID atomic.Uint64

	// instance and adapter are nil when the device is borrowed.
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// external is set when the device belongs to a DeviceProvider and
	// must not be released by Close.
	external bool

	info   gputypes.AdapterInfo
	limits gpucore.Limits
	label  string
}

// Option configures Open.
type Option func(*options)

type options struct {
	power    gputypes.PowerPreference
	fallback bool
	label    string
}

// WithPowerPreference selects the adapter by power preference. The default
// is high performance.
func WithPowerPreference(p gputypes.PowerPreference) Option {
	return func(o *options) { o.power = p }
}

// WithFallbackAdapter forces the software adapter. Without it Open rejects
// CPU adapters: gogpu/wgpu's software HAL accepts compute dispatches but
// does not execute them, so every filter would produce zero pixels.
func WithFallbackAdapter() Option {
	return func(o *options) { o.fallback = true }
}

// WithLabel prefixes the debug labels of every resource the device creates.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// Open creates a standalone device: it creates an instance, requests an
// adapter and opens a device on it. Resources are released in reverse
// order on failure and on Close.
//
// Open returns ErrNoAdapter when only a CPU adapter is available, unless
// WithFallbackAdapter was given.
func Open(opts ...Option) (*Device, error) {
	o := options{power: gputypes.PowerPreferenceHighPerformance, label: "filters"}
	for _, opt := range opts {
		opt(&o)
	}

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      o.power,
		ForceFallbackAdapter: o.fallback,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: %w", ErrNoAdapter, err)
	}

	if err := checkAdapter(adapter.Info(), o.fallback); err != nil {
		adapter.Release()
		instance.Release()
		return nil, err
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("wgpu: request device: %w", err)
	}

	queue := device.Queue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, errors.New("wgpu: device has no queue")
	}

	d := newDevice(device, queue, adapter.Info(), o.label)
	d.instance = instance
	d.adapter = adapter
	slogger().Info("wgpu: device opened",
		"adapter", d.info.Name, "type", d.info.DeviceType.String(), "backend", d.info.Backend.String())
	return d, nil
}

// checkAdapter rejects CPU adapters unless the fallback adapter was
// requested.
func checkAdapter(info gputypes.AdapterInfo, fallback bool) error {
	if info.DeviceType == gputypes.DeviceTypeCPU && !fallback {
		return fmt.Errorf("%w: %q is a software adapter (%s backend)", ErrNoAdapter, info.Name, info.Backend)
	}
	return nil
}

// FromProvider wraps the device of a host application. The device stays
// owned by the provider: Close releases the resources created through the
// returned Device but not the device itself.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	if provider == nil {
		return nil, ErrProviderDevice
	}
	device, ok := provider.Device().(*wgpu.Device)
	if !ok || device == nil {
		return nil, ErrProviderDevice
	}
	queue, ok := provider.Queue().(*wgpu.Queue)
	if !ok || queue == nil {
		queue = device.Queue()
	}

	info := gputypes.AdapterInfo{Name: provider.AdapterInfo().Name}
	if adapter, ok := provider.Adapter().(*wgpu.Adapter); ok && adapter != nil {
		info = adapter.Info()
	}

	d := newDevice(device, queue, info, "filters")
	d.external = true
	slogger().Info("wgpu: using shared device", "adapter", d.info.Name)
	return d, nil
}

func newDevice(device *wgpu.Device, queue *wgpu.Queue, info gputypes.AdapterInfo, label string) *Device {
	return &Device{
		textures:  make(map[gpucore.TextureID]*texture),
		buffers:   make(map[gpucore.BufferID]*buffer),
		samplers:  make(map[gpucore.SamplerID]*wgpu.Sampler),
		pipelines: make(map[gpucore.ComputePipelineID]*pipeline),
		groups:    make(map[gpucore.BindGroupID]*wgpu.BindGroup),
		device:    device,
		queue:     queue,
		info:      info,
		limits:    limits(device.Limits()),
		label:     label,
	}
}

// SetLogger sets the logger for the wgpu backend.
func (d *Device) SetLogger(l *slog.Logger) {
	setLogger(l)
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1)
}

func (d *Device) labelOf(name string) string {
	if d.label == "" {
		return name
	}
	return d.label + ": " + name
}

// Info describes the adapter the device runs on.
func (d *Device) Info() gpucore.DeviceInfo {
	return gpucore.DeviceInfo{
		Name:     d.info.Name,
		Backend:  "wgpu/" + d.info.Backend.String(),
		Software: d.info.DeviceType == gputypes.DeviceTypeCPU,
	}
}

// Limits returns the limits of the wgpu device.
func (d *Device) Limits() gpucore.Limits {
	return d.limits
}

// Device returns the underlying *wgpu.Device.
func (d *Device) Device() gpucontext.Device {
	return d.device
}

// Queue returns the underlying *wgpu.Queue.
func (d *Device) Queue() gpucontext.Queue {
	return d.queue
}

// Adapter returns the underlying *wgpu.Adapter, or nil when the device
// belongs to a provider.
func (d *Device) Adapter() gpucontext.Adapter {
	if d.adapter == nil {
		return nil
	}
	return d.adapter
}

// SurfaceFormat returns the format of every texture the device creates.
func (d *Device) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// AdapterInfo describes the adapter for gpucontext consumers.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{
		Name: d.info.Name,
		Type: adapterType(d.info.DeviceType),
	}
}

// Close releases every resource created through the device, then the
// device, adapter and instance unless they belong to a provider.
// Close is idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for id, g := range d.groups {
		g.Release()
		delete(d.groups, id)
	}
	for id, p := range d.pipelines {
		p.release()
		delete(d.pipelines, id)
	}
	for id, s := range d.samplers {
		s.Release()
		delete(d.samplers, id)
	}
	for id, b := range d.buffers {
		b.buf.Release()
		delete(d.buffers, id)
	}
	for id, t := range d.textures {
		t.release()
		delete(d.textures, id)
	}
	d.mu.Unlock()

	if d.external {
		return nil
	}

	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("wgpu: wait idle on close", "error", err)
	}
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
	slogger().Debug("wgpu: device closed", "adapter", d.info.Name)
	return nil
}

var (
	_ gpucore.Device            = (*Device)(nil)
	_ gpucontext.DeviceProvider = (*Device)(nil)
)
