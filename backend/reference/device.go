package reference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/filters/backend"
	"github.com/gogpu/filters/gpucore"
	"github.com/gogpu/filters/internal/parallel"
)

// Errors returned by the reference device.
var (
	// ErrInvalidDescriptor is returned when a resource descriptor is invalid
	// or exceeds the device limits.
	ErrInvalidDescriptor = errors.New("reference: invalid descriptor")

	// ErrUsage is returned when a resource is used in a way its usage flags
	// do not allow.
	ErrUsage = errors.New("reference: resource usage does not allow operation")

	// ErrOutOfBounds is returned when a write, copy or binding range falls
	// outside its resource.
	ErrOutOfBounds = errors.New("reference: range out of bounds")

	// ErrDispatchLimit is returned when a dispatch exceeds
	// MaxComputeWorkgroupsPerDimension.
	ErrDispatchLimit = errors.New("reference: dispatch exceeds workgroup limit")
)

type texture struct {
	label string
	size  gpucore.Extent
	usage gpucore.TextureUsage
	pix   []byte
}

func (t *texture) stride() int { return int(t.size.Width) * 4 }

type buffer struct {
	label string
	usage gpucore.BufferUsage
	data  []byte
}

type pipeline struct {
	label   string
	program gpucore.Program
}

type bindGroup struct {
	label   string
	program gpucore.Program
	group   uint32
	entries []gpucore.BindGroupEntry
}

// Device is a CPU implementation of [gpucore.Device].
//
// Thread safety: Device is safe for concurrent use. Submissions execute one
// at a time in submission order.
type Device struct {
	mu        sync.Mutex
	textures  map[gpucore.TextureID]*texture
	buffers   map[gpucore.BufferID]*buffer
	samplers  map[gpucore.SamplerID]gpucore.FilterMode
	pipelines map[gpucore.ComputePipelineID]*pipeline
	groups    map[gpucore.BindGroupID]*bindGroup
	trace     []Dispatch
	closed    bool

	// queueMu serializes command buffer execution.
	queueMu sync.Mutex

	nextID atomic.Uint64
	limits gpucore.Limits
	pool   *parallel.WorkerPool
}

// Option configures a Device.
type Option func(*options)

type options struct {
	workers int
	limits  gpucore.Limits
}

// WithWorkers sets the number of worker goroutines. Zero or negative
// selects GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLimits overrides the device limits, which default to
// [gpucore.DefaultLimits].
func WithLimits(l gpucore.Limits) Option {
	return func(o *options) { o.limits = l }
}

// New creates a reference device.
func New(opts ...Option) *Device {
	o := options{limits: gpucore.DefaultLimits()}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		textures:  make(map[gpucore.TextureID]*texture),
		buffers:   make(map[gpucore.BufferID]*buffer),
		samplers:  make(map[gpucore.SamplerID]gpucore.FilterMode),
		pipelines: make(map[gpucore.ComputePipelineID]*pipeline),
		groups:    make(map[gpucore.BindGroupID]*bindGroup),
		limits:    o.limits,
		pool:      parallel.NewWorkerPool(o.workers),
	}
	slogger().Debug("reference: device created", "workers", d.pool.Workers())
	return d
}

// SetLogger sets the logger for the reference backend.
func (d *Device) SetLogger(l *slog.Logger) {
	setLogger(l)
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1)
}

// Info describes the device.
func (d *Device) Info() gpucore.DeviceInfo {
	return gpucore.DeviceInfo{
		Name:     "CPU reference device",
		Backend:  backend.Reference,
		Software: true,
	}
}

// Limits returns the device limits.
func (d *Device) Limits() gpucore.Limits {
	return d.limits
}

// CreateTexture creates a zero-filled rgba8unorm texture.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil || desc.Format != gpucore.TextureFormatRGBA8Unorm {
		return gpucore.InvalidID, fmt.Errorf("%w: texture format", ErrInvalidDescriptor)
	}
	w, h := desc.Size.Width, desc.Size.Height
	if w == 0 || h == 0 || w > d.limits.MaxTextureDimension2D || h > d.limits.MaxTextureDimension2D {
		return gpucore.InvalidID, fmt.Errorf("%w: texture size %dx%d", ErrInvalidDescriptor, w, h)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{
		label: desc.Label,
		size:  desc.Size,
		usage: desc.Usage,
		pix:   make([]byte, int(w)*int(h)*4),
	}
	return id, nil
}

// WriteTexture copies rows of data into the texture starting at the origin.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte, layout gpucore.ImageLayout, size gpucore.Extent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.ErrDeviceClosed
	}

	t, ok := d.textures[id]
	if !ok {
		return gpucore.ErrUnknownResource
	}
	if t.usage&gpucore.TextureUsageCopyDst == 0 {
		return fmt.Errorf("%w: write to %q without CopyDst", ErrUsage, t.label)
	}
	if size.Width > t.size.Width || size.Height > t.size.Height {
		return fmt.Errorf("%w: write %dx%d into %dx%d", ErrOutOfBounds,
			size.Width, size.Height, t.size.Width, t.size.Height)
	}

	row := int(size.Width) * 4
	if int(layout.BytesPerRow) < row {
		return fmt.Errorf("%w: bytes per row %d < %d", ErrOutOfBounds, layout.BytesPerRow, row)
	}
	if size.Height > 0 {
		last := int(layout.Offset) + int(size.Height-1)*int(layout.BytesPerRow) + row
		if last > len(data) {
			return fmt.Errorf("%w: data has %d bytes, need %d", ErrOutOfBounds, len(data), last)
		}
	}

	for y := 0; y < int(size.Height); y++ {
		src := int(layout.Offset) + y*int(layout.BytesPerRow)
		copy(t.pix[y*t.stride():y*t.stride()+row], data[src:src+row])
	}
	return nil
}

// DestroyTexture releases a texture.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, id)
}

// CreateBuffer creates a zero-filled buffer.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if desc == nil || desc.Size == 0 || desc.Size > d.limits.MaxBufferSize {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer size", ErrInvalidDescriptor)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &buffer{
		label: desc.Label,
		usage: desc.Usage,
		data:  make([]byte, desc.Size),
	}
	return id, nil
}

// WriteBuffer writes data into the buffer at offset.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.ErrDeviceClosed
	}

	b, ok := d.buffers[id]
	if !ok {
		return gpucore.ErrUnknownResource
	}
	if !b.usage.Has(gpucore.BufferUsageCopyDst) {
		return fmt.Errorf("%w: write to %q without CopyDst", ErrUsage, b.label)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("%w: write [%d, %d) into %d bytes", ErrOutOfBounds,
			offset, offset+uint64(len(data)), len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, id)
}

// MapRead returns a copy of the buffer range. Submissions complete before
// Submit returns, so no waiting is needed beyond the queue lock.
func (d *Device) MapRead(ctx context.Context, id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}

	b, ok := d.buffers[id]
	if !ok {
		return nil, gpucore.ErrUnknownResource
	}
	if !b.usage.Has(gpucore.BufferUsageMapRead) {
		return nil, fmt.Errorf("%w: map %q without MapRead", ErrUsage, b.label)
	}
	if offset+size > uint64(len(b.data)) {
		return nil, fmt.Errorf("%w: map [%d, %d) of %d bytes", ErrOutOfBounds,
			offset, offset+size, len(b.data))
	}

	out := make([]byte, size)
	copy(out, b.data[offset:offset+size])
	return out, nil
}

// CreateSampler creates a clamp-to-edge sampler.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	if desc == nil || (desc.Filter != gpucore.FilterNearest && desc.Filter != gpucore.FilterLinear) {
		return gpucore.InvalidID, fmt.Errorf("%w: sampler filter", ErrInvalidDescriptor)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	id := gpucore.SamplerID(d.newID())
	d.samplers[id] = desc.Filter
	return id, nil
}

// DestroySampler releases a sampler.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.samplers, id)
}

// CreateComputePipeline creates a pipeline for a program.
func (d *Device) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil || !desc.Program.Valid() {
		return gpucore.InvalidID, fmt.Errorf("%w: unknown program", ErrInvalidDescriptor)
	}
	ws := desc.Program.WorkgroupSize()
	if ws[0]*ws[1]*ws[2] > d.limits.MaxComputeInvocationsPerWorkgroup {
		return gpucore.InvalidID, fmt.Errorf("%w: workgroup %v exceeds limits", ErrInvalidDescriptor, ws)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	id := gpucore.ComputePipelineID(d.newID())
	d.pipelines[id] = &pipeline{label: desc.Label, program: desc.Program}
	slogger().Debug("reference: pipeline created", "label", desc.Label, "program", desc.Program.String())
	return id, nil
}

// DestroyComputePipeline releases a compute pipeline.
func (d *Device) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pipelines, id)
}

// CreateBindGroup validates the entries against the program layout and
// records them. Resources are resolved when a dispatch executes.
func (d *Device) CreateBindGroup(desc *gpucore.BindGroupDesc) (gpucore.BindGroupID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil bind group", ErrInvalidDescriptor)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	p, ok := d.pipelines[desc.Pipeline]
	if !ok {
		return gpucore.InvalidID, gpucore.ErrUnknownResource
	}
	if err := p.program.CheckEntries(desc.Group, desc.Entries); err != nil {
		return gpucore.InvalidID, fmt.Errorf("reference: bind group %q: %w", desc.Label, err)
	}
	for _, e := range desc.Entries {
		if err := d.checkEntryLocked(e); err != nil {
			return gpucore.InvalidID, fmt.Errorf("reference: bind group %q: %w", desc.Label, err)
		}
	}

	id := gpucore.BindGroupID(d.newID())
	d.groups[id] = &bindGroup{
		label:   desc.Label,
		program: p.program,
		group:   desc.Group,
		entries: append([]gpucore.BindGroupEntry(nil), desc.Entries...),
	}
	return id, nil
}

func (d *Device) checkEntryLocked(e gpucore.BindGroupEntry) error {
	switch {
	case e.Buffer != gpucore.InvalidID:
		b, ok := d.buffers[e.Buffer]
		if !ok {
			return gpucore.ErrUnknownResource
		}
		if !b.usage.Has(gpucore.BufferUsageUniform) && !b.usage.Has(gpucore.BufferUsageStorage) {
			return fmt.Errorf("%w: buffer %q is not bindable", ErrUsage, b.label)
		}
		if e.Offset+e.Size > uint64(len(b.data)) || e.Offset >= uint64(len(b.data)) {
			return fmt.Errorf("%w: binding [%d, +%d) of %d bytes", ErrOutOfBounds, e.Offset, e.Size, len(b.data))
		}
	case e.Texture != gpucore.InvalidID:
		if _, ok := d.textures[e.Texture]; !ok {
			return gpucore.ErrUnknownResource
		}
	case e.Sampler != gpucore.InvalidID:
		if _, ok := d.samplers[e.Sampler]; !ok {
			return gpucore.ErrUnknownResource
		}
	}
	return nil
}

// DestroyBindGroup releases a bind group.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.groups, id)
}

// Close releases all resources and stops the worker pool.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	leaked := len(d.textures) + len(d.buffers) + len(d.groups)
	clear(d.textures)
	clear(d.buffers)
	clear(d.samplers)
	clear(d.pipelines)
	clear(d.groups)
	d.mu.Unlock()

	d.queueMu.Lock()
	d.pool.Close()
	d.queueMu.Unlock()

	if leaked > 0 {
		slogger().Debug("reference: released resources on close", "count", leaked)
	}
	return nil
}

// LiveTextures returns the number of textures not yet destroyed.
func (d *Device) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.textures)
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// LiveBindGroups returns the number of bind groups not yet destroyed.
func (d *Device) LiveBindGroups() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.groups)
}

// Dispatch is one executed dispatch, as recorded in the trace.
type Dispatch struct {
	// Label is the label of the command buffer the dispatch came from.
	Label string

	// Program is the program that ran.
	Program gpucore.Program

	// Groups is the dispatch grid in workgroups.
	Groups gpucore.Groups

	// Orientation is the orientation uniform of blur passes: 1 for the
	// vertical pass, 0 for the horizontal one. It is -1 for other programs.
	Orientation int

	// Input and Output are the sizes of the bound textures.
	Input  gpucore.Extent
	Output gpucore.Extent

	// InputTexture and OutputTexture identify the bound textures.
	InputTexture  gpucore.TextureID
	OutputTexture gpucore.TextureID
}

// Trace returns the dispatches executed since the last ResetTrace.
func (d *Device) Trace() []Dispatch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Dispatch(nil), d.trace...)
}

// ResetTrace clears the dispatch trace.
func (d *Device) ResetTrace() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trace = d.trace[:0]
}
