// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/filters/gpucore"
	"github.com/gogpu/filters/internal/shaders"
)

// =============================================================================
// Textures
// =============================================================================

// CreateTexture creates a 2D texture and the view used to bind it.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil texture descriptor")
	}
	format, ok := textureFormat(desc.Format)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %d", ErrUnsupportedFormat, desc.Format)
	}
	w, h := desc.Size.Width, desc.Size.Height
	if w == 0 || h == 0 || w > d.limits.MaxTextureDimension2D || h > d.limits.MaxTextureDimension2D {
		return gpucore.InvalidID, fmt.Errorf("wgpu: texture size %dx%d out of range", w, h)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         d.labelOf(desc.Label),
		Size:          wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(tex, &wgpu.TextureViewDescriptor{
		Label:           d.labelOf(desc.Label + " view"),
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		tex.Release()
		return gpucore.InvalidID, fmt.Errorf("wgpu: create view of %q: %w", desc.Label, err)
	}

	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{tex: tex, view: view, size: desc.Size, usage: desc.Usage}
	return id, nil
}

// WriteTexture uploads pixel rows through the queue.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte, layout gpucore.ImageLayout, size gpucore.Extent) error {
	d.mu.Lock()
	t, err := d.textureLocked(id)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if t.usage&gpucore.TextureUsageCopyDst == 0 {
		return fmt.Errorf("%w: texture is not a copy destination", ErrUsage)
	}

	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	err = d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		data,
		&wgpu.ImageDataLayout{
			Offset:       layout.Offset,
			BytesPerRow:  layout.BytesPerRow,
			RowsPerImage: layout.RowsPerImage,
		},
		&wgpu.Extent3D{Width: size.Width, Height: size.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("wgpu: write texture: %w", err)
	}
	return nil
}

// DestroyTexture releases a texture and its view.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[id]; ok {
		t.release()
		delete(d.textures, id)
	}
}

func (d *Device) textureLocked(id gpucore.TextureID) (*texture, error) {
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", gpucore.ErrUnknownResource, id)
	}
	return t, nil
}

// =============================================================================
// Buffers
// =============================================================================

// CreateBuffer creates a GPU buffer.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if desc == nil || desc.Size == 0 || desc.Size > d.limits.MaxBufferSize {
		return gpucore.InvalidID, fmt.Errorf("wgpu: invalid buffer size")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: d.labelOf(desc.Label),
		Size:  desc.Size,
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}

	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &buffer{buf: buf, size: desc.Size, usage: desc.Usage}
	return id, nil
}

// WriteBuffer writes data into a buffer through the queue.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	b, err := d.bufferLocked(id)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if !b.usage.Has(gpucore.BufferUsageCopyDst) {
		return fmt.Errorf("%w: buffer is not a copy destination", ErrUsage)
	}

	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	if err := d.queue.WriteBuffer(b.buf, offset, data); err != nil {
		return fmt.Errorf("wgpu: write buffer: %w", err)
	}
	return nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[id]; ok {
		b.buf.Release()
		delete(d.buffers, id)
	}
}

// MapRead maps a range of a MapRead buffer and returns a copy of it. Map
// waits for the submissions writing the buffer and polls the device while
// it waits.
func (d *Device) MapRead(ctx context.Context, id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	b, err := d.bufferLocked(id)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !b.usage.Has(gpucore.BufferUsageMapRead) {
		return nil, fmt.Errorf("%w: buffer is not mappable", ErrUsage)
	}

	if err := b.buf.Map(ctx, wgpu.MapModeRead, offset, size); err != nil {
		return nil, fmt.Errorf("wgpu: map buffer: %w", err)
	}
	defer func() {
		if err := b.buf.Unmap(); err != nil {
			slogger().Warn("wgpu: unmap buffer", "error", err)
		}
	}()

	rng, err := b.buf.MappedRange(offset, size)
	if err != nil {
		return nil, fmt.Errorf("wgpu: mapped range: %w", err)
	}
	out := bytes.Clone(rng.Bytes())
	rng.Release()
	return out, nil
}

func (d *Device) bufferLocked(id gpucore.BufferID) (*buffer, error) {
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpucore.ErrUnknownResource, id)
	}
	return b, nil
}

// =============================================================================
// Samplers and Pipelines
// =============================================================================

// CreateSampler creates a clamp-to-edge sampler.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil sampler descriptor")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	filter := filterMode(desc.Filter)
	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        d.labelOf(desc.Label),
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create sampler: %w", err)
	}

	id := gpucore.SamplerID(d.newID())
	d.samplers[id] = s
	return id, nil
}

// DestroySampler releases a sampler.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.samplers[id]; ok {
		s.Release()
		delete(d.samplers, id)
	}
}

// CreateComputePipeline compiles the WGSL of a program and creates its bind
// group layouts, pipeline layout and pipeline. The shader is checked
// against the program layout first, so a mismatch is reported before the
// driver sees it.
func (d *Device) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil || !desc.Program.Valid() {
		return gpucore.InvalidID, fmt.Errorf("wgpu: invalid pipeline descriptor")
	}
	prog := desc.Program
	if err := shaders.Check(prog); err != nil {
		return gpucore.InvalidID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	p, err := d.buildPipeline(desc.Label, prog)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ComputePipelineID(d.newID())
	d.pipelines[id] = p
	slogger().Debug("wgpu: pipeline created", "program", prog.String())
	return id, nil
}

func (d *Device) buildPipeline(label string, prog gpucore.Program) (*pipeline, error) {
	p := &pipeline{program: prog}
	ok := false
	defer func() {
		if ok {
			return
		}
		for _, g := range p.groups {
			g.Release()
		}
		if p.layout != nil {
			p.layout.Release()
		}
		if p.module != nil {
			p.module.Release()
		}
	}()

	var err error
	p.module, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: d.labelOf(label + " shader"),
		WGSL:  shaders.Source(prog),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s shader: %w", prog, err)
	}

	for i, entries := range prog.Layout() {
		g, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   d.labelOf(fmt.Sprintf("%s layout %d", label, i)),
			Entries: layoutEntries(entries),
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: %s bind group layout %d: %w", prog, i, err)
		}
		p.groups = append(p.groups, g)
	}

	p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            d.labelOf(label + " layout"),
		BindGroupLayouts: p.groups,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s pipeline layout: %w", prog, err)
	}

	p.pipe, err = d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:      d.labelOf(label),
		Layout:     p.layout,
		Module:     p.module,
		EntryPoint: shaders.EntryPoint,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s pipeline: %w", prog, err)
	}
	ok = true
	return p, nil
}

// DestroyComputePipeline releases a pipeline and its layouts.
func (d *Device) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pipelines[id]; ok {
		p.release()
		delete(d.pipelines, id)
	}
}

// =============================================================================
// Bind Groups
// =============================================================================

// CreateBindGroup creates a bind group against one of the pipeline's
// layouts.
func (d *Device) CreateBindGroup(desc *gpucore.BindGroupDesc) (gpucore.BindGroupID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil bind group descriptor")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	p, ok := d.pipelines[desc.Pipeline]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline %d", gpucore.ErrUnknownResource, desc.Pipeline)
	}
	if err := p.program.CheckEntries(desc.Group, desc.Entries); err != nil {
		return gpucore.InvalidID, fmt.Errorf("%s group %d: %w", p.program, desc.Group, err)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		out, err := d.entryLocked(e)
		if err != nil {
			return gpucore.InvalidID, err
		}
		entries = append(entries, out)
	}

	g, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   d.labelOf(desc.Label),
		Layout:  p.groups[desc.Group],
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create bind group %q: %w", desc.Label, err)
	}

	id := gpucore.BindGroupID(d.newID())
	d.groups[id] = g
	return id, nil
}

func (d *Device) entryLocked(e gpucore.BindGroupEntry) (wgpu.BindGroupEntry, error) {
	out := wgpu.BindGroupEntry{Binding: e.Binding}
	switch {
	case e.Buffer != gpucore.InvalidID:
		b, err := d.bufferLocked(e.Buffer)
		if err != nil {
			return out, err
		}
		if e.Offset >= b.size {
			return out, fmt.Errorf("wgpu: binding %d offset %d past buffer end", e.Binding, e.Offset)
		}
		size := e.Size
		if size == 0 {
			size = b.size - e.Offset
		}
		out.Buffer, out.Offset, out.Size = b.buf, e.Offset, size
	case e.Sampler != gpucore.InvalidID:
		s, ok := d.samplers[e.Sampler]
		if !ok {
			return out, fmt.Errorf("%w: sampler %d", gpucore.ErrUnknownResource, e.Sampler)
		}
		out.Sampler = s
	case e.Texture != gpucore.InvalidID:
		t, err := d.textureLocked(e.Texture)
		if err != nil {
			return out, err
		}
		out.TextureView = t.view
	}
	return out, nil
}

// DestroyBindGroup releases a bind group.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if g, ok := d.groups[id]; ok {
		g.Release()
		delete(d.groups, id)
	}
}
