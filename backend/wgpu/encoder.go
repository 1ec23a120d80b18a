// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/filters/gpucore"
)

// ErrEncoderFinished is returned when an encoder is used after Finish.
var ErrEncoderFinished = errors.New("wgpu: encoder already finished")

// commandEncoder records into a wgpu command encoder. Resource lookups that
// fail are remembered and reported by End or Finish.
type commandEncoder struct {
	dev      *Device
	enc      *wgpu.CommandEncoder
	label    string
	err      error
	finished bool
}

// CreateCommandEncoder begins recording a command buffer.
func (d *Device) CreateCommandEncoder(label string) (gpucore.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: d.labelOf(label)})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	return &commandEncoder{dev: d, enc: enc, label: label}, nil
}

func (e *commandEncoder) setError(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *commandEncoder) BeginComputePass(label string) (gpucore.ComputePassEncoder, error) {
	if e.finished {
		return nil, ErrEncoderFinished
	}
	p, err := e.enc.BeginComputePass(&wgpu.ComputePassDescriptor{Label: e.dev.labelOf(label)})
	if err != nil {
		return nil, fmt.Errorf("wgpu: begin compute pass: %w", err)
	}
	return &computePass{enc: e, pass: p}, nil
}

func (e *commandEncoder) CopyTextureToBuffer(src gpucore.TextureID, dst gpucore.BufferID, layout gpucore.ImageLayout, size gpucore.Extent) {
	if e.finished {
		e.setError(ErrEncoderFinished)
		return
	}
	if layout.BytesPerRow%gpucore.CopyBytesPerRowAlignment != 0 {
		e.setError(fmt.Errorf("wgpu: bytes per row %d not a multiple of %d",
			layout.BytesPerRow, gpucore.CopyBytesPerRowAlignment))
		return
	}

	d := e.dev
	d.mu.Lock()
	t, err := d.textureLocked(src)
	if err == nil {
		var b *buffer
		b, err = d.bufferLocked(dst)
		if err == nil {
			e.enc.CopyTextureToBuffer(t.tex, b.buf, []wgpu.BufferTextureCopy{{
				BufferLayout: wgpu.ImageDataLayout{
					Offset:       layout.Offset,
					BytesPerRow:  layout.BytesPerRow,
					RowsPerImage: layout.RowsPerImage,
				},
				TextureBase: wgpu.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
				Size:        wgpu.Extent3D{Width: size.Width, Height: size.Height, DepthOrArrayLayers: 1},
			}})
		}
	}
	d.mu.Unlock()
	if err != nil {
		e.setError(fmt.Errorf("wgpu: copy texture to buffer: %w", err))
	}
}

func (e *commandEncoder) Finish() (gpucore.CommandBuffer, error) {
	if e.finished {
		return nil, ErrEncoderFinished
	}
	e.finished = true
	if e.err != nil {
		e.enc.DiscardEncoding()
		return nil, e.err
	}
	cb, err := e.enc.Finish()
	if err != nil {
		return nil, fmt.Errorf("wgpu: finish %q: %w", e.label, err)
	}
	return &commandBuffer{dev: e.dev, cb: cb, label: e.label}, nil
}

// computePass wraps a wgpu compute pass encoder.
type computePass struct {
	enc  *commandEncoder
	pass *wgpu.ComputePassEncoder
	err  error
}

func (p *computePass) SetPipeline(id gpucore.ComputePipelineID) {
	d := p.enc.dev
	d.mu.Lock()
	pl, ok := d.pipelines[id]
	d.mu.Unlock()
	if !ok {
		p.fail(fmt.Errorf("%w: pipeline %d", gpucore.ErrUnknownResource, id))
		return
	}
	p.pass.SetPipeline(pl.pipe)
}

func (p *computePass) SetBindGroup(index uint32, id gpucore.BindGroupID) {
	d := p.enc.dev
	d.mu.Lock()
	g, ok := d.groups[id]
	d.mu.Unlock()
	if !ok {
		p.fail(fmt.Errorf("%w: bind group %d", gpucore.ErrUnknownResource, id))
		return
	}
	p.pass.SetBindGroup(index, g, nil)
}

func (p *computePass) Dispatch(x, y, z uint32) {
	if p.err != nil {
		return
	}
	p.pass.Dispatch(x, y, z)
}

func (p *computePass) End() error {
	endErr := p.pass.End()
	if p.err != nil {
		return p.err
	}
	if endErr != nil {
		err := fmt.Errorf("wgpu: end compute pass: %w", endErr)
		p.enc.setError(err)
		return err
	}
	return nil
}

func (p *computePass) fail(err error) {
	if p.err == nil {
		p.err = err
		p.enc.setError(err)
	}
}

// commandBuffer is a finished wgpu command buffer.
type commandBuffer struct {
	dev   *Device
	cb    *wgpu.CommandBuffer
	label string
}

func (c *commandBuffer) Label() string { return c.label }

// Submit submits command buffers to the queue in order. Buffers that are
// not submitted because of an error are released.
func (d *Device) Submit(buffers ...gpucore.CommandBuffer) error {
	cbs := make([]*wgpu.CommandBuffer, 0, len(buffers))
	release := func() {
		for _, cb := range cbs {
			cb.Release()
		}
	}
	for _, b := range buffers {
		cb, ok := b.(*commandBuffer)
		if !ok || cb.dev != d {
			release()
			return ErrForeignCommandBuffer
		}
		cbs = append(cbs, cb.cb)
	}

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		release()
		return gpucore.ErrDeviceClosed
	}

	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	if _, err := d.queue.Submit(cbs...); err != nil {
		release()
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	return nil
}
