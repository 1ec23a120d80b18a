package reference

import (
	"errors"
	"fmt"

	"github.com/gogpu/filters/gpucore"
)

var (
	// ErrEncoderFinished is returned when an encoder is used after Finish.
	ErrEncoderFinished = errors.New("reference: encoder already finished")

	// ErrPassOpen is returned when a command is recorded while a compute
	// pass is still open.
	ErrPassOpen = errors.New("reference: compute pass not ended")

	// ErrNoPipeline is returned by End when Dispatch ran without a pipeline.
	ErrNoPipeline = errors.New("reference: dispatch without pipeline")

	// ErrForeignCommandBuffer is returned when Submit receives a command
	// buffer produced by another device.
	ErrForeignCommandBuffer = errors.New("reference: command buffer from another device")
)

// command is one recorded operation.
type command interface {
	isCommand()
}

type dispatchCommand struct {
	pipeline gpucore.ComputePipelineID
	groups   map[uint32]gpucore.BindGroupID
	x, y, z  uint32
}

type copyCommand struct {
	src    gpucore.TextureID
	dst    gpucore.BufferID
	layout gpucore.ImageLayout
	size   gpucore.Extent
}

func (dispatchCommand) isCommand() {}
func (copyCommand) isCommand()     {}

// commandEncoder implements gpucore.CommandEncoder.
type commandEncoder struct {
	device   *Device
	label    string
	commands []command
	pass     *computePass
	finished bool
	err      error
}

// CreateCommandEncoder begins recording a command buffer.
func (d *Device) CreateCommandEncoder(label string) (gpucore.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	return &commandEncoder{device: d, label: label}, nil
}

func (e *commandEncoder) setErr(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *commandEncoder) BeginComputePass(label string) (gpucore.ComputePassEncoder, error) {
	if e.finished {
		return nil, ErrEncoderFinished
	}
	if e.pass != nil {
		return nil, ErrPassOpen
	}
	e.pass = &computePass{encoder: e, label: label, groups: make(map[uint32]gpucore.BindGroupID)}
	return e.pass, nil
}

func (e *commandEncoder) CopyTextureToBuffer(src gpucore.TextureID, dst gpucore.BufferID, layout gpucore.ImageLayout, size gpucore.Extent) {
	switch {
	case e.finished:
		e.setErr(ErrEncoderFinished)
	case e.pass != nil:
		e.setErr(ErrPassOpen)
	default:
		e.commands = append(e.commands, copyCommand{src: src, dst: dst, layout: layout, size: size})
	}
}

func (e *commandEncoder) Finish() (gpucore.CommandBuffer, error) {
	if e.finished {
		return nil, ErrEncoderFinished
	}
	if e.pass != nil {
		e.setErr(ErrPassOpen)
	}
	e.finished = true
	if e.err != nil {
		return nil, fmt.Errorf("reference: encoder %q: %w", e.label, e.err)
	}
	return &commandBuffer{device: e.device, label: e.label, commands: e.commands}, nil
}

// computePass implements gpucore.ComputePassEncoder.
type computePass struct {
	encoder  *commandEncoder
	label    string
	pipeline gpucore.ComputePipelineID
	groups   map[uint32]gpucore.BindGroupID
	ended    bool
	err      error
}

func (p *computePass) SetPipeline(pipeline gpucore.ComputePipelineID) {
	p.pipeline = pipeline
}

func (p *computePass) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	p.groups[index] = group
}

func (p *computePass) Dispatch(x, y, z uint32) {
	if p.ended {
		return
	}
	if p.pipeline == gpucore.InvalidID {
		if p.err == nil {
			p.err = ErrNoPipeline
		}
		return
	}
	groups := make(map[uint32]gpucore.BindGroupID, len(p.groups))
	for k, v := range p.groups {
		groups[k] = v
	}
	p.encoder.commands = append(p.encoder.commands, dispatchCommand{
		pipeline: p.pipeline,
		groups:   groups,
		x:        x,
		y:        y,
		z:        z,
	})
}

func (p *computePass) End() error {
	if p.ended {
		return nil
	}
	p.ended = true
	p.encoder.pass = nil
	if p.err != nil {
		p.encoder.setErr(p.err)
		return fmt.Errorf("reference: pass %q: %w", p.label, p.err)
	}
	return nil
}

// commandBuffer implements gpucore.CommandBuffer.
type commandBuffer struct {
	device   *Device
	label    string
	commands []command
}

func (b *commandBuffer) Label() string { return b.label }

// Submit executes the command buffers in order. Execution stops at the
// first failing command.
func (d *Device) Submit(buffers ...gpucore.CommandBuffer) error {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()

	for _, cb := range buffers {
		b, ok := cb.(*commandBuffer)
		if !ok || b.device != d {
			return ErrForeignCommandBuffer
		}
		for _, cmd := range b.commands {
			var err error
			switch c := cmd.(type) {
			case dispatchCommand:
				err = d.executeDispatch(b.label, c)
			case copyCommand:
				err = d.executeCopy(c)
			}
			if err != nil {
				slogger().Warn("reference: command failed", "buffer", b.label, "err", err)
				return fmt.Errorf("reference: submit %q: %w", b.label, err)
			}
		}
	}
	return nil
}
