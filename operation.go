package filters

import (
	"context"
	"fmt"

	"github.com/gogpu/filters/gpucore"
)

// Operation is a chain of filters applied to one image.
//
// Each filter method encodes and submits its passes immediately and returns
// the same Operation, so calls can be chained. The first failure is sticky:
// the surfaces are released, every later call is a no-op, and Execute
// returns the error. Execute reads the result back and consumes the
// operation.
//
// An Operation is not safe for concurrent use; run independent operations
// on the same ComputeContext instead.
type Operation struct {
	ctx     *ComputeContext
	surface *Surface
	width   uint32
	height  uint32
	err     error
}

// NewOperation uploads img and starts a filter chain on it. Upload errors
// are reported by Execute.
func NewOperation(ctx *ComputeContext, img *PixelBuffer) *Operation {
	op := &Operation{ctx: ctx}
	if img != nil {
		op.width, op.height = img.width, img.height
	}
	if ctx == nil {
		op.err = fmt.Errorf("%w: nil compute context", ErrInvalidParameter)
		return op
	}

	s, err := NewSurface(ctx, img)
	if err != nil {
		op.err = err
		return op
	}
	op.surface = s
	return op
}

// Dimensions returns the size of the image the chain currently produces.
func (op *Operation) Dimensions() (width, height uint32) {
	return op.width, op.height
}

// Err returns the sticky error, if any.
func (op *Operation) Err() error {
	return op.err
}

// Grayscale replaces each pixel with its Rec. 601 luma, keeping alpha.
func (op *Operation) Grayscale() *Operation {
	return op.simple(gpucore.ProgramGrayscale)
}

// Inverse inverts the color channels, keeping alpha.
func (op *Operation) Inverse() *Operation {
	return op.simple(gpucore.ProgramInverse)
}

// HFlip mirrors the image horizontally.
func (op *Operation) HFlip() *Operation {
	return op.simple(gpucore.ProgramHFlip)
}

// VFlip mirrors the image vertically.
func (op *Operation) VFlip() *Operation {
	return op.simple(gpucore.ProgramVFlip)
}

// simple runs a single-pass, size-preserving program.
func (op *Operation) simple(p gpucore.Program) *Operation {
	if op.err != nil {
		return op
	}

	in, err := op.surface.textureID()
	if err != nil {
		return op.fail(err)
	}
	out, err := newSurface(op.ctx, op.width, op.height, p.String())
	if err != nil {
		return op.fail(err)
	}

	err = op.ctx.run(pass{
		name:     p.String(),
		program:  p,
		groups:   [][]gpucore.BindGroupEntry{textureEntries(in, out.texture)},
		dispatch: gpucore.Plan(out.size, p.Tile()),
	})
	if err != nil {
		out.Release()
		return op.fail(err)
	}

	op.replace(out)
	return op
}

// replace makes next the current surface and releases the previous one.
func (op *Operation) replace(next *Surface) {
	prev := op.surface
	op.surface = next
	op.width, op.height = next.size.Width, next.size.Height
	prev.Release()
}

// fail records err, releases the current surface and returns op.
func (op *Operation) fail(err error) *Operation {
	if op.err == nil {
		op.err = err
	}
	op.surface.Release()
	op.surface = nil
	return op
}

// Execute reads the current surface back into a new PixelBuffer and
// releases it. It blocks until the device has finished every pass of the
// chain or ctx is done. After Execute the operation is consumed.
func (op *Operation) Execute(ctx context.Context) (*PixelBuffer, error) {
	if op.err != nil {
		return nil, op.err
	}

	pb, err := op.surface.Read(ctx)
	op.fail(ErrConsumed)
	if err != nil {
		return nil, err
	}
	return pb, nil
}
