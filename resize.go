package filters

import (
	"fmt"

	"github.com/gogpu/filters/gpucore"
)

// ResizeMode selects the resampling filter used by Resize.
type ResizeMode uint8

const (
	// ResizeNearest picks the texel under each output pixel center.
	ResizeNearest ResizeMode = iota

	// ResizeLinear blends the four nearest texels.
	ResizeLinear
)

// String returns a string representation of the resize mode.
func (m ResizeMode) String() string {
	switch m {
	case ResizeNearest:
		return "nearest"
	case ResizeLinear:
		return "linear"
	default:
		return fmt.Sprintf("ResizeMode(%d)", m)
	}
}

// filterMode returns the sampler filter of the mode.
func (m ResizeMode) filterMode() (gpucore.FilterMode, bool) {
	switch m {
	case ResizeNearest:
		return gpucore.FilterNearest, true
	case ResizeLinear:
		return gpucore.FilterLinear, true
	default:
		return 0, false
	}
}

// Resize resamples the image to width x height. Both dimensions must be
// non-zero and within the device's MaxTextureDimension2D.
func (op *Operation) Resize(width, height uint32, mode ResizeMode) *Operation {
	if op.err != nil {
		return op
	}

	filter, ok := mode.filterMode()
	if !ok {
		return op.fail(fmt.Errorf("%w: resize mode %v", ErrInvalidParameter, mode))
	}
	in, err := op.surface.textureID()
	if err != nil {
		return op.fail(err)
	}
	sampler, err := op.ctx.sampler(filter)
	if err != nil {
		return op.fail(err)
	}
	out, err := newSurface(op.ctx, width, height, "resize")
	if err != nil {
		return op.fail(err)
	}

	p := gpucore.ProgramResize
	err = op.ctx.run(pass{
		name:    p.String(),
		program: p,
		groups: [][]gpucore.BindGroupEntry{
			{{Binding: 0, Sampler: sampler}},
			textureEntries(in, out.texture),
		},
		dispatch: gpucore.Plan(out.size, p.Tile()),
	})
	if err != nil {
		out.Release()
		return op.fail(err)
	}

	op.replace(out)
	return op
}
