package filters

import (
	"fmt"

	"github.com/gogpu/filters/gpucore"
	"github.com/gogpu/filters/internal/kernel"
)

// Orientation uniform values.
const (
	orientationHorizontal uint32 = 0
	orientationVertical   uint32 = 1
)

// blurStep is one pass of a separable blur.
type blurStep struct {
	name        string
	orientation uint32

	// tile is the image area covered by one workgroup.
	tile gpucore.Tile

	// transpose swaps the planned grid before dispatch. The horizontal
	// pass keeps the 128x1 workgroup and walks the image column-major.
	transpose bool
}

// groups returns the dispatch grid of the step for an image of size.
func (s blurStep) groups(size gpucore.Extent) gpucore.Groups {
	g := gpucore.Plan(size, s.tile)
	if s.transpose {
		g = g.Transpose()
	}
	return g
}

// blurSequence is the fixed order of separable blur passes.
var blurSequence = [2]blurStep{
	{
		name:        "vertical",
		orientation: orientationVertical,
		tile:        gpucore.Tile{Width: 128, Height: 1},
	},
	{
		name:        "horizontal",
		orientation: orientationHorizontal,
		tile:        gpucore.Tile{Width: 1, Height: 128},
		transpose:   true,
	},
}

// BoxBlur averages each pixel with its neighbors in a (2*radius+1)
// square window, as a vertical pass followed by a horizontal one.
// radius must be at least 1.
func (op *Operation) BoxBlur(radius uint32) *Operation {
	if op.err != nil {
		return op
	}
	if radius == 0 {
		return op.fail(fmt.Errorf("%w: box blur radius must be positive", ErrInvalidParameter))
	}

	settings, err := op.ctx.uniform("box blur settings", u32(radius), gpucore.BufferUsageUniform)
	if err != nil {
		return op.fail(err)
	}
	defer op.ctx.device.DestroyBuffer(settings)

	return op.separable(gpucore.ProgramBoxBlur, []gpucore.BindGroupEntry{
		{Binding: 0, Buffer: settings},
	})
}

// GaussianBlur convolves the image with a Gaussian of standard deviation
// sigma, truncated at 3 sigma, as a vertical pass followed by a horizontal
// one. sigma must be positive and small enough for the kernel to fit the
// device limits; other values record ErrInvalidParameter.
func (op *Operation) GaussianBlur(sigma float32) *Operation {
	if op.err != nil {
		return op
	}
	if !kernel.Representable(sigma, maxKernelRadius(op.ctx.Limits())) {
		return op.fail(fmt.Errorf("%w: gaussian blur sigma %v", ErrInvalidParameter, sigma))
	}

	k := kernel.CachedGaussian(sigma)
	settings, err := op.ctx.uniform("gaussian blur settings", u32(uint32(k.Size())), gpucore.BufferUsageUniform)
	if err != nil {
		return op.fail(err)
	}
	defer op.ctx.device.DestroyBuffer(settings)

	weights, err := op.ctx.uniform("gaussian blur kernel", k.Bytes(), gpucore.BufferUsageStorage)
	if err != nil {
		return op.fail(err)
	}
	defer op.ctx.device.DestroyBuffer(weights)

	return op.separable(gpucore.ProgramGaussianBlur, []gpucore.BindGroupEntry{
		{Binding: 0, Buffer: settings},
		{Binding: 1, Buffer: weights},
	})
}

// maxKernelRadius is the largest Gaussian radius the device can run: the
// window must fit in a texture row and the packed kernel (sum plus 2r+1
// weights) in one buffer.
func maxKernelRadius(l gpucore.Limits) uint32 {
	words := l.MaxBufferSize / 4
	if words < 2 {
		return 0
	}
	return uint32(min(uint64(l.MaxTextureDimension2D), (words-2)/2))
}

// separable runs blurSequence with the given settings group. The input and
// the intermediate surface are released; the last output becomes current.
func (op *Operation) separable(p gpucore.Program, settings []gpucore.BindGroupEntry) *Operation {
	in, err := op.surface.textureID()
	if err != nil {
		return op.fail(err)
	}
	size := op.surface.size

	var outputs [len(blurSequence)]*Surface
	release := func() {
		for _, s := range outputs {
			s.Release()
		}
	}
	for i, step := range blurSequence {
		outputs[i], err = newSurface(op.ctx, size.Width, size.Height, p.String()+" "+step.name)
		if err != nil {
			release()
			return op.fail(err)
		}
	}

	src := in
	for i, step := range blurSequence {
		if err := op.blurPass(p, step, settings, src, outputs[i]); err != nil {
			release()
			return op.fail(err)
		}
		src = outputs[i].texture
	}

	for _, s := range outputs[:len(outputs)-1] {
		s.Release()
	}
	op.replace(outputs[len(outputs)-1])
	return op
}

func (op *Operation) blurPass(p gpucore.Program, step blurStep, settings []gpucore.BindGroupEntry, src gpucore.TextureID, dst *Surface) error {
	name := p.String() + " " + step.name
	orientation, err := op.ctx.uniform(name+" orientation", u32(step.orientation), gpucore.BufferUsageUniform)
	if err != nil {
		return err
	}
	defer op.ctx.device.DestroyBuffer(orientation)

	textures := append(textureEntries(src, dst.texture), gpucore.BindGroupEntry{
		Binding: gpucore.BindingOrientation,
		Buffer:  orientation,
	})
	return op.ctx.run(pass{
		name:     name,
		program:  p,
		groups:   [][]gpucore.BindGroupEntry{settings, textures},
		dispatch: step.groups(dst.size),
	})
}
