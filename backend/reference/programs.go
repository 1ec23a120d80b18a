package reference

import (
	"math"

	"github.com/gogpu/filters/gpucore"
)

// vec4 is an RGBA color with components in [0, 1].
type vec4 [4]float32

func (a vec4) add(b vec4) vec4 {
	return vec4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func (a vec4) scale(s float32) vec4 {
	return vec4{a[0] * s, a[1] * s, a[2] * s, a[3] * s}
}

func (a vec4) div(s float32) vec4 {
	return vec4{a[0] / s, a[1] / s, a[2] / s, a[3] / s}
}

func lerp(a, b vec4, t float32) vec4 {
	return a.add(b.add(a.scale(-1)).scale(t))
}

// load reads texel (x, y) as normalized floats, like textureLoad.
func (t *texture) load(x, y int) vec4 {
	i := y*t.stride() + x*4
	p := t.pix[i : i+4 : i+4]
	return vec4{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

// loadClamped reads the texel nearest to (x, y) inside the texture.
func (t *texture) loadClamped(x, y int) vec4 {
	x = min(max(x, 0), int(t.size.Width)-1)
	y = min(max(y, 0), int(t.size.Height)-1)
	return t.load(x, y)
}

// store writes c to texel (x, y) with rgba8unorm conversion, like
// textureStore. Writes outside the texture are discarded.
func (t *texture) store(x, y int, c vec4) {
	if x < 0 || y < 0 || x >= int(t.size.Width) || y >= int(t.size.Height) {
		return
	}
	i := y*t.stride() + x*4
	p := t.pix[i : i+4 : i+4]
	p[0] = unorm8(c[0])
	p[1] = unorm8(c[1])
	p[2] = unorm8(c[2])
	p[3] = unorm8(c[3])
}

// unorm8 converts a float to an 8-bit normalized integer, clamping to [0, 1]
// and rounding to nearest.
func unorm8(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(float32(math.Floor(float64(v*255) + 0.5)))
}

// sample reads the texture at normalized coordinates (u, v) with
// clamp-to-edge addressing, like textureSampleLevel at level 0.
func (t *texture) sample(filter gpucore.FilterMode, u, v float32) vec4 {
	w, h := float32(t.size.Width), float32(t.size.Height)

	if filter == gpucore.FilterNearest {
		x := int(math.Floor(float64(u * w)))
		y := int(math.Floor(float64(v * h)))
		return t.loadClamped(x, y)
	}

	fx := u*w - 0.5
	fy := v*h - 0.5
	x0 := float32(math.Floor(float64(fx)))
	y0 := float32(math.Floor(float64(fy)))
	ax := fx - x0
	ay := fy - y0
	ix, iy := int(x0), int(y0)

	top := lerp(t.loadClamped(ix, iy), t.loadClamped(ix+1, iy), ax)
	bottom := lerp(t.loadClamped(ix, iy+1), t.loadClamped(ix+1, iy+1), ax)
	return lerp(top, bottom, ay)
}

// invoke runs one invocation of the program with the given
// global_invocation_id.xy.
func (r *resolved) invoke(gx, gy uint32) {
	in, out := r.input, r.output
	x, y := int(gx), int(gy)

	switch r.program {
	case gpucore.ProgramGrayscale:
		if !in.contains(x, y) {
			return
		}
		c := in.load(x, y)
		g := 0.299*c[0] + 0.587*c[1] + 0.114*c[2]
		out.store(x, y, vec4{g, g, g, c[3]})

	case gpucore.ProgramInverse:
		if !in.contains(x, y) {
			return
		}
		c := in.load(x, y)
		out.store(x, y, vec4{1 - c[0], 1 - c[1], 1 - c[2], c[3]})

	case gpucore.ProgramHFlip:
		if !in.contains(x, y) {
			return
		}
		out.store(x, y, in.load(int(in.size.Width)-1-x, y))

	case gpucore.ProgramVFlip:
		if !in.contains(x, y) {
			return
		}
		out.store(x, y, in.load(x, int(in.size.Height)-1-y))

	case gpucore.ProgramResize:
		if !out.contains(x, y) {
			return
		}
		u := (float32(gx) + 0.5) / float32(out.size.Width)
		v := (float32(gy) + 0.5) / float32(out.size.Height)
		out.store(x, y, in.sample(r.filter, u, v))

	case gpucore.ProgramBoxBlur, gpucore.ProgramGaussianBlur:
		r.blur(x, y)
	}
}

// blur runs one invocation of a separable blur pass. The horizontal pass
// (orientation 0) is dispatched over the transposed grid.
func (r *resolved) blur(x, y int) {
	dx, dy := 0, 1
	if r.orientation == 0 {
		x, y = y, x
		dx, dy = 1, 0
	}
	in := r.input
	if !in.contains(x, y) {
		return
	}

	var sum vec4
	if r.program == gpucore.ProgramBoxBlur {
		radius := int(r.param)
		for i := -radius; i <= radius; i++ {
			sum = sum.add(in.loadClamped(x+dx*i, y+dy*i))
		}
		r.output.store(x, y, sum.div(float32(2*radius+1)))
		return
	}

	size := int(r.param)
	radius := (size - 1) / 2
	for i := 0; i < size; i++ {
		o := i - radius
		sum = sum.add(in.loadClamped(x+dx*o, y+dy*o).scale(r.kernel[i+1]))
	}
	r.output.store(x, y, sum.div(r.kernel[0]))
}

func (t *texture) contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < int(t.size.Width) && y < int(t.size.Height)
}
