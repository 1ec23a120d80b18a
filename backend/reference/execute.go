package reference

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/filters/gpucore"
)

// ErrCopyLayout is returned when a texture-to-buffer copy uses a row pitch
// that is not a multiple of gpucore.CopyBytesPerRowAlignment.
var ErrCopyLayout = errors.New("reference: bytes per row not aligned")

// resolved holds the resources a dispatch reads and writes.
type resolved struct {
	program     gpucore.Program
	input       *texture
	output      *texture
	inputID     gpucore.TextureID
	outputID    gpucore.TextureID
	filter      gpucore.FilterMode
	param       uint32
	kernel      []float32
	orientation int
}

func (d *Device) executeDispatch(label string, c dispatchCommand) error {
	limit := d.limits.MaxComputeWorkgroupsPerDimension
	if c.x > limit || c.y > limit || c.z > limit {
		return fmt.Errorf("%w: (%d, %d, %d)", ErrDispatchLimit, c.x, c.y, c.z)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return gpucore.ErrDeviceClosed
	}
	p, ok := d.pipelines[c.pipeline]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("pipeline %d: %w", c.pipeline, gpucore.ErrUnknownResource)
	}
	r, err := d.resolveLocked(p.program, c.groups)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("%s: %w", p.label, err)
	}
	d.trace = append(d.trace, Dispatch{
		Label:         label,
		Program:       r.program,
		Groups:        gpucore.Groups{X: c.x, Y: c.y},
		Orientation:   r.orientation,
		Input:         r.input.size,
		Output:        r.output.size,
		InputTexture:  r.inputID,
		OutputTexture: r.outputID,
	})
	d.mu.Unlock()

	d.run(r, c.x, c.y, c.z)
	return nil
}

// resolveLocked looks up every binding of the program's layout in the bind
// groups set on the pass.
func (d *Device) resolveLocked(program gpucore.Program, groups map[uint32]gpucore.BindGroupID) (*resolved, error) {
	r := &resolved{program: program, orientation: -1}

	for index, layout := range program.Layout() {
		group := uint32(index)
		id, ok := groups[group]
		if !ok {
			return nil, fmt.Errorf("bind group %d not set: %w", group, gpucore.ErrBindingMismatch)
		}
		bg, ok := d.groups[id]
		if !ok {
			return nil, fmt.Errorf("bind group %d: %w", group, gpucore.ErrUnknownResource)
		}
		if bg.program != program || bg.group != group {
			return nil, fmt.Errorf("bind group %q at %d: %w", bg.label, group, gpucore.ErrBindingMismatch)
		}

		for _, want := range layout {
			e, ok := findEntry(bg.entries, want.Binding)
			if !ok {
				return nil, gpucore.ErrBindingMismatch
			}
			if err := d.bindLocked(r, group, want, e); err != nil {
				return nil, err
			}
		}
	}

	if r.input == nil || r.output == nil {
		return nil, gpucore.ErrBindingMismatch
	}
	if r.inputID == r.outputID {
		return nil, fmt.Errorf("%w: texture bound for both sampling and storage", ErrUsage)
	}
	if program == gpucore.ProgramGaussianBlur && len(r.kernel) < int(r.param)+1 {
		return nil, fmt.Errorf("%w: kernel of %d taps needs %d floats, have %d",
			ErrOutOfBounds, r.param, r.param+1, len(r.kernel))
	}
	return r, nil
}

func (d *Device) bindLocked(r *resolved, group uint32, want gpucore.BindGroupLayoutEntry, e gpucore.BindGroupEntry) error {
	switch want.Type {
	case gpucore.BindingTypeSampledTexture, gpucore.BindingTypeStorageTexture:
		t, ok := d.textures[e.Texture]
		if !ok {
			return fmt.Errorf("texture %d: %w", e.Texture, gpucore.ErrUnknownResource)
		}
		if want.Type == gpucore.BindingTypeSampledTexture {
			if t.usage&gpucore.TextureUsageTextureBinding == 0 {
				return fmt.Errorf("%w: %q is not a sampled texture", ErrUsage, t.label)
			}
			r.input, r.inputID = t, e.Texture
		} else {
			if t.usage&gpucore.TextureUsageStorageBinding == 0 {
				return fmt.Errorf("%w: %q is not a storage texture", ErrUsage, t.label)
			}
			r.output, r.outputID = t, e.Texture
		}

	case gpucore.BindingTypeSampler:
		f, ok := d.samplers[e.Sampler]
		if !ok {
			return fmt.Errorf("sampler %d: %w", e.Sampler, gpucore.ErrUnknownResource)
		}
		r.filter = f

	case gpucore.BindingTypeUniformBuffer:
		data, err := d.bufferRangeLocked(e)
		if err != nil {
			return err
		}
		if uint64(len(data)) < want.MinBindingSize || len(data) < 4 {
			return fmt.Errorf("%w: uniform of %d bytes", ErrOutOfBounds, len(data))
		}
		v := binary.LittleEndian.Uint32(data)
		if group == r.program.TextureGroup() && want.Binding == gpucore.BindingOrientation {
			r.orientation = int(v)
		} else {
			r.param = v
		}

	case gpucore.BindingTypeReadOnlyStorageBuffer:
		data, err := d.bufferRangeLocked(e)
		if err != nil {
			return err
		}
		r.kernel = make([]float32, len(data)/4)
		for i := range r.kernel {
			r.kernel[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
		}
	}
	return nil
}

func (d *Device) bufferRangeLocked(e gpucore.BindGroupEntry) ([]byte, error) {
	b, ok := d.buffers[e.Buffer]
	if !ok {
		return nil, fmt.Errorf("buffer %d: %w", e.Buffer, gpucore.ErrUnknownResource)
	}
	end := uint64(len(b.data))
	if e.Size != 0 {
		end = e.Offset + e.Size
	}
	if e.Offset > end || end > uint64(len(b.data)) {
		return nil, fmt.Errorf("%w: binding [%d, %d) of %d bytes", ErrOutOfBounds, e.Offset, end, len(b.data))
	}
	return b.data[e.Offset:end], nil
}

func findEntry(entries []gpucore.BindGroupEntry, binding uint32) (gpucore.BindGroupEntry, bool) {
	for _, e := range entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return gpucore.BindGroupEntry{}, false
}

// run executes every invocation of the dispatch. The programs only read
// global_invocation_id.xy, so the z dimension repeats identical work and is
// executed once.
func (d *Device) run(r *resolved, x, y, z uint32) {
	if x == 0 || y == 0 || z == 0 {
		return
	}

	ws := r.program.WorkgroupSize()
	groupsX := int(x)
	d.pool.For(int(x)*int(y), func(g int) {
		gx := uint32(g % groupsX)
		gy := uint32(g / groupsX)
		for ly := range ws[1] {
			for lx := range ws[0] {
				r.invoke(gx*ws[0]+lx, gy*ws[1]+ly)
			}
		}
	})
}

func (d *Device) executeCopy(c copyCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.ErrDeviceClosed
	}

	t, ok := d.textures[c.src]
	if !ok {
		return fmt.Errorf("texture %d: %w", c.src, gpucore.ErrUnknownResource)
	}
	b, ok := d.buffers[c.dst]
	if !ok {
		return fmt.Errorf("buffer %d: %w", c.dst, gpucore.ErrUnknownResource)
	}
	if t.usage&gpucore.TextureUsageCopySrc == 0 {
		return fmt.Errorf("%w: copy from %q without CopySrc", ErrUsage, t.label)
	}
	if !b.usage.Has(gpucore.BufferUsageCopyDst) {
		return fmt.Errorf("%w: copy into %q without CopyDst", ErrUsage, b.label)
	}
	if c.layout.BytesPerRow%gpucore.CopyBytesPerRowAlignment != 0 {
		return fmt.Errorf("%w: %d", ErrCopyLayout, c.layout.BytesPerRow)
	}
	if c.size.Width > t.size.Width || c.size.Height > t.size.Height {
		return fmt.Errorf("%w: copy %dx%d from %dx%d", ErrOutOfBounds,
			c.size.Width, c.size.Height, t.size.Width, t.size.Height)
	}

	row := int(c.size.Width) * 4
	if int(c.layout.BytesPerRow) < row {
		return fmt.Errorf("%w: bytes per row %d < %d", ErrOutOfBounds, c.layout.BytesPerRow, row)
	}
	if c.size.Height == 0 {
		return nil
	}
	last := int(c.layout.Offset) + int(c.size.Height-1)*int(c.layout.BytesPerRow) + row
	if last > len(b.data) {
		return fmt.Errorf("%w: copy needs %d bytes, buffer has %d", ErrOutOfBounds, last, len(b.data))
	}

	for y := 0; y < int(c.size.Height); y++ {
		dst := int(c.layout.Offset) + y*int(c.layout.BytesPerRow)
		copy(b.data[dst:dst+row], t.pix[y*t.stride():y*t.stride()+row])
	}
	return nil
}
