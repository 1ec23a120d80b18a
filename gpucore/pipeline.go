package gpucore

// Program identifies a compute kernel known to every device.
type Program uint32

// Programs.
const (
	ProgramGrayscale Program = iota + 1
	ProgramInverse
	ProgramHFlip
	ProgramVFlip
	ProgramResize
	ProgramBoxBlur
	ProgramGaussianBlur
)

// Programs lists every program in declaration order.
var Programs = []Program{
	ProgramGrayscale,
	ProgramInverse,
	ProgramHFlip,
	ProgramVFlip,
	ProgramResize,
	ProgramBoxBlur,
	ProgramGaussianBlur,
}

// String returns the lower-case program name, e.g. "gaussian blur".
func (p Program) String() string {
	switch p {
	case ProgramGrayscale:
		return "grayscale"
	case ProgramInverse:
		return "inverse"
	case ProgramHFlip:
		return "horizontal flip"
	case ProgramVFlip:
		return "vertical flip"
	case ProgramResize:
		return "resize"
	case ProgramBoxBlur:
		return "box blur"
	case ProgramGaussianBlur:
		return "gaussian blur"
	default:
		return "unknown"
	}
}

// Valid reports whether p names a known program.
func (p Program) Valid() bool {
	return p >= ProgramGrayscale && p <= ProgramGaussianBlur
}

// IsBlur reports whether p is one of the separable blur programs.
func (p Program) IsBlur() bool {
	return p == ProgramBoxBlur || p == ProgramGaussianBlur
}

// WorkgroupSize returns the @workgroup_size of the program's entry point.
//
// Per-pixel programs use 16x16 tiles. Blur programs use 128x1 for both
// passes; the horizontal pass transposes its invocation grid instead of
// changing the workgroup shape.
func (p Program) WorkgroupSize() [3]uint32 {
	if p.IsBlur() {
		return [3]uint32{128, 1, 1}
	}
	return [3]uint32{16, 16, 1}
}

// Tile returns the image-space tile covered by one workgroup, used to plan
// dispatches for single-pass programs.
func (p Program) Tile() Tile {
	ws := p.WorkgroupSize()
	return Tile{Width: ws[0], Height: ws[1]}
}

// BindGroupLayoutEntry describes a single binding in a program layout.
type BindGroupLayoutEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Type is the type of resource bound at this index.
	Type BindingType

	// MinBindingSize is the minimum buffer size for buffer bindings.
	// Set to 0 for non-buffer bindings.
	MinBindingSize uint64
}

// Binding indices inside the texture group shared by all programs.
const (
	BindingInput       = 0
	BindingOutput      = 1
	BindingOrientation = 2
)

// Layout returns the bind group layouts of the program, indexed by group.
//
//	grayscale, inverse, hflip, vflip:
//	  group 0: input texture, output storage texture
//	resize:
//	  group 0: sampler
//	  group 1: input texture, output storage texture
//	box blur:
//	  group 0: settings (radius)
//	  group 1: input texture, output storage texture, orientation
//	gaussian blur:
//	  group 0: settings (kernel size), kernel [sum, weights...]
//	  group 1: input texture, output storage texture, orientation
func (p Program) Layout() [][]BindGroupLayoutEntry {
	textures := []BindGroupLayoutEntry{
		{Binding: BindingInput, Type: BindingTypeSampledTexture},
		{Binding: BindingOutput, Type: BindingTypeStorageTexture},
	}
	blurTextures := append(textures[:2:2], BindGroupLayoutEntry{
		Binding: BindingOrientation, Type: BindingTypeUniformBuffer, MinBindingSize: 4,
	})

	switch p {
	case ProgramGrayscale, ProgramInverse, ProgramHFlip, ProgramVFlip:
		return [][]BindGroupLayoutEntry{textures}
	case ProgramResize:
		return [][]BindGroupLayoutEntry{
			{{Binding: 0, Type: BindingTypeSampler}},
			textures,
		}
	case ProgramBoxBlur:
		return [][]BindGroupLayoutEntry{
			{{Binding: 0, Type: BindingTypeUniformBuffer, MinBindingSize: 4}},
			blurTextures,
		}
	case ProgramGaussianBlur:
		return [][]BindGroupLayoutEntry{
			{
				{Binding: 0, Type: BindingTypeUniformBuffer, MinBindingSize: 4},
				{Binding: 1, Type: BindingTypeReadOnlyStorageBuffer, MinBindingSize: 8},
			},
			blurTextures,
		}
	default:
		return nil
	}
}

// TextureGroup returns the index of the group holding the input and output
// textures.
func (p Program) TextureGroup() uint32 {
	if p == ProgramResize || p.IsBlur() {
		return 1
	}
	return 0
}

// CheckEntries verifies that entries satisfy the layout of group.
// It returns [ErrBindingMismatch] on a missing, duplicate or unknown binding.
func (p Program) CheckEntries(group uint32, entries []BindGroupEntry) error {
	layout := p.Layout()
	if int(group) >= len(layout) {
		return ErrBindingMismatch
	}
	want := layout[group]
	if len(entries) != len(want) {
		return ErrBindingMismatch
	}
	seen := make(map[uint32]bool, len(entries))
	for _, e := range entries {
		if seen[e.Binding] {
			return ErrBindingMismatch
		}
		seen[e.Binding] = true
		found := false
		for _, w := range want {
			if w.Binding != e.Binding {
				continue
			}
			found = true
			if !entryMatches(w.Type, e) {
				return ErrBindingMismatch
			}
		}
		if !found {
			return ErrBindingMismatch
		}
	}
	return nil
}

func entryMatches(t BindingType, e BindGroupEntry) bool {
	switch t {
	case BindingTypeUniformBuffer, BindingTypeReadOnlyStorageBuffer:
		return e.Buffer != InvalidID && e.Texture == InvalidID && e.Sampler == InvalidID
	case BindingTypeSampler:
		return e.Sampler != InvalidID && e.Buffer == InvalidID && e.Texture == InvalidID
	case BindingTypeSampledTexture, BindingTypeStorageTexture:
		return e.Texture != InvalidID && e.Buffer == InvalidID && e.Sampler == InvalidID
	default:
		return false
	}
}
