// Package shaders holds the WGSL sources of the filter programs and checks
// them against the layouts declared in gpucore.
package shaders

import (
	"embed"
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/filters/gpucore"
	"github.com/gogpu/filters/internal/cache"
)

//go:embed *.wgsl
var sources embed.FS

// EntryPoint is the compute entry point of every program.
const EntryPoint = "main"

// ErrLayoutMismatch is returned by Check when a shader disagrees with the
// layout its program declares.
var ErrLayoutMismatch = errors.New("shaders: shader does not match program layout")

var files = map[gpucore.Program]string{
	gpucore.ProgramGrayscale:    "grayscale.wgsl",
	gpucore.ProgramInverse:      "inverse.wgsl",
	gpucore.ProgramHFlip:        "hflip.wgsl",
	gpucore.ProgramVFlip:        "vflip.wgsl",
	gpucore.ProgramResize:       "resize.wgsl",
	gpucore.ProgramBoxBlur:      "box_blur.wgsl",
	gpucore.ProgramGaussianBlur: "gaussian_blur.wgsl",
}

// Source returns the WGSL source of p, or "" for an unknown program.
func Source(p gpucore.Program) string {
	name, ok := files[p]
	if !ok {
		return ""
	}
	data, err := sources.ReadFile(name)
	if err != nil {
		return ""
	}
	return string(data)
}

// Binding is a resource binding declared by a shader.
type Binding struct {
	Group   uint32
	Binding uint32
	Space   ir.AddressSpace
}

// Reflection is what a shader declares about its interface.
type Reflection struct {
	EntryPoint string
	Workgroup  [3]uint32
	Bindings   []Binding
}

type reflected struct {
	refl *Reflection
	err  error
}

var reflections = cache.New[gpucore.Program, reflected](0)

// Reflect parses, lowers and validates the shader of p and reports its
// compute entry point and resource bindings. Results are cached.
func Reflect(p gpucore.Program) (*Reflection, error) {
	r := reflections.GetOrCreate(p, func() reflected {
		refl, err := reflect(p)
		return reflected{refl: refl, err: err}
	})
	return r.refl, r.err
}

func reflect(p gpucore.Program) (*Reflection, error) {
	src := Source(p)
	if src == "" {
		return nil, fmt.Errorf("shaders: no source for program %d", p)
	}

	ast, err := naga.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("shaders: %s: %w", p, err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, fmt.Errorf("shaders: %s: %w", p, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("shaders: %s: %w", p, err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("shaders: %s: %w", p, verrs[0])
	}

	refl := &Reflection{}
	for _, ep := range module.EntryPoints {
		if ep.Stage == ir.StageCompute && ep.Name == EntryPoint {
			refl.EntryPoint = ep.Name
			refl.Workgroup = ep.Workgroup
			break
		}
	}
	if refl.EntryPoint == "" {
		return nil, fmt.Errorf("shaders: %s: no compute entry point %q", p, EntryPoint)
	}

	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		refl.Bindings = append(refl.Bindings, Binding{
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Space:   gv.Space,
		})
	}
	slices.SortFunc(refl.Bindings, func(a, b Binding) int {
		if a.Group != b.Group {
			return int(a.Group) - int(b.Group)
		}
		return int(a.Binding) - int(b.Binding)
	})

	return refl, nil
}

// Check verifies that the shader of p declares the workgroup size and the
// bindings returned by p.WorkgroupSize and p.Layout.
func Check(p gpucore.Program) error {
	refl, err := Reflect(p)
	if err != nil {
		return err
	}

	if refl.Workgroup != p.WorkgroupSize() {
		return fmt.Errorf("%w: %s workgroup %v, want %v",
			ErrLayoutMismatch, p, refl.Workgroup, p.WorkgroupSize())
	}

	var want []Binding
	for group, entries := range p.Layout() {
		for _, e := range entries {
			want = append(want, Binding{Group: uint32(group), Binding: e.Binding, Space: space(e.Type)})
		}
	}
	slices.SortFunc(want, func(a, b Binding) int {
		if a.Group != b.Group {
			return int(a.Group) - int(b.Group)
		}
		return int(a.Binding) - int(b.Binding)
	})

	if !slices.Equal(refl.Bindings, want) {
		return fmt.Errorf("%w: %s bindings %v, want %v", ErrLayoutMismatch, p, refl.Bindings, want)
	}
	return nil
}

func space(t gpucore.BindingType) ir.AddressSpace {
	switch t {
	case gpucore.BindingTypeUniformBuffer:
		return ir.SpaceUniform
	case gpucore.BindingTypeReadOnlyStorageBuffer:
		return ir.SpaceStorage
	default:
		return ir.SpaceHandle
	}
}
