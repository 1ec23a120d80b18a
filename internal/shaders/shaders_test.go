package shaders

import (
	"strings"
	"testing"

	"github.com/gogpu/filters/gpucore"
)

// TestSourcesNonEmpty verifies that every program has an embedded shader.
func TestSourcesNonEmpty(t *testing.T) {
	for _, p := range gpucore.Programs {
		t.Run(p.String(), func(t *testing.T) {
			src := Source(p)
			if src == "" {
				t.Fatalf("%s shader source is empty", p)
			}
			if len(src) < 100 {
				t.Errorf("%s shader source suspiciously short: %d bytes", p, len(src))
			}
		})
	}
}

func TestSourceUnknownProgram(t *testing.T) {
	if src := Source(gpucore.Program(0)); src != "" {
		t.Errorf("Source(0) = %q, want empty", src)
	}
	if _, err := Reflect(gpucore.Program(99)); err == nil {
		t.Error("Reflect(99) succeeded, want error")
	}
}

// TestSourcesContainExpectedContent verifies shader sources contain key elements.
func TestSourcesContainExpectedContent(t *testing.T) {
	tests := []struct {
		program  gpucore.Program
		required []string
	}{
		{gpucore.ProgramGrayscale, []string{"@compute", "0.299", "0.587", "0.114", "textureStore"}},
		{gpucore.ProgramInverse, []string{"1.0 - color.rgb", "color.a"}},
		{gpucore.ProgramHFlip, []string{"i32(dimensions.x) - 1 - coords.x"}},
		{gpucore.ProgramVFlip, []string{"i32(dimensions.y) - 1 - coords.y"}},
		{gpucore.ProgramResize, []string{"sampler", "textureSampleLevel"}},
		{gpucore.ProgramBoxBlur, []string{"radius", "orientation", "global_id.yx", "2 * radius + 1"}},
		{gpucore.ProgramGaussianBlur, []string{"kernel_size", "array<f32>", "kernel[0]", "global_id.yx"}},
	}

	for _, tt := range tests {
		t.Run(tt.program.String(), func(t *testing.T) {
			src := Source(tt.program)
			for _, req := range tt.required {
				if !strings.Contains(src, req) {
					t.Errorf("%s shader missing required element: %q", tt.program, req)
				}
			}
		})
	}
}

// TestCheck verifies that every shader compiles through naga and agrees with
// the layout of its program.
func TestCheck(t *testing.T) {
	for _, p := range gpucore.Programs {
		t.Run(p.String(), func(t *testing.T) {
			if err := Check(p); err != nil {
				t.Fatalf("Check(%s) = %v", p, err)
			}
		})
	}
}

func TestReflectBlur(t *testing.T) {
	refl, err := Reflect(gpucore.ProgramGaussianBlur)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if refl.EntryPoint != EntryPoint {
		t.Errorf("EntryPoint = %q, want %q", refl.EntryPoint, EntryPoint)
	}
	if refl.Workgroup != [3]uint32{128, 1, 1} {
		t.Errorf("Workgroup = %v, want [128 1 1]", refl.Workgroup)
	}
	if len(refl.Bindings) != 5 {
		t.Fatalf("len(Bindings) = %d, want 5", len(refl.Bindings))
	}
	if b := refl.Bindings[0]; b.Group != 0 || b.Binding != 0 {
		t.Errorf("Bindings[0] = %+v, want group 0 binding 0", b)
	}
	if b := refl.Bindings[4]; b.Group != 1 || b.Binding != gpucore.BindingOrientation {
		t.Errorf("Bindings[4] = %+v, want the orientation uniform", b)
	}
}

func TestReflectCached(t *testing.T) {
	a, err := Reflect(gpucore.ProgramInverse)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	b, _ := Reflect(gpucore.ProgramInverse)
	if a != b {
		t.Error("Reflect did not return the cached reflection")
	}
}
