package filters

import (
	"errors"
	"testing"

	"github.com/gogpu/filters/backend/reference"
	"github.com/gogpu/filters/gpucore"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.warmup {
		t.Error("warmup enabled by default")
	}
	if o.owned {
		t.Error("device owned by default")
	}
}

// TestWithWarmup tests that every pipeline is created up front.
func TestWithWarmup(t *testing.T) {
	dev := reference.New()
	defer dev.Close()

	fc, err := NewComputeContext(dev, WithWarmup())
	if err != nil {
		t.Fatalf("NewComputeContext: %v", err)
	}
	defer fc.Close()

	fc.mu.Lock()
	n := len(fc.pipelines)
	fc.mu.Unlock()
	if n != len(gpucore.Programs) {
		t.Errorf("warmup created %d pipelines, want %d", n, len(gpucore.Programs))
	}
}

// TestLazyPipelines tests that pipelines are created on first use only.
func TestLazyPipelines(t *testing.T) {
	dev := reference.New()
	defer dev.Close()

	fc, err := NewComputeContext(dev)
	if err != nil {
		t.Fatalf("NewComputeContext: %v", err)
	}
	defer fc.Close()

	if len(fc.pipelines) != 0 {
		t.Fatalf("new context has %d pipelines, want 0", len(fc.pipelines))
	}
	first, err := fc.pipeline(gpucore.ProgramInverse)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	second, err := fc.pipeline(gpucore.ProgramInverse)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if first != second {
		t.Errorf("pipeline not cached: %d then %d", first, second)
	}
}

// TestWithOwnedDevice tests that Close closes an owned device only.
func TestWithOwnedDevice(t *testing.T) {
	tests := []struct {
		name       string
		opts       []ContextOption
		wantClosed bool
	}{
		{"borrowed", nil, false},
		{"owned", []ContextOption{WithOwnedDevice()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := reference.New()
			defer dev.Close()

			fc, err := NewComputeContext(dev, tt.opts...)
			if err != nil {
				t.Fatalf("NewComputeContext: %v", err)
			}
			if err := fc.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			_, err = dev.CreateBuffer(&gpucore.BufferDesc{Size: 4, Usage: gpucore.BufferUsageUniform})
			closed := errors.Is(err, gpucore.ErrDeviceClosed)
			if closed != tt.wantClosed {
				t.Errorf("device closed = %v, want %v (err %v)", closed, tt.wantClosed, err)
			}
		})
	}
}
