// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu_test

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/filters"
	"github.com/gogpu/filters/backend"
	"github.com/gogpu/filters/backend/reference"
	"github.com/gogpu/filters/backend/wgpu"
	"github.com/gogpu/filters/gpucore"
)

func openGPU(t *testing.T) *wgpu.Device {
	t.Helper()
	dev, err := wgpu.Open()
	if err != nil {
		t.Skipf("GPU not available: %v (expected in CI/test environments)", err)
	}
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.Wgpu) {
		t.Fatal("wgpu backend not registered on import")
	}
}

func TestOpenRejectsSoftwareAdapter(t *testing.T) {
	dev, err := wgpu.Open()
	if err != nil {
		if !errors.Is(err, wgpu.ErrNoAdapter) {
			t.Skipf("GPU not available: %v", err)
		}
		return
	}
	defer dev.Close()
	if dev.Info().Software {
		t.Errorf("Open() returned software adapter %+v", dev.Info())
	}
}

func TestFromProviderRejectsForeignDevice(t *testing.T) {
	if _, err := wgpu.FromProvider(nil); !errors.Is(err, wgpu.ErrProviderDevice) {
		t.Errorf("FromProvider(nil) error = %v, want ErrProviderDevice", err)
	}
	if _, err := wgpu.FromProvider(foreignProvider{}); !errors.Is(err, wgpu.ErrProviderDevice) {
		t.Errorf("FromProvider(foreign) error = %v, want ErrProviderDevice", err)
	}
}

type foreignProvider struct{ gpucontext.DeviceProvider }

func (foreignProvider) Device() gpucontext.Device { return struct{}{} }

func TestDeviceProvider(t *testing.T) {
	dev := openGPU(t)

	if f := dev.SurfaceFormat(); f != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("SurfaceFormat() = %v, want rgba8unorm", f)
	}
	if dev.AdapterInfo().Name != dev.Info().Name {
		t.Errorf("AdapterInfo().Name = %q, Info().Name = %q", dev.AdapterInfo().Name, dev.Info().Name)
	}

	// A device wrapping another device's objects shares them and leaves
	// them open on Close.
	shared, err := wgpu.FromProvider(dev)
	if err != nil {
		t.Fatalf("FromProvider: %v", err)
	}
	if shared.Device() != dev.Device() {
		t.Error("shared device does not reuse the provider's device")
	}
	if err := shared.Close(); err != nil {
		t.Fatalf("Close shared: %v", err)
	}
	if _, err := dev.CreateBuffer(&gpucore.BufferDesc{Size: 4, Usage: gpucore.BufferUsageUniform}); err != nil {
		t.Errorf("provider device unusable after shared Close: %v", err)
	}
}

func TestWarmup(t *testing.T) {
	dev := openGPU(t)

	fc, err := filters.NewComputeContext(dev, filters.WithWarmup())
	if err != nil {
		t.Skipf("compute pipelines not available: %v", err)
	}
	_ = fc.Close()
}

// TestMatchesReference runs each filter on the GPU and on the reference
// device and compares the pixels.
func TestMatchesReference(t *testing.T) {
	dev := openGPU(t)
	if dev.Info().Software {
		t.Skip("compute results are compared on hardware adapters only")
	}
	gpu, err := filters.NewComputeContext(dev, filters.WithWarmup())
	if err != nil {
		t.Skipf("compute pipelines not available: %v", err)
	}
	defer gpu.Close()

	cpu, err := filters.NewComputeContext(reference.New(), filters.WithOwnedDevice())
	if err != nil {
		t.Fatalf("NewComputeContext(reference): %v", err)
	}
	defer cpu.Close()

	img := pattern(t, 67, 45)

	tests := []struct {
		name      string
		apply     func(*filters.Operation) *filters.Operation
		tolerance int
	}{
		{"grayscale", (*filters.Operation).Grayscale, 1},
		{"inverse", (*filters.Operation).Inverse, 0},
		{"hflip", (*filters.Operation).HFlip, 0},
		{"vflip", (*filters.Operation).VFlip, 0},
		{"resize nearest", func(op *filters.Operation) *filters.Operation {
			return op.Resize(33, 90, filters.ResizeNearest)
		}, 0},
		{"box blur", func(op *filters.Operation) *filters.Operation { return op.BoxBlur(4) }, 1},
		{"gaussian blur", func(op *filters.Operation) *filters.Operation { return op.GaussianBlur(2.5) }, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := tt.apply(filters.NewOperation(cpu, img)).Execute(t.Context())
			if err != nil {
				t.Fatalf("reference: %v", err)
			}
			got, err := tt.apply(filters.NewOperation(gpu, img)).Execute(t.Context())
			if err != nil {
				t.Fatalf("wgpu: %v", err)
			}
			compare(t, got, want, tt.tolerance)
		})
	}
}

func pattern(t *testing.T, w, h uint32) *filters.PixelBuffer {
	t.Helper()
	pix := make([]byte, 0, w*h*4)
	for y := range h {
		for x := range w {
			pix = append(pix, byte(x*5), byte(y*3), byte((x*y)%251), 255)
		}
	}
	pb, err := filters.NewPixelBuffer(w, h, pix)
	if err != nil {
		t.Fatalf("NewPixelBuffer: %v", err)
	}
	return pb
}

func compare(t *testing.T, got, want *filters.PixelBuffer, tolerance int) {
	t.Helper()
	if got.Width() != want.Width() || got.Height() != want.Height() {
		t.Fatalf("size = %dx%d, want %dx%d", got.Width(), got.Height(), want.Width(), want.Height())
	}
	g, w := got.Pix(), want.Pix()
	for i := range g {
		d := int(g[i]) - int(w[i])
		if d < -tolerance || d > tolerance {
			px := i / 4
			t.Fatalf("pixel (%d, %d) channel %d = %d, want %d +/- %d",
				px%int(got.Width()), px/int(got.Width()), i%4, g[i], w[i], tolerance)
		}
	}
}
