// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu runs filter programs on the GPU through gogpu/wgpu, the
// pure Go WebGPU implementation.
//
// Importing the package registers the "wgpu" backend together with every
// HAL backend available on the platform (Vulkan, Metal, DX12 or GLES):
//
//	import _ "github.com/gogpu/filters/backend/wgpu"
//
//	dev, err := backend.Open(ctx, backend.Wgpu)
//
// A device can also be created directly, with adapter options:
//
//	dev, err := wgpu.Open(wgpu.WithPowerPreference(gputypes.PowerPreferenceLowPower))
//
// CPU adapters are rejected with ErrNoAdapter: the software HAL does not
// execute compute programs. Use the reference backend to run without a GPU.
//
// A device can also wrap the device of a host application that implements
// gpucontext.DeviceProvider:
//
//	dev, err := wgpu.FromProvider(app)
//
// Every program is compiled from embedded WGSL. Before a pipeline is
// created the shader is checked with naga against the program's bind group
// layout.
//
// Build with the nogpu tag to leave the backend out.
package wgpu
