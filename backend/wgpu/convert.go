// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/filters/gpucore"
)

var bufferUsages = [...]struct {
	from gpucore.BufferUsage
	to   gputypes.BufferUsage
}{
	{gpucore.BufferUsageMapRead, gputypes.BufferUsageMapRead},
	{gpucore.BufferUsageCopySrc, gputypes.BufferUsageCopySrc},
	{gpucore.BufferUsageCopyDst, gputypes.BufferUsageCopyDst},
	{gpucore.BufferUsageUniform, gputypes.BufferUsageUniform},
	{gpucore.BufferUsageStorage, gputypes.BufferUsageStorage},
}

func bufferUsage(u gpucore.BufferUsage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	for _, m := range bufferUsages {
		if u.Has(m.from) {
			out |= m.to
		}
	}
	return out
}

var textureUsages = [...]struct {
	from gpucore.TextureUsage
	to   gputypes.TextureUsage
}{
	{gpucore.TextureUsageCopySrc, gputypes.TextureUsageCopySrc},
	{gpucore.TextureUsageCopyDst, gputypes.TextureUsageCopyDst},
	{gpucore.TextureUsageTextureBinding, gputypes.TextureUsageTextureBinding},
	{gpucore.TextureUsageStorageBinding, gputypes.TextureUsageStorageBinding},
}

func textureUsage(u gpucore.TextureUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	for _, m := range textureUsages {
		if u&m.from != 0 {
			out |= m.to
		}
	}
	return out
}

// textureFormat maps a texture format. Only RGBA8 unorm is supported.
func textureFormat(f gpucore.TextureFormat) (gputypes.TextureFormat, bool) {
	if f == gpucore.TextureFormatRGBA8Unorm {
		return gputypes.TextureFormatRGBA8Unorm, true
	}
	return gputypes.TextureFormatUndefined, false
}

func filterMode(m gpucore.FilterMode) gputypes.FilterMode {
	if m == gpucore.FilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

// layoutEntry converts a program binding into a compute-visible layout
// entry.
func layoutEntry(e gpucore.BindGroupLayoutEntry) gputypes.BindGroupLayoutEntry {
	out := gputypes.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: gputypes.ShaderStageCompute,
	}
	switch e.Type {
	case gpucore.BindingTypeUniformBuffer:
		out.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: e.MinBindingSize,
		}
	case gpucore.BindingTypeReadOnlyStorageBuffer:
		out.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeReadOnlyStorage,
			MinBindingSize: e.MinBindingSize,
		}
	case gpucore.BindingTypeSampler:
		out.Sampler = &gputypes.SamplerBindingLayout{
			Type: gputypes.SamplerBindingTypeFiltering,
		}
	case gpucore.BindingTypeSampledTexture:
		out.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case gpucore.BindingTypeStorageTexture:
		out.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessWriteOnly,
			Format:        gputypes.TextureFormatRGBA8Unorm,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	}
	return out
}

func layoutEntries(entries []gpucore.BindGroupLayoutEntry) []gputypes.BindGroupLayoutEntry {
	out := make([]gputypes.BindGroupLayoutEntry, len(entries))
	for i, e := range entries {
		out[i] = layoutEntry(e)
	}
	return out
}

func limits(l gputypes.Limits) gpucore.Limits {
	return gpucore.Limits{
		MaxTextureDimension2D: l.MaxTextureDimension2D,
		MaxBufferSize:         l.MaxBufferSize,
		MaxComputeWorkgroupSize: [3]uint32{
			l.MaxComputeWorkgroupSizeX,
			l.MaxComputeWorkgroupSizeY,
			l.MaxComputeWorkgroupSizeZ,
		},
		MaxComputeInvocationsPerWorkgroup: l.MaxComputeInvocationsPerWorkgroup,
		MaxComputeWorkgroupsPerDimension:  l.MaxComputeWorkgroupsPerDimension,
	}
}

// adapterType classifies an adapter the way gpucontext reports it.
func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}
