package gpucore

import "errors"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// SamplerID is an opaque handle to a texture sampler.
type SamplerID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Errors shared by device implementations.
var (
	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrDeviceClosed is returned when a device is used after Close.
	ErrDeviceClosed = errors.New("gpucore: device closed")

	// ErrBindingMismatch is returned when bind group entries do not match
	// the program layout.
	ErrBindingMismatch = errors.New("gpucore: bind group does not match layout")
)

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageMapRead indicates the buffer can be mapped for reading.
	BufferUsageMapRead BufferUsage = 1 << 0

	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 2

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 3

	// BufferUsageUniform indicates the buffer can be used as a uniform buffer.
	BufferUsageUniform BufferUsage = 1 << 6

	// BufferUsageStorage indicates the buffer can be used as a storage buffer.
	BufferUsageStorage BufferUsage = 1 << 7
)

// Has reports whether all bits of flag are set.
func (u BufferUsage) Has(flag BufferUsage) bool { return u&flag == flag }

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	// It is the only format the filter pipeline produces.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1
)

// String returns the WebGPU name of the format.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the number of bytes per texel.
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case TextureFormatRGBA8Unorm:
		return 4
	default:
		return 0
	}
}

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	// TextureUsageCopySrc indicates the texture can be used as a copy source.
	TextureUsageCopySrc TextureUsage = 1 << 0

	// TextureUsageCopyDst indicates the texture can be used as a copy destination.
	TextureUsageCopyDst TextureUsage = 1 << 1

	// TextureUsageTextureBinding indicates the texture can be bound as a sampled texture.
	TextureUsageTextureBinding TextureUsage = 1 << 2

	// TextureUsageStorageBinding indicates the texture can be bound as a storage texture.
	TextureUsageStorageBinding TextureUsage = 1 << 3
)

// SurfaceUsage is the usage every filter surface is created with: it is
// uploaded to, sampled, written by compute passes and copied out.
const SurfaceUsage = TextureUsageCopySrc | TextureUsageCopyDst |
	TextureUsageTextureBinding | TextureUsageStorageBinding

// FilterMode selects how a sampler interpolates between texels.
type FilterMode uint32

// Filter modes.
const (
	FilterNearest FilterMode = iota + 1
	FilterLinear
)

// String returns a string representation of the filter mode.
func (m FilterMode) String() string {
	switch m {
	case FilterNearest:
		return "nearest"
	case FilterLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// BindingType specifies the type of a shader binding.
type BindingType uint32

// Binding types.
const (
	// BindingTypeUniformBuffer is a uniform buffer binding.
	BindingTypeUniformBuffer BindingType = iota + 1

	// BindingTypeReadOnlyStorageBuffer is a read-only storage buffer binding.
	BindingTypeReadOnlyStorageBuffer

	// BindingTypeSampler is a filtering sampler binding.
	BindingTypeSampler

	// BindingTypeSampledTexture is a sampled 2D float texture binding.
	BindingTypeSampledTexture

	// BindingTypeStorageTexture is a write-only rgba8unorm storage texture binding.
	BindingTypeStorageTexture
)

// String returns a string representation of the binding type.
func (t BindingType) String() string {
	switch t {
	case BindingTypeUniformBuffer:
		return "uniform"
	case BindingTypeReadOnlyStorageBuffer:
		return "storage(read)"
	case BindingTypeSampler:
		return "sampler"
	case BindingTypeSampledTexture:
		return "texture_2d"
	case BindingTypeStorageTexture:
		return "texture_storage_2d"
	default:
		return "unknown"
	}
}

// Extent is a 2D size in texels.
type Extent struct {
	Width  uint32
	Height uint32
}

// ImageLayout describes how texel rows are laid out in a buffer.
type ImageLayout struct {
	// Offset is the byte offset of the first row.
	Offset uint64

	// BytesPerRow is the stride between rows. Texture-to-buffer copies
	// require a multiple of [CopyBytesPerRowAlignment].
	BytesPerRow uint32

	// RowsPerImage is the number of rows in the image.
	RowsPerImage uint32
}

// TextureDesc describes a texture.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	// Size is the texture size.
	Size Extent

	// Format is the texel format.
	Format TextureFormat

	// Usage describes how the texture will be used.
	Usage TextureUsage
}

// BufferDesc describes a buffer.
type BufferDesc struct {
	// Label is an optional debug label.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage describes how the buffer will be used.
	Usage BufferUsage
}

// SamplerDesc describes a sampler. Addressing is always clamp-to-edge.
type SamplerDesc struct {
	// Label is an optional debug label.
	Label string

	// Filter is used for both magnification and minification.
	Filter FilterMode
}

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	// Label is an optional debug label.
	Label string

	// Program is the kernel the pipeline runs.
	Program Program
}

// BindGroupEntry describes a single binding in a bind group.
// Exactly one of Buffer, Texture or Sampler is set.
type BindGroupEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Buffer is the buffer to bind (for buffer bindings).
	Buffer BufferID

	// Offset is the offset into the buffer.
	Offset uint64

	// Size is the size of the buffer range to bind.
	// Use 0 to bind the entire buffer from offset.
	Size uint64

	// Texture is the texture to bind (for sampled and storage textures).
	Texture TextureID

	// Sampler is the sampler to bind.
	Sampler SamplerID
}

// BindGroupDesc describes a bind group. The layout is taken from the
// pipeline's program at index Group.
type BindGroupDesc struct {
	// Label is an optional debug label.
	Label string

	// Pipeline is the pipeline whose layout the group satisfies.
	Pipeline ComputePipelineID

	// Group is the bind group index within the pipeline layout.
	Group uint32

	// Entries are the resource bindings.
	Entries []BindGroupEntry
}

// Limits lists the device limits the pipeline depends on.
type Limits struct {
	// MaxTextureDimension2D is the largest width or height of a 2D texture.
	MaxTextureDimension2D uint32

	// MaxBufferSize is the maximum buffer size in bytes.
	MaxBufferSize uint64

	// MaxComputeWorkgroupSize is the maximum workgroup size per dimension.
	MaxComputeWorkgroupSize [3]uint32

	// MaxComputeInvocationsPerWorkgroup bounds the product of the workgroup size.
	MaxComputeInvocationsPerWorkgroup uint32

	// MaxComputeWorkgroupsPerDimension bounds each dispatch dimension.
	MaxComputeWorkgroupsPerDimension uint32
}

// DefaultLimits returns the WebGPU default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxTextureDimension2D:             8192,
		MaxBufferSize:                     256 << 20,
		MaxComputeWorkgroupSize:           [3]uint32{256, 256, 64},
		MaxComputeInvocationsPerWorkgroup: 256,
		MaxComputeWorkgroupsPerDimension:  65535,
	}
}

// DeviceInfo describes the device behind a [Device].
type DeviceInfo struct {
	// Name is the adapter name (e.g., "NVIDIA GeForce RTX 4090").
	Name string

	// Backend names the implementation ("wgpu", "reference").
	Backend string

	// Software reports whether the device runs on the CPU.
	Software bool
}
