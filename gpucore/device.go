package gpucore

import "context"

// Device abstracts over the compute backends that execute filter programs.
//
// This interface is the core abstraction that allows the filter pipeline to
// run on gogpu/wgpu or on the CPU reference device without change.
// Implementations must be safe for concurrent use.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource after the command buffer that uses it has been
//     submitted is allowed; the device keeps it alive until the work retires
//   - IDs become invalid after destruction and are never reused
type Device interface {
	// === Capabilities ===

	// Info describes the device.
	Info() DeviceInfo

	// Limits returns the device limits.
	Limits() Limits

	// === Texture Management ===

	// CreateTexture creates a 2D texture.
	CreateTexture(desc *TextureDesc) (TextureID, error)

	// WriteTexture uploads tightly or loosely packed rows into a texture.
	// layout.BytesPerRow is the source stride; size is the region written
	// starting at the origin.
	WriteTexture(id TextureID, data []byte, layout ImageLayout, size Extent) error

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// === Buffer Management ===

	// CreateBuffer creates a GPU buffer.
	CreateBuffer(desc *BufferDesc) (BufferID, error)

	// WriteBuffer writes data to a buffer through the queue.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// DestroyBuffer releases a buffer.
	DestroyBuffer(id BufferID)

	// MapRead waits until all submitted work touching the buffer has
	// completed, maps the range for reading and returns a copy of it.
	// This is a GPU-CPU synchronization point.
	MapRead(ctx context.Context, id BufferID, offset, size uint64) ([]byte, error)

	// === Samplers and Pipelines ===

	// CreateSampler creates a clamp-to-edge sampler.
	CreateSampler(desc *SamplerDesc) (SamplerID, error)

	// DestroySampler releases a sampler.
	DestroySampler(id SamplerID)

	// CreateComputePipeline creates a pipeline for a program. The pipeline
	// owns the bind group layouts returned by [Program.Layout].
	CreateComputePipeline(desc *ComputePipelineDesc) (ComputePipelineID, error)

	// DestroyComputePipeline releases a compute pipeline.
	DestroyComputePipeline(id ComputePipelineID)

	// CreateBindGroup creates a bind group against one of the pipeline's
	// layouts.
	CreateBindGroup(desc *BindGroupDesc) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)

	// === Command Recording and Execution ===

	// CreateCommandEncoder begins recording a command buffer.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Submit submits finished command buffers to the queue in order.
	Submit(buffers ...CommandBuffer) error

	// Close releases every resource still owned by the device.
	Close() error
}

// CommandEncoder records commands into a command buffer.
//
// The encoder is single-use and cannot be reused after Finish.
type CommandEncoder interface {
	// BeginComputePass begins a compute pass. The pass must be ended before
	// any other command is recorded.
	BeginComputePass(label string) (ComputePassEncoder, error)

	// CopyTextureToBuffer copies a region of a texture, starting at the
	// origin, into a buffer using the given row layout.
	CopyTextureToBuffer(src TextureID, dst BufferID, layout ImageLayout, size Extent)

	// Finish ends recording and returns the command buffer.
	Finish() (CommandBuffer, error)
}

// ComputePassEncoder records compute commands.
//
// Usage:
//  1. Obtain encoder from CommandEncoder.BeginComputePass()
//  2. Set pipeline and bind groups
//  3. Dispatch compute workgroups
//  4. Call End() to finish recording
//
// The encoder is single-use and cannot be reused after End().
type ComputePassEncoder interface {
	// SetPipeline sets the active compute pipeline.
	SetPipeline(pipeline ComputePipelineID)

	// SetBindGroup sets a bind group at the specified index.
	SetBindGroup(index uint32, group BindGroupID)

	// Dispatch dispatches compute workgroups.
	// Total invocations = x * y * z * workgroup size.
	Dispatch(x, y, z uint32)

	// End finishes the compute pass and reports the first recording error.
	End() error
}

// CommandBuffer is a finished, submittable command list. Its concrete type
// belongs to the device that produced it.
type CommandBuffer interface {
	// Label returns the debug label given to the encoder.
	Label() string
}
