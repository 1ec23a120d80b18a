// Package gpucore provides the device abstraction shared by the filter
// pipeline and its backends.
//
// This package defines the [Device] interface, which abstracts over the
// compute backends that can execute filter programs:
//   - gogpu/wgpu (Pure Go WebGPU, backend/wgpu)
//   - the CPU reference device (backend/reference), used for verification
//
// # Architecture
//
// The filter orchestration in the root package is implemented once against
// [Device]. Thin adapters translate the interface into backend calls.
//
//	               +-----------------+
//	               |     filters     |
//	               |   (Operation)   |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  wgpu adapter   |          |    reference    |
//	|  (wgpu.Device)  |          |   (CPU kernels) |
//	+-----------------+          +-----------------+
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [TextureID], etc.).
// The [Device] interface provides creation and destruction methods for each
// resource type. Adapters own the mapping between IDs and real resources.
//
// # Programs
//
// A [Program] names one compute kernel (grayscale, resize, gaussian blur...).
// Each program has a fixed bind group layout ([Program.Layout]) and a fixed
// workgroup size ([Program.WorkgroupSize]). Backends realise a program as a
// WGSL pipeline or as a CPU kernel; callers never see shader source.
//
// # Dispatch Planning
//
// [Plan] maps an image size and a tile size to the number of workgroups to
// dispatch. [PaddedBytesPerRow] gives the row stride required when copying
// a texture into a buffer.
package gpucore
