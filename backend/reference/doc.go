// Package reference implements [gpucore.Device] on the CPU.
//
// The reference device executes the same programs as the GPU backends, with
// the same bind group layouts, dispatch grids and rgba8unorm storage
// semantics, so filter chains can be run and verified on machines without
// an adapter. Command buffers execute synchronously on Submit; each
// dispatch is spread across a [parallel.WorkerPool] one workgroup at a time.
//
// Importing the package registers it with the backend registry under
// [backend.Reference]:
//
//	import _ "github.com/gogpu/filters/backend/reference"
//
// The device also records a trace of every dispatch it executes, which
// tests use to observe how an operation was encoded.
package reference
