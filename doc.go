// Package filters applies image filters on the GPU with compute shaders.
//
// # Overview
//
// A CPU [PixelBuffer] is uploaded into a device [Surface], transformed by a
// chain of compute passes, and read back into a new PixelBuffer. The chain
// is built with an [Operation]:
//
//	dev, err := backend.Open(ctx, backend.Default)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fc, err := filters.NewComputeContext(dev, filters.WithOwnedDevice())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer fc.Close()
//
//	out, err := filters.NewOperation(fc, img).
//		Grayscale().
//		GaussianBlur(3).
//		Resize(640, 480, filters.ResizeLinear).
//		Execute(ctx)
//
// # Filters
//
//   - Grayscale, Inverse, HFlip, VFlip: one pass, 16x16 workgroups
//   - Resize: one pass over the new size, nearest or bilinear sampling
//   - BoxBlur, GaussianBlur: two separable passes, vertical then horizontal,
//     with 128-wide workgroups
//
// Every step writes into a fresh surface and releases the one it read from,
// so no pass ever reads and writes the same texture. Only the last surface
// survives until Execute reads it back.
//
// # Devices
//
// Programs run on any [gpucore.Device]. The backend/wgpu package drives a
// GPU through gogpu/wgpu; backend/reference runs the same programs on the
// CPU and is used by the tests. A [ComputeContext] never switches devices
// on its own.
//
// # Errors
//
// Invalid parameters and device failures are sticky: the first error stops
// the chain, releases its surfaces and is returned by Execute.
package filters
