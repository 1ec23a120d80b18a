// Package backend provides a pluggable registry of compute devices.
//
// The filter pipeline runs against the [gpucore.Device] interface. Backends
// register a factory under a name from an init function and are opened at
// runtime by that name:
//
//	import (
//		_ "github.com/gogpu/filters/backend/reference"
//		_ "github.com/gogpu/filters/backend/wgpu"
//	)
//
//	dev, err := backend.Open(ctx, backend.Default)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// # Available Backends
//
//   - "wgpu": GPU compute via gogpu/wgpu (the default)
//   - "reference": CPU execution of the same programs, for tests and
//     machines without an adapter
//
// Opening the default backend never falls back to "reference". A caller
// that wants the CPU device asks for it by name.
package backend
