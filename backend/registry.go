package backend

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/filters/gpucore"
)

// Factory opens a new device.
type Factory func(ctx context.Context) (gpucore.Device, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens a device from the named backend. An empty name selects
// [Default]. There is no fallback: if the backend fails to open, the error
// is returned.
func Open(ctx context.Context, name string) (gpucore.Device, error) {
	if name == "" {
		name = Default
	}

	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}

	dev, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", name, err)
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: %q", ErrNilDevice, name)
	}
	return dev, nil
}
