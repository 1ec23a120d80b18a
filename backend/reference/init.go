package reference

import (
	"context"

	"github.com/gogpu/filters/backend"
	"github.com/gogpu/filters/gpucore"
)

func init() {
	backend.Register(backend.Reference, func(context.Context) (gpucore.Device, error) {
		return New(), nil
	})
}
