// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"context"

	"github.com/gogpu/filters/backend"
	"github.com/gogpu/filters/gpucore"
)

// init registers the wgpu backend on package import.
func init() {
	backend.Register(backend.Wgpu, func(context.Context) (gpucore.Device, error) {
		return Open()
	})
}
