package filters

import (
	"context"
	"fmt"

	"github.com/gogpu/filters/gpucore"
	"github.com/gogpu/filters/internal/label"
)

// Read copies the surface into a new PixelBuffer.
//
// The texture is copied into a staging buffer whose rows are padded to
// [gpucore.CopyBytesPerRowAlignment]; the padding is dropped while packing
// the result. Read blocks until the device has finished every submitted
// pass that writes the surface, or until ctx is done.
func (s *Surface) Read(ctx context.Context) (*PixelBuffer, error) {
	tex, err := s.textureID()
	if err != nil {
		return nil, err
	}
	if s.ctx.isClosed() {
		return nil, ErrContextClosed
	}

	dev := s.ctx.device
	w, h := s.size.Width, s.size.Height
	padded := gpucore.PaddedBytesPerRow(w)
	size := uint64(padded) * uint64(h)
	if size > s.ctx.limits.MaxBufferSize {
		return nil, fmt.Errorf("%w: readback of %d bytes exceeds device limit", ErrInvalidParameter, size)
	}

	staging, err := dev.CreateBuffer(&gpucore.BufferDesc{
		Label: label.Buffer("readback"),
		Size:  size,
		Usage: gpucore.BufferUsageMapRead | gpucore.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("filters: readback: %w", err)
	}
	defer dev.DestroyBuffer(staging)

	enc, err := dev.CreateCommandEncoder(label.Pass("readback"))
	if err != nil {
		return nil, fmt.Errorf("filters: readback: %w", err)
	}
	enc.CopyTextureToBuffer(tex, staging,
		gpucore.ImageLayout{BytesPerRow: padded, RowsPerImage: h},
		s.size)
	cb, err := enc.Finish()
	if err != nil {
		return nil, fmt.Errorf("filters: readback: %w", err)
	}
	if err := dev.Submit(cb); err != nil {
		return nil, fmt.Errorf("filters: readback: %w", err)
	}

	data, err := dev.MapRead(ctx, staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapFailed, err)
	}
	return newPixelBuffer(w, h, unpadRows(data, w, h, padded)), nil
}

// unpadRows packs height rows of width RGBA8 pixels stored padded bytes
// apart into a tight slice.
func unpadRows(data []byte, width, height, padded uint32) []byte {
	row := int(width) * 4
	if int(padded) == row {
		return data[:row*int(height)]
	}

	out := make([]byte, row*int(height))
	for y := range int(height) {
		src := y * int(padded)
		copy(out[y*row:(y+1)*row], data[src:src+row])
	}
	return out
}
