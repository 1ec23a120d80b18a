package filters

import (
	"fmt"
	"sync"

	"github.com/gogpu/filters/gpucore"
	"github.com/gogpu/filters/internal/label"
)

// Surface is a device-resident RGBA8 image.
//
// A surface is created from a [PixelBuffer] with [NewSurface] or as the
// output of a filter step, and read back with [Surface.Read]. It owns its
// texture until Release; a released surface is inert.
type Surface struct {
	ctx  *ComputeContext
	size gpucore.Extent
	name string

	mu      sync.Mutex
	texture gpucore.TextureID
}

// newSurface allocates an uninitialized surface.
func newSurface(ctx *ComputeContext, width, height uint32, name string) (*Surface, error) {
	if ctx.isClosed() {
		return nil, ErrContextClosed
	}
	limit := ctx.limits.MaxTextureDimension2D
	if width == 0 || height == 0 || width > limit || height > limit {
		return nil, fmt.Errorf("%w: surface %dx%d (limit %d)", ErrInvalidParameter, width, height, limit)
	}

	size := gpucore.Extent{Width: width, Height: height}
	id, err := ctx.device.CreateTexture(&gpucore.TextureDesc{
		Label:  label.Surface(name),
		Size:   size,
		Format: gpucore.TextureFormatRGBA8Unorm,
		Usage:  gpucore.SurfaceUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("filters: create %s surface: %w", name, err)
	}
	return &Surface{ctx: ctx, size: size, name: name, texture: id}, nil
}

// NewSurface uploads img into a new surface.
func NewSurface(ctx *ComputeContext, img *PixelBuffer) (*Surface, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil pixel buffer", ErrInvalidParameter)
	}

	s, err := newSurface(ctx, img.width, img.height, "input")
	if err != nil {
		return nil, err
	}

	layout := gpucore.ImageLayout{
		BytesPerRow:  img.width * gpucore.TextureFormatRGBA8Unorm.BytesPerPixel(),
		RowsPerImage: img.height,
	}
	if err := ctx.device.WriteTexture(s.texture, img.pix, layout, s.size); err != nil {
		s.Release()
		return nil, fmt.Errorf("filters: upload: %w", err)
	}
	return s, nil
}

// Width returns the width in pixels.
func (s *Surface) Width() uint32 { return s.size.Width }

// Height returns the height in pixels.
func (s *Surface) Height() uint32 { return s.size.Height }

// Size returns the surface dimensions.
func (s *Surface) Size() gpucore.Extent { return s.size }

// textureID returns the texture, or ErrReleased.
func (s *Surface) textureID() (gpucore.TextureID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.texture == gpucore.InvalidID {
		return gpucore.InvalidID, ErrReleased
	}
	return s.texture, nil
}

// Released reports whether Release has been called.
func (s *Surface) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.texture == gpucore.InvalidID
}

// Release destroys the texture. Release is idempotent and safe on a nil
// surface.
func (s *Surface) Release() {
	if s == nil {
		return
	}
	s.mu.Lock()
	id := s.texture
	s.texture = gpucore.InvalidID
	s.mu.Unlock()

	if id == gpucore.InvalidID {
		return
	}
	s.ctx.device.DestroyTexture(id)
	Logger().Debug("filters: surface released", "surface", s.name,
		"width", s.size.Width, "height", s.size.Height)
}
