package filters

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// PixelBuffer is an immutable CPU image of straight-alpha RGBA8 pixels,
// stored row-major and tightly packed (4 bytes per pixel, no row padding).
type PixelBuffer struct {
	width  uint32
	height uint32
	pix    []byte
}

// NewPixelBuffer creates a pixel buffer from a copy of pix.
// It returns [ErrInvalidParameter] for a zero dimension and [ErrBufferSize]
// when len(pix) != width*height*4.
func NewPixelBuffer(width, height uint32, pix []byte) (*PixelBuffer, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidParameter, width, height)
	}
	if uint64(len(pix)) != uint64(width)*uint64(height)*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrBufferSize, len(pix), width, height)
	}
	return &PixelBuffer{width: width, height: height, pix: bytes.Clone(pix)}, nil
}

// newPixelBuffer wraps pix without copying. The caller gives up pix.
func newPixelBuffer(width, height uint32, pix []byte) *PixelBuffer {
	return &PixelBuffer{width: width, height: height, pix: pix}
}

// FromImage converts any image to a pixel buffer. Colors are converted to
// non-premultiplied RGBA8.
func FromImage(img image.Image) (*PixelBuffer, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidParameter)
	}

	var nrgba *image.NRGBA
	if n, ok := img.(*image.NRGBA); ok && n.Stride == 4*b.Dx() {
		nrgba = n
	} else {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Copy(nrgba, image.Point{}, img, b, draw.Src, nil)
	}
	return NewPixelBuffer(uint32(b.Dx()), uint32(b.Dy()), nrgba.Pix[:4*b.Dx()*b.Dy()])
}

// Width returns the width in pixels.
func (p *PixelBuffer) Width() uint32 {
	return p.width
}

// Height returns the height in pixels.
func (p *PixelBuffer) Height() uint32 {
	return p.height
}

// Pix returns a copy of the pixel data.
func (p *PixelBuffer) Pix() []byte {
	return bytes.Clone(p.pix)
}

// At returns the color of a single pixel. Out-of-range coordinates return
// transparent black.
func (p *PixelBuffer) At(x, y int) color.NRGBA {
	if x < 0 || y < 0 || x >= int(p.width) || y >= int(p.height) {
		return color.NRGBA{}
	}
	i := (y*int(p.width) + x) * 4
	return color.NRGBA{R: p.pix[i], G: p.pix[i+1], B: p.pix[i+2], A: p.pix[i+3]}
}

// Equal reports whether both buffers have the same dimensions and pixels.
func (p *PixelBuffer) Equal(o *PixelBuffer) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.width == o.width && p.height == o.height && bytes.Equal(p.pix, o.pix)
}

// ToImage returns the buffer as an *image.NRGBA backed by a copy of the
// pixels.
func (p *PixelBuffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, int(p.width), int(p.height)))
	copy(img.Pix, p.pix)
	return img
}
