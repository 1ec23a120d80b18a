package gpucore

// CopyBytesPerRowAlignment is the required alignment of BytesPerRow for
// texture-to-buffer copies.
const CopyBytesPerRowAlignment = 256

// Tile is the image-space area covered by one workgroup.
type Tile struct {
	Width  uint32
	Height uint32
}

// Groups is a dispatch grid in workgroups.
type Groups struct {
	X uint32
	Y uint32
}

// Transpose swaps the grid axes.
func (g Groups) Transpose() Groups {
	return Groups{X: g.Y, Y: g.X}
}

// Plan returns the smallest grid of tiles that covers size.
//
// Image dimensions rarely divide evenly: a 100 pixel wide image with 32 wide
// tiles needs 4 columns (128 pixels), since 3 would leave 4 pixels unvisited.
// Shaders must bounds-check the invocations that fall outside the image.
//
// Plan panics if a tile dimension is zero.
func Plan(size Extent, tile Tile) Groups {
	if tile.Width == 0 || tile.Height == 0 {
		panic("gpucore: zero tile dimension")
	}
	return Groups{
		X: ceilDiv(size.Width, tile.Width),
		Y: ceilDiv(size.Height, tile.Height),
	}
}

// PaddedBytesPerRow returns the row stride for copying an RGBA8 texture of
// the given width into a buffer: width*4 rounded up to the next multiple of
// [CopyBytesPerRowAlignment].
func PaddedBytesPerRow(width uint32) uint32 {
	unpadded := width * TextureFormatRGBA8Unorm.BytesPerPixel()
	return (unpadded + CopyBytesPerRowAlignment - 1) &^ (CopyBytesPerRowAlignment - 1)
}

func ceilDiv(n, d uint32) uint32 {
	return (n + d - 1) / d
}
