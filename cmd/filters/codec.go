package main

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // decoder only

	"github.com/gogpu/filters"
)

var errFormat = errors.New("unsupported image format")

// format returns the canonical format of a file name by extension.
func format(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	case ".bmp":
		return "bmp", nil
	case ".tif", ".tiff":
		return "tiff", nil
	case ".webp":
		return "webp", nil
	default:
		return "", fmt.Errorf("%w: %q", errFormat, ext)
	}
}

// outputPath derives <stem>_<filters>.<ext> next to input. WebP input is
// written as PNG since there is no WebP encoder.
func outputPath(input string, names []string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	if strings.EqualFold(ext, ".webp") {
		ext = ".png"
	}
	return stem + "_" + strings.Join(names, "_") + ext
}

func readImage(path string) (*filters.PixelBuffer, error) {
	if _, err := format(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return filters.FromImage(img)
}

// encodeFunc writes img to w in one image format.
type encodeFunc func(w io.Writer, img image.Image) error

// encoderFor returns the encoder for the format of path. Formats that can
// only be decoded, such as WebP, are rejected.
func encoderFor(path string, compress bool) (encodeFunc, error) {
	kind, err := format(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "png":
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		if compress {
			enc.CompressionLevel = png.BestCompression
		}
		return enc.Encode, nil
	case "jpeg":
		return func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
		}, nil
	case "bmp":
		return bmp.Encode, nil
	case "tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", errFormat, kind)
	}
}

func writeImage(path string, pb *filters.PixelBuffer, encode encodeFunc) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	if err := encode(w, pb.ToImage()); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return w.Flush()
}
