package filters

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/gogpu/filters/backend/reference"
	"github.com/gogpu/filters/gpucore"
	"github.com/gogpu/filters/internal/kernel"
)

// =============================================================================
// Helpers
// =============================================================================

func newReference(t *testing.T) (*ComputeContext, *reference.Device) {
	t.Helper()
	dev := reference.New(reference.WithWorkers(2))
	fc, err := NewComputeContext(dev, WithOwnedDevice())
	if err != nil {
		t.Fatalf("NewComputeContext: %v", err)
	}
	t.Cleanup(func() { _ = fc.Close() })
	return fc, dev
}

func mustPixels(t *testing.T, w, h uint32, pix []byte) *PixelBuffer {
	t.Helper()
	pb, err := NewPixelBuffer(w, h, pix)
	if err != nil {
		t.Fatalf("NewPixelBuffer: %v", err)
	}
	return pb
}

// gradient returns a w x h image whose channels vary with position.
func gradient(t *testing.T, w, h uint32) *PixelBuffer {
	t.Helper()
	pix := make([]byte, 0, w*h*4)
	for y := range h {
		for x := range w {
			pix = append(pix, byte(x*7), byte(y*5), byte(x+y), byte(255-x))
		}
	}
	return mustPixels(t, w, h, pix)
}

func execute(t *testing.T, op *Operation) *PixelBuffer {
	t.Helper()
	pb, err := op.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return pb
}

// =============================================================================
// Simple Filter Tests
// =============================================================================

func TestInverseTransparentBlack(t *testing.T) {
	fc, _ := newReference(t)
	img := mustPixels(t, 2, 2, make([]byte, 16))

	got := execute(t, NewOperation(fc, img).Inverse())

	want := mustPixels(t, 2, 2, bytes.Repeat([]byte{255, 255, 255, 0}, 4))
	if !got.Equal(want) {
		t.Errorf("Inverse() = %v, want %v", got.pix, want.pix)
	}
}

func TestInverseTwiceIsIdentity(t *testing.T) {
	fc, _ := newReference(t)
	img := gradient(t, 37, 21)

	got := execute(t, NewOperation(fc, img).Inverse().Inverse())

	if !got.Equal(img) {
		t.Error("Inverse().Inverse() changed the image")
	}
}

func TestHFlip(t *testing.T) {
	fc, _ := newReference(t)
	img := mustPixels(t, 2, 2, []byte{
		128, 0, 0, 0, 0, 0, 54, 0,
		0, 22, 0, 0, 12, 7, 32, 0,
	})
	want := mustPixels(t, 2, 2, []byte{
		0, 0, 54, 0, 128, 0, 0, 0,
		12, 7, 32, 0, 0, 22, 0, 0,
	})

	if got := execute(t, NewOperation(fc, img).HFlip()); !got.Equal(want) {
		t.Errorf("HFlip() = %v, want %v", got.pix, want.pix)
	}
}

func TestFlipsAreInvolutions(t *testing.T) {
	fc, _ := newReference(t)
	img := gradient(t, 19, 33)

	if got := execute(t, NewOperation(fc, img).HFlip().HFlip()); !got.Equal(img) {
		t.Error("HFlip twice changed the image")
	}
	if got := execute(t, NewOperation(fc, img).VFlip().VFlip()); !got.Equal(img) {
		t.Error("VFlip twice changed the image")
	}
}

func TestVFlipMovesRows(t *testing.T) {
	fc, _ := newReference(t)
	img := gradient(t, 5, 4)
	got := execute(t, NewOperation(fc, img).VFlip())

	for y := range 4 {
		for x := range 5 {
			if got.At(x, y) != img.At(x, 3-y) {
				t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, got.At(x, y), img.At(x, 3-y))
			}
		}
	}
}

func TestGrayscale(t *testing.T) {
	fc, _ := newReference(t)
	img := gradient(t, 40, 17)

	op := NewOperation(fc, img).Grayscale()
	if w, h := op.Dimensions(); w != 40 || h != 17 {
		t.Errorf("Dimensions() = %dx%d, want 40x17", w, h)
	}
	got := execute(t, op)

	if got.Width() != 40 || got.Height() != 17 {
		t.Fatalf("result is %dx%d, want 40x17", got.Width(), got.Height())
	}
	for y := range 17 {
		for x := range 40 {
			c := got.At(x, y)
			if c.R != c.G || c.G != c.B {
				t.Fatalf("pixel (%d, %d) = %v is not gray", x, y, c)
			}
			if c.A != img.At(x, y).A {
				t.Fatalf("pixel (%d, %d) alpha changed", x, y)
			}
		}
	}
}

// =============================================================================
// Resize Tests
// =============================================================================

func TestResizeDimensions(t *testing.T) {
	fc, _ := newReference(t)
	img := gradient(t, 64, 48)

	op := NewOperation(fc, img).Resize(32, 24, ResizeLinear)
	if w, h := op.Dimensions(); w != 32 || h != 24 {
		t.Errorf("Dimensions() = %dx%d, want 32x24", w, h)
	}
	got := execute(t, op)
	if got.Width() != 32 || got.Height() != 24 {
		t.Errorf("result is %dx%d, want 32x24", got.Width(), got.Height())
	}
}

func TestResizeNearestUpscale(t *testing.T) {
	fc, _ := newReference(t)
	img := gradient(t, 3, 2)

	got := execute(t, NewOperation(fc, img).Resize(6, 4, ResizeNearest))
	for y := range 4 {
		for x := range 6 {
			if got.At(x, y) != img.At(x/2, y/2) {
				t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, got.At(x, y), img.At(x/2, y/2))
			}
		}
	}
}

func TestResizeThenFilterUsesNewSize(t *testing.T) {
	fc, dev := newReference(t)
	img := gradient(t, 300, 10)

	got := execute(t, NewOperation(fc, img).Resize(150, 5, ResizeLinear).Inverse())
	if got.Width() != 150 || got.Height() != 5 {
		t.Fatalf("result is %dx%d, want 150x5", got.Width(), got.Height())
	}

	trace := dev.Trace()
	last := trace[len(trace)-1]
	if last.Program != gpucore.ProgramInverse || last.Groups != (gpucore.Groups{X: 10, Y: 1}) {
		t.Errorf("inverse dispatch = %+v, want 10x1 groups", last)
	}
}

// =============================================================================
// Blur Tests
// =============================================================================

func TestBlurSequence(t *testing.T) {
	if blurSequence[0].orientation != 1 || blurSequence[1].orientation != 0 {
		t.Fatalf("orientations = %d, %d; want 1, 0",
			blurSequence[0].orientation, blurSequence[1].orientation)
	}

	size := gpucore.Extent{Width: 300, Height: 200}
	if got := blurSequence[0].groups(size); got != (gpucore.Groups{X: 3, Y: 200}) {
		t.Errorf("vertical groups = %+v, want {3 200}", got)
	}
	if got := blurSequence[1].groups(size); got != (gpucore.Groups{X: 2, Y: 300}) {
		t.Errorf("horizontal groups = %+v, want {2 300}", got)
	}
}

func TestBoxBlurPasses(t *testing.T) {
	fc, dev := newReference(t)
	img := gradient(t, 300, 200)
	op := NewOperation(fc, img)
	dev.ResetTrace()

	got := execute(t, op.BoxBlur(15))
	if got.Width() != 300 || got.Height() != 200 {
		t.Fatalf("result is %dx%d, want 300x200", got.Width(), got.Height())
	}

	trace := dev.Trace()
	if len(trace) != 2 {
		t.Fatalf("trace has %d dispatches, want 2", len(trace))
	}
	vertical, horizontal := trace[0], trace[1]

	if vertical.Program != gpucore.ProgramBoxBlur || vertical.Orientation != 1 {
		t.Errorf("first pass = %+v, want vertical box blur", vertical)
	}
	if horizontal.Orientation != 0 {
		t.Errorf("second pass orientation = %d, want 0", horizontal.Orientation)
	}
	if vertical.Groups != (gpucore.Groups{X: 3, Y: 200}) {
		t.Errorf("vertical groups = %+v", vertical.Groups)
	}
	if horizontal.Groups != (gpucore.Groups{X: 2, Y: 300}) {
		t.Errorf("horizontal groups = %+v", horizontal.Groups)
	}

	size := gpucore.Extent{Width: 300, Height: 200}
	for i, d := range trace {
		if d.Input != size || d.Output != size {
			t.Errorf("pass %d sizes = %+v -> %+v, want %+v", i, d.Input, d.Output, size)
		}
	}
	if horizontal.InputTexture != vertical.OutputTexture {
		t.Error("horizontal pass does not read the vertical pass output")
	}
	if vertical.InputTexture == vertical.OutputTexture || horizontal.InputTexture == horizontal.OutputTexture {
		t.Error("a pass reads and writes the same texture")
	}

	if n := dev.LiveTextures(); n != 0 {
		t.Errorf("LiveTextures() = %d after Execute, want 0", n)
	}
	if n := dev.LiveBuffers(); n != 0 {
		t.Errorf("LiveBuffers() = %d after Execute, want 0", n)
	}
	if n := dev.LiveBindGroups(); n != 0 {
		t.Errorf("LiveBindGroups() = %d after Execute, want 0", n)
	}
}

func TestBlurReleasesIntermediates(t *testing.T) {
	fc, dev := newReference(t)
	op := NewOperation(fc, gradient(t, 20, 20))

	op.GaussianBlur(1.5)
	if err := op.Err(); err != nil {
		t.Fatalf("GaussianBlur: %v", err)
	}
	if n := dev.LiveTextures(); n != 1 {
		t.Errorf("LiveTextures() = %d after blur, want 1", n)
	}
	if n := dev.LiveBuffers(); n != 0 {
		t.Errorf("LiveBuffers() = %d after blur, want 0", n)
	}
	execute(t, op)
}

func TestGaussianBlurFlatImage(t *testing.T) {
	fc, _ := newReference(t)
	img := mustPixels(t, 50, 30, bytes.Repeat([]byte{90, 160, 30, 255}, 50*30))

	if got := execute(t, NewOperation(fc, img).GaussianBlur(3)); !got.Equal(img) {
		t.Error("GaussianBlur changed a flat image")
	}
}

func TestBoxBlurSpreadsPoint(t *testing.T) {
	fc, _ := newReference(t)
	const n = 9
	pix := make([]byte, n*n*4)
	center := (4*n + 4) * 4
	pix[center], pix[center+1], pix[center+2], pix[center+3] = 255, 255, 255, 255
	img := mustPixels(t, n, n, pix)

	got := execute(t, NewOperation(fc, img).BoxBlur(1))

	// The vertical pass leaves a 3 pixel column of 85, the horizontal pass
	// a 3x3 block of 28.
	for y := range n {
		for x := range n {
			inside := x >= 3 && x <= 5 && y >= 3 && y <= 5
			c := got.At(x, y)
			if inside && c.R != 28 {
				t.Errorf("pixel (%d, %d) = %v, want 28", x, y, c)
			}
			if !inside && c.R != 0 {
				t.Errorf("pixel (%d, %d) = %v outside the window", x, y, c)
			}
		}
	}
}

func TestGaussianBlurSpreadsPoint(t *testing.T) {
	fc, _ := newReference(t)
	const n, point, sigma = 16, 2, 1.5

	// One row: the vertical pass only sees clamped copies of the same pixel
	// and leaves it unchanged, so the result is the horizontal convolution.
	row := make([]float64, n)
	row[point] = 1
	pix := make([]byte, n*4)
	pix[point*4], pix[point*4+3] = 255, 255
	img := mustPixels(t, n, 1, pix)

	got := execute(t, NewOperation(fc, img).GaussianBlur(sigma))

	k := kernel.Gaussian(sigma)
	r := k.Radius()
	for x := range n {
		var sum float64
		for o := -r; o <= r; o++ {
			sx := min(max(x+o, 0), n-1)
			sum += row[sx] * float64(k.Weights[o+r])
		}
		want := math.Floor(sum/float64(k.Sum)*255 + 0.5)

		c := got.At(x, 0)
		if math.Abs(float64(c.R)-want) > 1 || math.Abs(float64(c.A)-want) > 1 {
			t.Errorf("pixel %d = %v, want R and A near %v", x, c, want)
		}
		if c.G != 0 || c.B != 0 {
			t.Errorf("pixel %d = %v, want G and B zero", x, c)
		}
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestInvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Operation) *Operation
	}{
		{"box blur radius 0", func(op *Operation) *Operation { return op.BoxBlur(0) }},
		{"gaussian sigma 0", func(op *Operation) *Operation { return op.GaussianBlur(0) }},
		{"gaussian sigma negative", func(op *Operation) *Operation { return op.GaussianBlur(-1) }},
		{"gaussian sigma NaN", func(op *Operation) *Operation { return op.GaussianBlur(float32(math.NaN())) }},
		{"gaussian sigma Inf", func(op *Operation) *Operation { return op.GaussianBlur(float32(math.Inf(1))) }},
		{"gaussian sigma underflows", func(op *Operation) *Operation { return op.GaussianBlur(1e-30) }},
		{"gaussian sigma above limit", func(op *Operation) *Operation { return op.GaussianBlur(1e9) }},
		{"resize zero width", func(op *Operation) *Operation { return op.Resize(0, 4, ResizeLinear) }},
		{"resize zero height", func(op *Operation) *Operation { return op.Resize(4, 0, ResizeNearest) }},
		{"resize above limit", func(op *Operation) *Operation { return op.Resize(1<<20, 4, ResizeLinear) }},
		{"resize unknown mode", func(op *Operation) *Operation { return op.Resize(4, 4, ResizeMode(9)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, dev := newReference(t)
			op := tt.apply(NewOperation(fc, gradient(t, 4, 4)))

			if !errors.Is(op.Err(), ErrInvalidParameter) {
				t.Fatalf("Err() = %v, want ErrInvalidParameter", op.Err())
			}
			if n := dev.LiveTextures(); n != 0 {
				t.Errorf("LiveTextures() = %d after failure, want 0", n)
			}

			// Sticky: later filters are no-ops.
			dev.ResetTrace()
			op.Inverse().Grayscale()
			if len(dev.Trace()) != 0 {
				t.Error("filters ran after a failure")
			}
			if _, err := op.Execute(context.Background()); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("Execute() = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestNewOperationErrors(t *testing.T) {
	fc, _ := newReference(t)

	if _, err := NewOperation(fc, nil).Execute(context.Background()); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("nil image: Execute() = %v, want ErrInvalidParameter", err)
	}
	if _, err := NewOperation(nil, gradient(t, 1, 1)).Execute(context.Background()); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("nil context: Execute() = %v, want ErrInvalidParameter", err)
	}
}

func TestExecuteConsumes(t *testing.T) {
	fc, dev := newReference(t)
	op := NewOperation(fc, gradient(t, 3, 3))
	execute(t, op)

	if _, err := op.Execute(context.Background()); !errors.Is(err, ErrConsumed) {
		t.Errorf("second Execute() = %v, want ErrConsumed", err)
	}
	if n := dev.LiveTextures(); n != 0 {
		t.Errorf("LiveTextures() = %d, want 0", n)
	}
}

func TestClosedContext(t *testing.T) {
	fc, _ := newReference(t)
	op := NewOperation(fc, gradient(t, 3, 3))
	if err := fc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	op.Inverse()
	if !errors.Is(op.Err(), ErrContextClosed) {
		t.Errorf("Err() = %v, want ErrContextClosed", op.Err())
	}
	if _, err := NewOperation(fc, gradient(t, 3, 3)).Execute(context.Background()); !errors.Is(err, ErrContextClosed) {
		t.Errorf("Execute() = %v, want ErrContextClosed", err)
	}
}

// faultyDevice fails selected calls of a reference device.
type faultyDevice struct {
	*reference.Device
	submitErr error
	mapErr    error
}

func (f *faultyDevice) Submit(buffers ...gpucore.CommandBuffer) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	return f.Device.Submit(buffers...)
}

func (f *faultyDevice) MapRead(ctx context.Context, id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	if f.mapErr != nil {
		return nil, f.mapErr
	}
	return f.Device.MapRead(ctx, id, offset, size)
}

func TestSubmitFailureIsSticky(t *testing.T) {
	lost := errors.New("device lost")
	dev := &faultyDevice{Device: reference.New(), submitErr: lost}
	fc, err := NewComputeContext(dev, WithOwnedDevice())
	if err != nil {
		t.Fatal(err)
	}
	defer fc.Close()

	op := NewOperation(fc, gradient(t, 8, 8)).GaussianBlur(2).Inverse()
	if !errors.Is(op.Err(), lost) {
		t.Fatalf("Err() = %v, want %v", op.Err(), lost)
	}
	if n := dev.LiveTextures(); n != 0 {
		t.Errorf("LiveTextures() = %d after failure, want 0", n)
	}
	if n := dev.LiveBuffers(); n != 0 {
		t.Errorf("LiveBuffers() = %d after failure, want 0", n)
	}
	if _, err := op.Execute(context.Background()); !errors.Is(err, lost) {
		t.Errorf("Execute() = %v, want %v", err, lost)
	}
}

func TestMapFailure(t *testing.T) {
	dev := &faultyDevice{Device: reference.New(), mapErr: errors.New("map rejected")}
	fc, err := NewComputeContext(dev, WithOwnedDevice())
	if err != nil {
		t.Fatal(err)
	}
	defer fc.Close()

	_, err = NewOperation(fc, gradient(t, 4, 4)).Inverse().Execute(context.Background())
	if !errors.Is(err, ErrMapFailed) {
		t.Errorf("Execute() = %v, want ErrMapFailed", err)
	}
	if n := dev.LiveTextures(); n != 0 {
		t.Errorf("LiveTextures() = %d, want 0", n)
	}
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestConcurrentOperations(t *testing.T) {
	fc, _ := newReference(t)
	img := gradient(t, 33, 17)

	var wg sync.WaitGroup
	results := make([]*PixelBuffer, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = NewOperation(fc, img).Inverse().HFlip().HFlip().Inverse().
				Execute(context.Background())
		}()
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("operation %d: %v", i, errs[i])
		}
		if !results[i].Equal(img) {
			t.Errorf("operation %d produced a different image", i)
		}
	}
}
