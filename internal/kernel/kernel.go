package kernel

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/filters/internal/cache"
)

// invSqrt2Pi is 1/sqrt(2π) truncated to five digits, as the blur shaders
// expect.
const invSqrt2Pi float32 = 0.39894

// Kernel is a symmetric 1D convolution kernel.
type Kernel struct {
	// Weights has odd length and is symmetric around its center.
	Weights []float32

	// Sum is the unnormalized total of Weights.
	Sum float32
}

// Size returns the number of taps: 2*Radius()+1.
func (k *Kernel) Size() int {
	return len(k.Weights)
}

// Radius returns the number of taps on each side of the center.
func (k *Kernel) Radius() int {
	return (len(k.Weights) - 1) / 2
}

// Packed returns the storage-buffer form of the kernel: the sum followed by
// the weights.
func (k *Kernel) Packed() []float32 {
	data := make([]float32, len(k.Weights)+1)
	data[0] = k.Sum
	copy(data[1:], k.Weights)
	return data
}

// Bytes returns Packed as little-endian IEEE-754 words, ready for upload.
func (k *Kernel) Bytes() []byte {
	packed := k.Packed()
	buf := make([]byte, 4*len(packed))
	for i, v := range packed {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// Size returns the Gaussian kernel size for sigma: 2*ceil(3σ)+1.
// sigma must be positive.
func Size(sigma float32) int {
	return 2*int(math.Ceil(float64(sigma*3))) + 1
}

// Representable reports whether Gaussian(sigma) has at most maxRadius taps
// on each side and finite weights with a positive sum in float32. Very
// small sigmas fail because sigma² underflows and the center weight becomes
// 0/0.
func Representable(sigma float32, maxRadius uint32) bool {
	if !(sigma > 0) || math.IsInf(float64(sigma), 1) {
		return false
	}
	if math.Ceil(3*float64(sigma)) > float64(maxRadius) {
		return false
	}
	if sigma*sigma == 0 {
		return false
	}
	center := invSqrt2Pi / sigma
	return center > 0 && !math.IsInf(float64(center), 1)
}

// Gaussian builds the Gaussian kernel for sigma. sigma must pass
// Representable; callers validate it.
func Gaussian(sigma float32) *Kernel {
	size := Size(sigma)
	radius := (size - 1) / 2
	weights := make([]float32, size)

	for i := 0; i <= radius; i++ {
		v := density(float32(i), sigma)
		weights[radius+i] = v
		weights[radius-i] = v
	}

	var sum float32
	for _, w := range weights {
		sum += w
	}

	return &Kernel{Weights: weights, Sum: sum}
}

// density is the normal probability density at x for a zero-mean
// distribution with standard deviation sigma.
func density(x, sigma float32) float32 {
	e := float32(math.Exp(float64(-0.5 * x * x / (sigma * sigma))))
	return invSqrt2Pi * e / sigma
}

// BoxSize returns the window size of a box blur with the given radius.
func BoxSize(radius uint32) uint32 {
	return 2*radius + 1
}

var gaussianCache = cache.New[float32, *Kernel](64)

// CachedGaussian returns a shared Gaussian kernel for sigma. The returned
// kernel must not be modified.
func CachedGaussian(sigma float32) *Kernel {
	return gaussianCache.GetOrCreate(sigma, func() *Kernel {
		return Gaussian(sigma)
	})
}
