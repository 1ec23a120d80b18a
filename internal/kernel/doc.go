// Package kernel generates the convolution weights used by the separable
// blur programs.
//
// Gaussian kernels are built from sigma: the radius is ceil(3σ), which
// covers 99.7% of the distribution, and each tap is the normal probability
// density at its distance from the center. Weights are left unnormalized;
// [Kernel.Sum] travels with them so the compute pass can divide at the point
// of use.
//
// Box blur needs no weights. The pass averages a uniform window of
// [BoxSize] taps, so only the radius is uploaded.
package kernel
