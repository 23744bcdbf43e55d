package kron

import (
	"image"
	"math"
)

// smoothingKernelSize is the support of the separable Gaussian used for
// optional pre-smoothing: 2*int(2*sigma) + 1 taps.
func smoothingKernelSize(sigma float64) int {
	return 2*int(2*sigma) + 1
}

// gaussianKernel1D returns a normalized 1D Gaussian kernel with size taps.
func gaussianKernel1D(size int, sigma float64) []float64 {
	k := make([]float64, size)
	half := size / 2
	sum := 0.0
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// growBBox expands bbox by the half-support of the smoothing kernel, the
// smallest region needed to convolve the original bbox without edge effects.
func growBBox(bbox image.Rectangle, kernelSize int) image.Rectangle {
	half := kernelSize / 2
	return bbox.Inset(-half)
}

// convolveGaussian overwrites dst's intensity plane with src's convolved by a
// separable normalized Gaussian, using reflected edges. dst and src must
// cover the same bounds; dst must own its planes (a deep sub-image).
func convolveGaussian(dst, src *MaskedImage, sigma float64) {
	size := smoothingKernelSize(sigma)
	kernel := gaussianKernel1D(size, sigma)
	half := size / 2
	rows, cols := src.Height(), src.Width()
	x0, y0 := src.X0(), src.Y0()

	tmp := make([]float64, rows*cols)

	// Horizontal pass.
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var sum float64
			for k := 0; k < size; k++ {
				cc := reflectIndex(c+k-half, cols)
				sum += src.At(x0+cc, y0+r) * kernel[k]
			}
			tmp[r*cols+c] = sum
		}
	}

	// Vertical pass.
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var sum float64
			for k := 0; k < size; k++ {
				rr := reflectIndex(r+k-half, rows)
				sum += tmp[rr*cols+c] * kernel[k]
			}
			dst.Set(x0+c, y0+r, sum)
		}
	}
}

func reflectIndex(idx, size int) int {
	if idx < 0 {
		idx = -idx
	}
	for idx >= size {
		idx = 2*size - 2 - idx
		if idx < 0 {
			idx = -idx
		}
	}
	return idx
}
