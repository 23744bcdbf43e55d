package kron

import "math"

// gaussianImage renders a circular Gaussian of width sigma and the given peak
// at (cx, cy) on a size x size image with constant pixel variance.
func gaussianImage(size int, cx, cy, sigma, peak, variance float64) *MaskedImage {
	mi := NewMaskedImage(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			mi.Set(x, y, peak*math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma)))
			mi.SetVariance(x, y, variance)
		}
	}
	return mi
}

// flatImage fills a size x size image with a constant value and variance.
func flatImage(size int, value, variance float64) *MaskedImage {
	mi := NewMaskedImage(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			mi.Set(x, y, value)
			mi.SetVariance(x, y, variance)
		}
	}
	return mi
}

// diskImage fills pixels within radius of (cx, cy) with a constant value.
func diskImage(size int, cx, cy, radius, value float64) *MaskedImage {
	mi := NewMaskedImage(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			if math.Hypot(dx, dy) <= radius {
				mi.Set(x, y, value)
			}
		}
	}
	return mi
}
