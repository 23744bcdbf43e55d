package kron

import (
	"fmt"
	"image"
	"math"
)

// subPixelGrid is the per-axis supersampling used for pixels crossed by the
// aperture boundary.
const subPixelGrid = 16

// SubPixelFlux integrates (flux, fluxErr) inside an elliptical aperture with
// sub-pixel accuracy. Small apertures cover so few pixels that the hard
// include/exclude decision of a footprint sum would dominate the error, so
// boundary pixels are weighted by their covered fraction instead: interior
// pixels count fully, pixels crossed by the ellipse are supersampled on a
// 16x16 grid. The variance is propagated with the squared coverage weights.
//
// The aperture's integer bounding box must fit inside the image; otherwise
// the integration fails with ErrEdge, since a truncated integral over a small
// aperture is not acceptable.
func SubPixelFlux(mi *MaskedImage, aperture Ellipse) (flux, fluxErr float64, err error) {
	cosT, sinT := math.Cos(aperture.Core.Theta), math.Sin(aperture.Core.Theta)
	a, b := aperture.Core.A, aperture.Core.B
	if !(a > 0 && b > 0) {
		return 0, 0, fmt.Errorf("aperture %v: %w", aperture, ErrBadRadius)
	}

	// Outer box of the ellipse, padded by half a pixel for partial coverage.
	xExtent := math.Sqrt(a*a*cosT*cosT+b*b*sinT*sinT) + 0.5
	yExtent := math.Sqrt(a*a*sinT*sinT+b*b*cosT*cosT) + 0.5
	bbox := image.Rect(
		int(math.Floor(aperture.Center.X-xExtent)),
		int(math.Floor(aperture.Center.Y-yExtent)),
		int(math.Ceil(aperture.Center.X+xExtent))+1,
		int(math.Ceil(aperture.Center.Y+yExtent))+1,
	)
	if !bbox.In(mi.Bounds()) {
		return 0, 0, fmt.Errorf("aperture box %v does not fit in image %v: %w",
			bbox, mi.Bounds(), ErrEdge)
	}

	// Squared scaled radius: < 1 inside the ellipse.
	rho := func(px, py float64) float64 {
		dx := px - aperture.Center.X
		dy := py - aperture.Center.Y
		du := dx*cosT + dy*sinT
		dv := -dx*sinT + dy*cosT
		return du*du/(a*a) + dv*dv/(b*b)
	}

	var sum, sumVar float64
	for y := bbox.Min.Y; y < bbox.Max.Y; y++ {
		for x := bbox.Min.X; x < bbox.Max.X; x++ {
			fx, fy := float64(x), float64(y)
			coverage := 1.0
			if rho(fx-0.5, fy-0.5) > 1 || rho(fx+0.5, fy-0.5) > 1 ||
				rho(fx-0.5, fy+0.5) > 1 || rho(fx+0.5, fy+0.5) > 1 {
				coverage = pixelCoverage(rho, fx, fy)
				if coverage == 0 {
					continue
				}
			}
			sum += coverage * mi.At(x, y)
			sumVar += coverage * coverage * mi.VarianceAt(x, y)
		}
	}
	return sum, math.Sqrt(sumVar), nil
}

// pixelCoverage supersamples the unit pixel centered on (fx, fy) and returns
// the fraction of sample points inside the ellipse.
func pixelCoverage(rho func(px, py float64) float64, fx, fy float64) float64 {
	const step = 1.0 / subPixelGrid
	inside := 0
	for sy := 0; sy < subPixelGrid; sy++ {
		py := fy - 0.5 + (float64(sy)+0.5)*step
		for sx := 0; sx < subPixelGrid; sx++ {
			px := fx - 0.5 + (float64(sx)+0.5)*step
			if rho(px, py) <= 1 {
				inside++
			}
		}
	}
	return float64(inside) / (subPixelGrid * subPixelGrid)
}
