package kron

import (
	"fmt"
	"math"
)

// meanPixelRadius is the analytic mean radius <r> of a single square pixel
// about its center. Pixels within half a pixel of the aperture center get a
// correction built from it, which avoids a singular radius estimate from
// pixelization at the origin. If the object is centered in the pixel
// <r> == meanPixelRadius; at the pixel corner it is twice that; the two exact
// results are interpolated linearly in the displacement and folded in
// quadrature.
const meanPixelRadius = 0.38259771140356325

// ellipticalMoment computes the flux-weighted mean elliptical radius of foot
// over mi, for an ellipse of axis ratio ab = a/b oriented at theta around
// center. The elliptical radius of a pixel is the semi-major axis of the
// similar ellipse passing through it: rotate the offset into the principal
// frame (u, v) and take hypot(u, v*ab).
//
// good is false when either accumulated sum is non-positive; such a moment
// must not be used. The footprint's bounding box must fit entirely inside mi
// or the evaluation fails with ErrEdge: a truncated window biases the moment.
func ellipticalMoment(mi *MaskedImage, foot *Footprint, center Point2D, ab, theta float64) (radius float64, good bool, err error) {
	bounds := mi.Bounds()
	if !foot.BBox().In(bounds) {
		return 0, false, fmt.Errorf("footprint %v does not fit in image %v: %w",
			foot.BBox(), bounds, ErrEdge)
	}

	cosT, sinT := math.Cos(theta), math.Sin(theta)
	var sum, sumR float64
	foot.ForEach(func(x, y int) {
		dx := float64(x) - center.X
		dy := float64(y) - center.Y
		du := dx*cosT + dy*sinT
		dv := -dx*sinT + dy*cosT

		r := math.Hypot(du, dv*ab)
		if math.Hypot(dx, dy) < 0.5 {
			r = math.Hypot(r, meanPixelRadius*(1+math.Hypot(dx, dy)/math.Sqrt2))
		}

		ival := mi.At(x, y)
		sum += ival
		sumR += r * ival
	})

	if sum <= 0 || sumR <= 0 {
		return 0, false, nil
	}
	return sumR / sum, true, nil
}
