package kron

import (
	"fmt"
	"math"
)

// footprintFlux sums pixel intensity and pixel variance over a footprint.
func footprintFlux(mi *MaskedImage, foot *Footprint) (sum, sumVar float64) {
	foot.ForEach(func(x, y int) {
		sum += mi.At(x, y)
		sumVar += mi.VarianceAt(x, y)
	})
	return sum, sumVar
}

// Photometer integrates (flux, fluxErr) inside an elliptical aperture,
// choosing the strategy by aperture size. Apertures whose semi-minor axis
// exceeds maxSincRadius are summed pixel by pixel over their footprint,
// clipped to the image; smaller apertures go through the exact sub-pixel
// integrator, whose boundary errors are propagated with the object position
// and aperture geometry attached.
func Photometer(mi *MaskedImage, aperture Ellipse, maxSincRadius float64) (flux, fluxErr float64, err error) {
	if aperture.Core.B > maxSincRadius {
		foot := EllipseFootprintClipped(aperture, mi.Bounds())
		sum, sumVar := footprintFlux(mi, foot)
		return sum, math.Sqrt(sumVar), nil
	}
	flux, fluxErr, err = SubPixelFlux(mi, aperture)
	if err != nil {
		return 0, 0, fmt.Errorf("measuring Kron flux for object at (%.3f, %.3f), "+
			"aperture radius %g,%g theta %g deg: %w",
			aperture.Center.X, aperture.Center.Y,
			aperture.Core.A, aperture.Core.B, aperture.Core.Theta*180/math.Pi, err)
	}
	return flux, fluxErr, nil
}
