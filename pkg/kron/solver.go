package kron

import (
	"fmt"
	"math"
)

// KronAperture is an elliptical photometric aperture: a center plus the axes
// defining its shape and size. The center is fixed at construction; sizing
// always goes through Axes value operations.
type KronAperture struct {
	Center Point2D
	Axes   Axes
}

// ApertureFromShape builds an aperture directly from a measured shape, used
// for fixed-mode reuse of a stored aperture and for fallback substitution.
func ApertureFromShape(center Point2D, shape Axes) KronAperture {
	return KronAperture{Center: center, Axes: shape}
}

// ApertureFromReference maps a reference aperture into another frame for
// forced photometry: the reference shape is rescaled to the recorded radius
// and pushed through refToMeas along with the center.
func ApertureFromReference(center Point2D, shape Axes, radius float64, refToMeas Affine) (KronAperture, error) {
	axes, err := shape.ScaleToRadius(radius).Transform(refToMeas)
	if err != nil {
		return KronAperture{}, fmt.Errorf("transforming reference aperture: %w", err)
	}
	return KronAperture{Center: refToMeas.Apply(center), Axes: axes}, nil
}

// Transform maps the aperture through an affine transform.
func (ap KronAperture) Transform(trans Affine) (KronAperture, error) {
	axes, err := ap.Axes.Transform(trans)
	if err != nil {
		return KronAperture{}, err
	}
	return KronAperture{Center: trans.Apply(ap.Center), Axes: axes}, nil
}

// DetermineAperture solves for the source's Kron aperture by iterating the
// first radial moment: each pass scales the current radius estimate by
// NSigmaForRadius to a trial window, measures the mean elliptical radius
// inside it and corrects for the axis-ratio stretch with sqrt(b/a). The loop
// stops as soon as an estimate fails to grow, or after NIterForRadius passes.
//
// radiusForRadius reports the determinant radius of the last trial window,
// for diagnostics.
//
// Hitting the image boundary on the first pass fails with ErrEdge; on later
// passes the last valid estimate is kept, since a truncated window would only
// bias the moment. A degenerate moment fails with ErrBadKron, which callers
// may recover from with a fallback radius.
func DetermineAperture(mi *MaskedImage, shape Axes, center Point2D, cfg Config) (ap KronAperture, radiusForRadius float64, err error) {
	sigma := cfg.SmoothingSigma
	smooth := sigma > 0

	radiusForRadius = math.NaN()
	radius0 := shape.DeterminantRadius()
	trial := shape

	for i := 0; i < cfg.NIterForRadius; i++ {
		trial = trial.Scale(cfg.NSigmaForRadius)
		radiusForRadius = trial.DeterminantRadius()

		foot := EllipseFootprint(Ellipse{Core: trial, Center: center})
		bbox := foot.BBox()
		if smooth {
			bbox = growBBox(bbox, smoothingKernelSize(sigma))
		}
		bbox = bbox.Intersect(mi.Bounds())

		sub, subErr := mi.SubImage(bbox, smooth)
		if subErr != nil {
			if i == 0 {
				return KronAperture{}, radiusForRadius,
					fmt.Errorf("determining Kron aperture: %w", subErr)
			}
			break
		}
		if smooth {
			view, _ := mi.SubImage(bbox, false)
			convolveGaussian(sub, view, sigma)
		}

		ir, good, momErr := ellipticalMoment(sub, foot, center, trial.AxisRatio(), trial.Theta)
		if momErr != nil {
			// The trial window ran off the image edge.
			if i == 0 {
				return KronAperture{}, radiusForRadius,
					fmt.Errorf("determining Kron aperture: %w", momErr)
			}
			break // use the radius we have
		}
		if !good {
			return KronAperture{}, radiusForRadius,
				fmt.Errorf("moment window radius %g: %w", radiusForRadius, ErrBadKron)
		}

		// The moment is measured along the stretched elliptical coordinate;
		// sqrt(b/a) converts it back to a determinant radius.
		radius := ir * math.Sqrt(trial.B/trial.A)
		if radius <= radius0 {
			radius0 = radius // converged: the last measurement stands
			break
		}
		radius0 = radius
		trial = trial.ScaleToRadius(radius)
	}

	return KronAperture{Center: center, Axes: shape.ScaleToRadius(radius0)}, radiusForRadius, nil
}
