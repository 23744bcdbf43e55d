package kron

import (
	"errors"
	"fmt"
	"math"
)

// Source is the per-object input record: a centroid, the fitted shape (with
// its validity flag) and optionally the detection footprint.
type Source struct {
	ID        int64
	Center    Point2D
	Shape     Axes
	ShapeOK   bool
	Footprint *Footprint
}

// Reference is a previously recorded Kron measurement on a reference image,
// reused by forced photometry.
type Reference struct {
	Center Point2D
	Shape  Axes
	Radius float64
}

// Result is the output record of one Kron measurement. Failed starts true
// and is cleared only when the pipeline completes through flux integration;
// a substituted PSF shape (BadShape) is diagnostic and does not by itself
// imply failure. At most one of UsedMinimumRadius and UsedPsfRadius is set.
type Result struct {
	Flux    float64
	FluxErr float64
	// Radius is the final Kron radius sqrt(a*b), before the NRadiusForFlux
	// aperture scaling.
	Radius float64
	// RadiusForRadius is the trial-window radius used to size the last
	// solver iteration's moment window.
	RadiusForRadius float64
	// PsfRadius is the Kron radius of the PSF, NaN without a PSF model.
	PsfRadius float64

	Edge              bool
	BadRadius         bool
	SmallRadius       bool
	UsedMinimumRadius bool
	UsedPsfRadius     bool
	BadShape          bool
	Failed            bool
}

func newFailedResult() *Result {
	return &Result{
		Flux:            math.NaN(),
		FluxErr:         math.NaN(),
		Radius:          math.NaN(),
		RadiusForRadius: math.NaN(),
		PsfRadius:       math.NaN(),
		Failed:          true,
	}
}

// Measurer runs Kron photometry on individual sources. Config and Psf are
// read-only; a Measurer may be shared by concurrent measurements as long as
// each call gets its own Source and Result.
type Measurer struct {
	Config Config
	Psf    Psf
}

// NewMeasurer returns a Measurer with the given configuration and an
// optional PSF model (nil when none is available).
func NewMeasurer(cfg Config, psf Psf) *Measurer {
	return &Measurer{Config: cfg, Psf: psf}
}

// Measure estimates the source's Kron aperture on mi and integrates its
// flux. The returned Result always carries the quality flags, also when the
// measurement fails; the error reports why. Fatal conditions abort only this
// source's measurement.
func (m *Measurer) Measure(mi *MaskedImage, src *Source) (*Result, error) {
	res := newFailedResult()
	cfg := m.Config

	if m.Psf != nil {
		res.PsfRadius = PsfKronRadius(m.Psf, src.Center, cfg.SmoothingSigma)
	}

	// Select the shape of the desired aperture.
	axes := src.Shape
	if !src.ShapeOK || !axes.Valid() {
		if m.Psf == nil {
			return res, fmt.Errorf("source %d: %w", src.ID, ErrBadShape)
		}
		axes = m.Psf.ComputeShape(src.Center)
		res.BadShape = true
	}

	if cfg.UseFootprintRadius && src.Footprint != nil {
		axes = widenByFootprint(axes, src.Footprint, cfg.NSigmaForRadius)
	}

	var aperture KronAperture
	if cfg.Fixed {
		aperture = ApertureFromShape(src.Center, axes)
	} else {
		ap, radiusForRadius, err := DetermineAperture(mi, axes, src.Center, cfg)
		res.RadiusForRadius = radiusForRadius
		switch {
		case err == nil:
			aperture = ap
		case errors.Is(err, ErrEdge):
			// Hitting the edge of the image: no reasonable fallback.
			res.Edge = true
			return res, err
		default:
			// A bad integral only means low signal-to-noise; substitute a
			// fallback radius.
			aperture, err = m.fallbackAperture(res, src.Center, axes, err)
			if err != nil {
				return res, err
			}
		}
	}

	if cfg.EnforceMinimumRadius {
		var err error
		aperture, err = m.enforceMinimumRadius(res, aperture)
		if err != nil {
			return res, err
		}
	}

	if err := m.applyAperture(mi, res, aperture); err != nil {
		return res, err
	}
	res.Failed = false
	return res, nil
}

// MeasureForced measures flux on mi inside an aperture determined on a
// reference image: the reference center and radius-rescaled shape are mapped
// through refToMeas and the solver is skipped entirely.
func (m *Measurer) MeasureForced(mi *MaskedImage, center Point2D, ref *Reference, refToMeas Affine) (*Result, error) {
	res := newFailedResult()

	aperture, err := ApertureFromReference(ref.Center, ref.Shape, ref.Radius, refToMeas)
	if err != nil {
		res.BadRadius = true
		return res, err
	}
	if err := m.applyAperture(mi, res, aperture); err != nil {
		return res, err
	}
	if m.Psf != nil {
		res.PsfRadius = PsfKronRadius(m.Psf, center, m.Config.SmoothingSigma)
	}
	res.Failed = false
	return res, nil
}

// widenByFootprint grows the initial shape when the detection footprint
// implies a larger moment window than nSigma*shape would cover. A footprint
// that is a disk has <r^2> = R^2/2, so its moment shape is scaled up by
// sqrt(2) to match the second-moment convention.
func widenByFootprint(axes Axes, foot *Footprint, nSigmaForRadius float64) Axes {
	footShape, err := foot.Shape()
	if err != nil {
		return axes // degenerate footprint: nothing to widen with
	}
	footRadius := footShape.Scale(math.Sqrt2).DeterminantRadius()
	radius0 := axes.DeterminantRadius()
	if footRadius > radius0*nSigmaForRadius {
		return axes.ScaleToRadius(footRadius / nSigmaForRadius)
	}
	return axes
}

// fallbackAperture substitutes an aperture when the solver could not produce
// a usable radius: the configured minimum radius if set, else the PSF Kron
// radius, else the original failure is re-raised with context. The substitute
// rescales the shape selected for this measurement to the chosen radius. All
// fallbacks mark the radius bad.
func (m *Measurer) fallbackAperture(res *Result, center Point2D, axes Axes, cause error) (KronAperture, error) {
	res.BadRadius = true
	var newRadius float64
	switch {
	case m.Config.MinimumRadius > 0:
		newRadius = m.Config.MinimumRadius
		res.UsedMinimumRadius = true
	case res.PsfRadius > 0:
		newRadius = res.PsfRadius
		res.UsedPsfRadius = true
	default:
		return KronAperture{}, fmt.Errorf("bad Kron aperture, no minimum radius specified, and no PSF: %w", cause)
	}
	return ApertureFromShape(center, axes.ScaleToRadius(newRadius)), nil
}

// enforceMinimumRadius raises the aperture to the radius floor: the
// configured minimum when set, else the PSF Kron radius. Requesting
// enforcement with neither available is a hard failure. Idempotent: an
// aperture already at or above the floor is returned unchanged.
func (m *Measurer) enforceMinimumRadius(res *Result, aperture KronAperture) (KronAperture, error) {
	rad := aperture.Axes.DeterminantRadius()
	newRadius := rad
	if m.Config.MinimumRadius > 0 {
		if rad < m.Config.MinimumRadius {
			newRadius = m.Config.MinimumRadius
			res.UsedMinimumRadius = true
		}
	} else if m.Psf == nil {
		return aperture, ErrNoFloor
	} else if rad < res.PsfRadius {
		newRadius = res.PsfRadius
		res.UsedPsfRadius = true
	}
	if newRadius != rad {
		aperture.Axes = aperture.Axes.ScaleToRadius(newRadius)
		res.SmallRadius = true
	}
	return aperture, nil
}

// applyAperture scales the finalized aperture by NRadiusForFlux, integrates
// the flux and records flux, uncertainty and radius. A boundary error from
// the integration marks the edge flag and aborts.
func (m *Measurer) applyAperture(mi *MaskedImage, res *Result, aperture KronAperture) error {
	rad := aperture.Axes.DeterminantRadius()
	if !(rad > minimumUsableRadius) || math.IsInf(rad, 0) {
		res.BadRadius = true
		return fmt.Errorf("radius %g: %w", rad, ErrBadRadius)
	}

	fluxAxes := aperture.Axes.Scale(m.Config.NRadiusForFlux)
	flux, fluxErr, err := Photometer(mi, Ellipse{Core: fluxAxes, Center: aperture.Center}, m.Config.MaxSincRadius)
	if err != nil {
		if errors.Is(err, ErrEdge) {
			res.Edge = true
		}
		return err
	}

	res.Flux = flux
	res.FluxErr = fluxErr
	res.Radius = rad
	return nil
}

// minimumUsableRadius guards against degenerate apertures.
const minimumUsableRadius = 2.220446049250313e-16 // float64 epsilon
