package kron

import (
	"fmt"
	"math"
)

// Psf models the point-spread function of an image. ComputeShape returns the
// adaptive second-moment shape of the PSF at a position; ComputeImage renders
// a postage-stamp image of the PSF there, normalized to unit total flux, with
// the stamp's parent-frame origin chosen so it is centered on its own grid.
type Psf interface {
	ComputeShape(center Point2D) Axes
	ComputeImage(center Point2D) (*MaskedImage, error)
}

// PsfKronRadius is the Kron radius the source would have if it were exactly
// the (possibly smoothed) PSF. For a Gaussian N(0, sigma^2) the Kron radius
// is sqrt(pi/2)*sigma; smoothing adds in quadrature. Used as a physically
// motivated radius floor and as a diagnostic.
func PsfKronRadius(psf Psf, center Point2D, smoothingSigma float64) float64 {
	radius := psf.ComputeShape(center).DeterminantRadius()
	return math.Sqrt(math.Pi/2) * math.Hypot(radius, math.Max(0, smoothingSigma))
}

// psfStampPad is the padding added around a rendered PSF stamp before
// photometering it, so small apertures always fit.
const psfStampPad = 5

// PsfKronFlux measures the flux the PSF itself yields inside radius, for
// aperture-correction factors. The PSF stamp is rendered, padded, and
// photometered with a circular aperture at the stamp center. Without a PSF
// the factor is 1.
func PsfKronFlux(psf Psf, center Point2D, radius, maxSincRadius float64) (float64, error) {
	if psf == nil {
		return 1.0, nil
	}
	stamp, err := psf.ComputeImage(center)
	if err != nil {
		return 0, fmt.Errorf("computing PSF at (%.3f, %.3f): %w", center.X, center.Y, err)
	}

	padded := NewMaskedImage(stamp.Width()+2*psfStampPad, stamp.Height()+2*psfStampPad)
	b := stamp.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			padded.Set(x-b.Min.X+psfStampPad, y-b.Min.Y+psfStampPad, stamp.At(x, y))
		}
	}

	stampCenter := Point2D{
		X: 0.5 * float64(padded.Width()-1),
		Y: 0.5 * float64(padded.Height()-1),
	}
	aperture := Ellipse{Core: Axes{A: radius, B: radius}, Center: stampCenter}
	flux, _, err := Photometer(padded, aperture, maxSincRadius)
	if err != nil {
		return 0, fmt.Errorf("measuring PSF Kron flux at radius %g: %w", radius, err)
	}
	return flux, nil
}

// GaussianPsf is an analytic elliptical Gaussian PSF, constant across the
// image. Sigma values are the Gaussian widths along the principal axes.
type GaussianPsf struct {
	SigmaX float64
	SigmaY float64
	Theta  float64
}

// NewGaussianPsf returns a circular Gaussian PSF of width sigma.
func NewGaussianPsf(sigma float64) *GaussianPsf {
	return &GaussianPsf{SigmaX: sigma, SigmaY: sigma}
}

func (p *GaussianPsf) ComputeShape(Point2D) Axes {
	a, b := p.SigmaX, p.SigmaY
	theta := p.Theta
	if b > a {
		a, b = b, a
		theta += math.Pi / 2
	}
	return Axes{A: a, B: b, Theta: theta}
}

// ComputeImage renders the PSF on a stamp of half-size 4*sigma, normalized to
// unit total flux.
func (p *GaussianPsf) ComputeImage(Point2D) (*MaskedImage, error) {
	sigmaMax := math.Max(p.SigmaX, p.SigmaY)
	half := int(math.Ceil(4 * sigmaMax))
	size := 2*half + 1
	stamp := NewMaskedImage(size, size)

	cosT, sinT := math.Cos(p.Theta), math.Sin(p.Theta)
	cx, cy := float64(half), float64(half)
	var total float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			du := dx*cosT + dy*sinT
			dv := -dx*sinT + dy*cosT
			v := math.Exp(-0.5 * (du*du/(p.SigmaX*p.SigmaX) + dv*dv/(p.SigmaY*p.SigmaY)))
			stamp.Set(x, y, v)
			total += v
		}
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			stamp.Set(x, y, stamp.At(x, y)/total)
		}
	}
	return stamp, nil
}
