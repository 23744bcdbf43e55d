package kron

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineApertureGaussian(t *testing.T) {
	// For a circular Gaussian the Kron radius is sqrt(pi/2)*sigma.
	sigma := 2.0
	center := Point2D{X: 50, Y: 50}
	mi := gaussianImage(101, center.X, center.Y, sigma, 1000, 1)

	cfg := DefaultConfig()
	ap, radiusForRadius, err := DetermineAperture(mi, Axes{A: sigma, B: sigma}, center, cfg)
	require.NoError(t, err)

	want := math.Sqrt(math.Pi/2) * sigma
	assert.InEpsilon(t, want, ap.Axes.DeterminantRadius(), 0.01)
	assert.False(t, math.IsNaN(radiusForRadius))
	assert.Greater(t, radiusForRadius, ap.Axes.DeterminantRadius())
}

func TestDetermineApertureEllipticalShapePreserved(t *testing.T) {
	center := Point2D{X: 60, Y: 60}
	mi := gaussianImage(121, center.X, center.Y, 2.5, 500, 1)

	shape := Axes{A: 3, B: 2, Theta: 0.4}
	ap, _, err := DetermineAperture(mi, shape, center, DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, shape.AxisRatio(), ap.Axes.AxisRatio(), 1e-9)
	assert.Equal(t, shape.Theta, ap.Axes.Theta)
}

func TestDetermineApertureSmoothed(t *testing.T) {
	// Smoothing by sigma_s widens the effective source to
	// hypot(sigma, sigma_s), and the Kron radius with it.
	sigma := 2.0
	center := Point2D{X: 50, Y: 50}
	mi := gaussianImage(101, center.X, center.Y, sigma, 1000, 1)

	cfg := DefaultConfig()
	cfg.SmoothingSigma = 1.0
	ap, _, err := DetermineAperture(mi, Axes{A: sigma, B: sigma}, center, cfg)
	require.NoError(t, err)

	plain := math.Sqrt(math.Pi/2) * sigma
	widened := math.Sqrt(math.Pi/2) * math.Hypot(sigma, 1.0)
	got := ap.Axes.DeterminantRadius()
	assert.Greater(t, got, plain*1.02)
	assert.InEpsilon(t, widened, got, 0.03)
}

func TestDetermineApertureNullImage(t *testing.T) {
	center := Point2D{X: 50, Y: 50}
	mi := NewMaskedImage(101, 101)

	_, _, err := DetermineAperture(mi, Axes{A: 2, B: 2}, center, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadKron))
}

func TestDetermineApertureEdgeFirstIteration(t *testing.T) {
	center := Point2D{X: 3, Y: 3}
	mi := gaussianImage(64, center.X, center.Y, 2.0, 1000, 1)

	_, _, err := DetermineAperture(mi, Axes{A: 2, B: 2}, center, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEdge))
}

func TestApertureFromReferenceIdentity(t *testing.T) {
	shape := Axes{A: 3, B: 2, Theta: 0.3}
	center := Point2D{X: 10, Y: 20}
	ap, err := ApertureFromReference(center, shape, 5.0, AffineIdentity())
	require.NoError(t, err)
	assert.InDelta(t, 5.0, ap.Axes.DeterminantRadius(), 1e-9)
	assert.InDelta(t, shape.AxisRatio(), ap.Axes.AxisRatio(), 1e-9)
	assert.Equal(t, center, ap.Center)
}

func TestApertureTransform(t *testing.T) {
	ap := KronAperture{Center: Point2D{X: 1, Y: 2}, Axes: Axes{A: 3, B: 2, Theta: 0}}
	out, err := ap.Transform(AffineIdentity().ScaleBy(2).Translate(5, 5))
	require.NoError(t, err)
	assert.InDelta(t, 12.0, out.Center.X, 1e-9)
	assert.InDelta(t, 14.0, out.Center.Y, 1e-9)
	assert.InDelta(t, 6.0, out.Axes.A, 1e-9)
	assert.InDelta(t, 4.0, out.Axes.B, 1e-9)
}
