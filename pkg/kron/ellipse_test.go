package kron

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxesDeterminantRadius(t *testing.T) {
	ax := Axes{A: 4, B: 1, Theta: 0.3}
	assert.InDelta(t, 2.0, ax.DeterminantRadius(), 1e-12)
}

func TestAxesScalePreservesShape(t *testing.T) {
	ax := Axes{A: 3, B: 2, Theta: 0.7}
	scaled := ax.Scale(2.5)
	assert.InDelta(t, ax.AxisRatio(), scaled.AxisRatio(), 1e-12)
	assert.Equal(t, ax.Theta, scaled.Theta)
	assert.InDelta(t, 2.5*ax.DeterminantRadius(), scaled.DeterminantRadius(), 1e-12)
}

func TestAxesScaleToRadius(t *testing.T) {
	ax := Axes{A: 3, B: 2, Theta: 0.7}
	rescaled := ax.ScaleToRadius(5)
	assert.InDelta(t, 5.0, rescaled.DeterminantRadius(), 1e-12)
	assert.InDelta(t, ax.AxisRatio(), rescaled.AxisRatio(), 1e-12)
}

func TestAxesValid(t *testing.T) {
	assert.True(t, Axes{A: 2, B: 1, Theta: 0}.Valid())
	assert.False(t, Axes{A: 1, B: 2, Theta: 0}.Valid())
	assert.False(t, Axes{A: 1, B: 0, Theta: 0}.Valid())
	assert.False(t, Axes{A: math.NaN(), B: 1, Theta: 0}.Valid())
}

func TestAxesTransformIdentity(t *testing.T) {
	ax := Axes{A: 3, B: 2, Theta: 0.4}
	out, err := ax.Transform(AffineIdentity())
	require.NoError(t, err)
	assert.InDelta(t, ax.A, out.A, 1e-9)
	assert.InDelta(t, ax.B, out.B, 1e-9)
	assert.InDelta(t, ax.Theta, out.Theta, 1e-9)
}

func TestAxesTransformUniformScale(t *testing.T) {
	ax := Axes{A: 3, B: 2, Theta: 0.4}
	out, err := ax.Transform(AffineIdentity().ScaleBy(2))
	require.NoError(t, err)
	assert.InDelta(t, 6.0, out.A, 1e-9)
	assert.InDelta(t, 4.0, out.B, 1e-9)
	assert.InDelta(t, ax.Theta, out.Theta, 1e-9)
}

func TestAxesTransformRotation(t *testing.T) {
	ax := Axes{A: 3, B: 2, Theta: 0.2}
	out, err := ax.Transform(AffineIdentity().Rotate(0.5))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, out.A, 1e-9)
	assert.InDelta(t, 2.0, out.B, 1e-9)
	assert.InDelta(t, 0.7, out.Theta, 1e-9)
}

func TestAxesTransformDegenerate(t *testing.T) {
	ax := Axes{A: 3, B: 2, Theta: 0}
	_, err := ax.Transform(Affine{0, 0, 0, 0, 0, 0})
	assert.Error(t, err)
}

func TestAffineApply(t *testing.T) {
	trans := AffineIdentity().Translate(10, -5)
	p := trans.Apply(Point2D{X: 1, Y: 2})
	assert.InDelta(t, 11.0, p.X, 1e-12)
	assert.InDelta(t, -3.0, p.Y, 1e-12)

	rot := AffineIdentity().Rotate(math.Pi / 2)
	q := rot.Apply(Point2D{X: 1, Y: 0})
	assert.InDelta(t, 0.0, q.X, 1e-12)
	assert.InDelta(t, 1.0, q.Y, 1e-12)
}

func TestAffineCompose(t *testing.T) {
	// Rightmost operations run first: translate, then scale.
	trans := AffineIdentity().ScaleBy(2).Translate(3, 0)
	p := trans.Apply(Point2D{X: 1, Y: 1})
	assert.InDelta(t, 8.0, p.X, 1e-12)
	assert.InDelta(t, 2.0, p.Y, 1e-12)
}
