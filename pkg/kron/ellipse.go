package kron

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Axes describes an ellipse core by its semi-major axis A, semi-minor axis B
// (A >= B > 0) and position angle Theta in radians, +ve from the x axis.
// Axes is a value type: scaling or transforming produces a new value.
type Axes struct {
	A     float64
	B     float64
	Theta float64
}

// DeterminantRadius is sqrt(A*B), the scale-invariant scalar radius.
func (ax Axes) DeterminantRadius() float64 {
	return math.Sqrt(ax.A * ax.B)
}

// AxisRatio is A/B.
func (ax Axes) AxisRatio() float64 {
	return ax.A / ax.B
}

// Scale grows both axes by f, preserving the axis ratio and orientation.
func (ax Axes) Scale(f float64) Axes {
	return Axes{A: ax.A * f, B: ax.B * f, Theta: ax.Theta}
}

// ScaleToRadius rescales the axes so the determinant radius equals r.
func (ax Axes) ScaleToRadius(r float64) Axes {
	return ax.Scale(r / ax.DeterminantRadius())
}

// Valid reports whether the axes describe a usable ellipse.
func (ax Axes) Valid() bool {
	return ax.B > 0 && ax.A >= ax.B &&
		!math.IsInf(ax.A, 0) && !math.IsNaN(ax.A) && !math.IsNaN(ax.Theta)
}

// Transform maps the ellipse through the linear part of trans, for example
// when carrying a reference aperture into another image's frame. The axes are
// converted to a second-moment matrix Q, mapped as L*Q*Lt and diagonalized
// back into principal axes.
func (ax Axes) Transform(trans Affine) (Axes, error) {
	cosT, sinT := math.Cos(ax.Theta), math.Sin(ax.Theta)
	a2, b2 := ax.A*ax.A, ax.B*ax.B
	qxx := a2*cosT*cosT + b2*sinT*sinT
	qyy := a2*sinT*sinT + b2*cosT*cosT
	qxy := (a2 - b2) * cosT * sinT

	m00, m01, m10, m11 := trans.linear()
	l := mat.NewDense(2, 2, []float64{m00, m01, m10, m11})
	q := mat.NewDense(2, 2, []float64{qxx, qxy, qxy, qyy})

	var lq, lqlt mat.Dense
	lq.Mul(l, q)
	lqlt.Mul(&lq, l.T())

	return axesFromMoments(lqlt.At(0, 0), lqlt.At(1, 1), 0.5*(lqlt.At(0, 1)+lqlt.At(1, 0)))
}

// axesFromMoments diagonalizes the symmetric second-moment matrix
// [[ixx, ixy], [ixy, iyy]] into principal axes.
func axesFromMoments(ixx, iyy, ixy float64) (Axes, error) {
	sym := mat.NewSymDense(2, []float64{ixx, ixy, ixy, iyy})
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return Axes{}, fmt.Errorf("diagonalizing moments (%g, %g, %g): %w", ixx, iyy, ixy, ErrBadRadius)
	}
	vals := eig.Values(nil) // ascending
	if vals[0] <= 0 || vals[1] <= 0 {
		return Axes{}, fmt.Errorf("non-positive moments (%g, %g, %g): %w", ixx, iyy, ixy, ErrBadRadius)
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	theta := math.Atan2(vecs.At(1, 1), vecs.At(0, 1)) // eigenvector of the major axis
	if theta > math.Pi/2 {
		theta -= math.Pi
	} else if theta <= -math.Pi/2 {
		theta += math.Pi
	}
	return Axes{A: math.Sqrt(vals[1]), B: math.Sqrt(vals[0]), Theta: theta}, nil
}

// Ellipse is an ellipse core placed at a center point.
type Ellipse struct {
	Core   Axes
	Center Point2D
}

func (e Ellipse) String() string {
	return fmt.Sprintf("ellipse a=%.3f b=%.3f theta=%.3f at (%.3f, %.3f)",
		e.Core.A, e.Core.B, e.Core.Theta, e.Center.X, e.Center.Y)
}
