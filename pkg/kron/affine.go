package kron

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Point2D is a position in pixel coordinates.
type Point2D struct {
	X, Y float64
}

// Affine is a 2D affine transform in row-major order:
//
//	| m[0] m[1] m[2] |
//	| m[3] m[4] m[5] |
//
// Local type over f64.Aff3 so we can hang methods off it. Used to map a
// reference aperture into another image's frame for forced photometry.
type Affine f64.Aff3

// AffineIdentity returns the identity transform.
func AffineIdentity() Affine {
	return Affine{1, 0, 0, 0, 1, 0}
}

// Mult composes p with q; rightmost operations are performed first.
func (p Affine) Mult(q Affine) Affine {
	return Affine{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

// Translate appends a translation by (tx, ty).
func (p Affine) Translate(tx, ty float64) Affine {
	return p.Mult(Affine{1, 0, tx, 0, 1, ty})
}

// Rotate appends a rotation by theta radians, +ve from the x axis.
func (p Affine) Rotate(theta float64) Affine {
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	return p.Mult(Affine{cosT, -sinT, 0, sinT, cosT, 0})
}

// ScaleBy appends a uniform scaling.
func (p Affine) ScaleBy(s float64) Affine {
	return p.Mult(Affine{s, 0, 0, 0, s, 0})
}

// Apply maps a point through the transform.
func (p Affine) Apply(pt Point2D) Point2D {
	return Point2D{
		X: p[0]*pt.X + p[1]*pt.Y + p[2],
		Y: p[3]*pt.X + p[4]*pt.Y + p[5],
	}
}

// linear returns the 2x2 linear part as (m00, m01, m10, m11).
func (p Affine) linear() (float64, float64, float64, float64) {
	return p[0], p[1], p[3], p[4]
}
