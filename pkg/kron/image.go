package kron

import (
	"fmt"
	"image"
)

// MaskedImage is a float64 intensity plane with an optional variance plane,
// addressed in parent-frame coordinates: the pixel grid covers
// [x0, x0+width) x [y0, y0+height). Sub-images share the parent's backing
// arrays (stride/offset views) unless cloned.
type MaskedImage struct {
	img      []float64
	variance []float64
	width    int
	height   int
	stride   int
	off      int
	x0, y0   int
}

// NewMaskedImage allocates a width x height image with a variance plane,
// origin at (0, 0).
func NewMaskedImage(width, height int) *MaskedImage {
	return &MaskedImage{
		img:      make([]float64, width*height),
		variance: make([]float64, width*height),
		width:    width,
		height:   height,
		stride:   width,
	}
}

// SetOrigin places the image's lower corner at (x0, y0) in the parent frame.
func (mi *MaskedImage) SetOrigin(x0, y0 int) {
	mi.x0, mi.y0 = x0, y0
}

func (mi *MaskedImage) Width() int  { return mi.width }
func (mi *MaskedImage) Height() int { return mi.height }
func (mi *MaskedImage) X0() int     { return mi.x0 }
func (mi *MaskedImage) Y0() int     { return mi.y0 }

// Bounds returns the covered region in parent-frame coordinates.
func (mi *MaskedImage) Bounds() image.Rectangle {
	return image.Rect(mi.x0, mi.y0, mi.x0+mi.width, mi.y0+mi.height)
}

func (mi *MaskedImage) index(x, y int) int {
	return mi.off + (y-mi.y0)*mi.stride + (x - mi.x0)
}

// At returns the intensity at parent coordinates (x, y). No bounds check:
// callers iterate footprints that were verified against Bounds.
func (mi *MaskedImage) At(x, y int) float64 {
	return mi.img[mi.index(x, y)]
}

// VarianceAt returns the pixel variance at (x, y); zero if there is no
// variance plane.
func (mi *MaskedImage) VarianceAt(x, y int) float64 {
	if mi.variance == nil {
		return 0
	}
	return mi.variance[mi.index(x, y)]
}

func (mi *MaskedImage) Set(x, y int, v float64) {
	mi.img[mi.index(x, y)] = v
}

func (mi *MaskedImage) SetVariance(x, y int, v float64) {
	if mi.variance != nil {
		mi.variance[mi.index(x, y)] = v
	}
}

// SubImage returns the region bbox (parent coordinates) as a new MaskedImage
// that keeps its parent-frame origin. With deep=false the planes are shared
// views; with deep=true they are copied so the caller may overwrite them.
func (mi *MaskedImage) SubImage(bbox image.Rectangle, deep bool) (*MaskedImage, error) {
	if !bbox.In(mi.Bounds()) {
		return nil, fmt.Errorf("sub-image %v of image %v: %w", bbox, mi.Bounds(), ErrEdge)
	}
	sub := &MaskedImage{
		img:      mi.img,
		variance: mi.variance,
		width:    bbox.Dx(),
		height:   bbox.Dy(),
		stride:   mi.stride,
		off:      mi.off + (bbox.Min.Y-mi.y0)*mi.stride + (bbox.Min.X - mi.x0),
		x0:       bbox.Min.X,
		y0:       bbox.Min.Y,
	}
	if deep {
		return sub.Clone(), nil
	}
	return sub, nil
}

// Clone returns a contiguous deep copy.
func (mi *MaskedImage) Clone() *MaskedImage {
	out := &MaskedImage{
		img:    make([]float64, mi.width*mi.height),
		width:  mi.width,
		height: mi.height,
		stride: mi.width,
		x0:     mi.x0,
		y0:     mi.y0,
	}
	if mi.variance != nil {
		out.variance = make([]float64, mi.width*mi.height)
	}
	for r := 0; r < mi.height; r++ {
		srcOff := mi.off + r*mi.stride
		copy(out.img[r*mi.width:(r+1)*mi.width], mi.img[srcOff:srcOff+mi.width])
		if mi.variance != nil {
			copy(out.variance[r*mi.width:(r+1)*mi.width], mi.variance[srcOff:srcOff+mi.width])
		}
	}
	return out
}
