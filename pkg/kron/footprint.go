package kron

import (
	"image"
	"math"
)

// span is a run of pixels [X0, X1] (inclusive) on row Y.
type span struct {
	Y, X0, X1 int
}

// Footprint is the discrete set of pixel coordinates covered by a region,
// stored as row spans in parent-frame coordinates.
type Footprint struct {
	spans []span
	bbox  image.Rectangle
}

// EllipseFootprint builds the footprint of all pixels whose centers lie
// inside the ellipse.
func EllipseFootprint(e Ellipse) *Footprint {
	return ellipseFootprint(e, image.Rectangle{}, false)
}

// EllipseFootprintClipped builds the ellipse footprint restricted to clip.
func EllipseFootprintClipped(e Ellipse, clip image.Rectangle) *Footprint {
	return ellipseFootprint(e, clip, true)
}

func ellipseFootprint(e Ellipse, clip image.Rectangle, doClip bool) *Footprint {
	foot := &Footprint{}

	// Implicit form: qa*dx^2 + qb*dx*dy + qc*dy^2 <= 1 for points inside.
	cosT, sinT := math.Cos(e.Core.Theta), math.Sin(e.Core.Theta)
	ia2 := 1 / (e.Core.A * e.Core.A)
	ib2 := 1 / (e.Core.B * e.Core.B)
	qa := cosT*cosT*ia2 + sinT*sinT*ib2
	qb := 2 * cosT * sinT * (ia2 - ib2)
	qc := sinT*sinT*ia2 + cosT*cosT*ib2

	yExtent := math.Sqrt(e.Core.A*e.Core.A*sinT*sinT + e.Core.B*e.Core.B*cosT*cosT)
	yMin := int(math.Ceil(e.Center.Y - yExtent))
	yMax := int(math.Floor(e.Center.Y + yExtent))

	for y := yMin; y <= yMax; y++ {
		dy := float64(y) - e.Center.Y
		// Solve qa*dx^2 + (qb*dy)*dx + (qc*dy^2 - 1) = 0 for the row extent.
		disc := qb*qb*dy*dy - 4*qa*(qc*dy*dy-1)
		if disc < 0 {
			continue
		}
		root := math.Sqrt(disc)
		xLo := e.Center.X + (-qb*dy-root)/(2*qa)
		xHi := e.Center.X + (-qb*dy+root)/(2*qa)
		x0 := int(math.Ceil(xLo))
		x1 := int(math.Floor(xHi))
		if doClip {
			if y < clip.Min.Y || y >= clip.Max.Y {
				continue
			}
			if x0 < clip.Min.X {
				x0 = clip.Min.X
			}
			if x1 >= clip.Max.X {
				x1 = clip.Max.X - 1
			}
		}
		if x0 > x1 {
			continue
		}
		foot.addSpan(y, x0, x1)
	}
	return foot
}

func (f *Footprint) addSpan(y, x0, x1 int) {
	f.spans = append(f.spans, span{Y: y, X0: x0, X1: x1})
	r := image.Rect(x0, y, x1+1, y+1)
	if f.bbox.Empty() {
		f.bbox = r
	} else {
		f.bbox = f.bbox.Union(r)
	}
}

// BBox returns the bounding box of the footprint in parent coordinates.
func (f *Footprint) BBox() image.Rectangle { return f.bbox }

// Empty reports whether the footprint covers no pixels.
func (f *Footprint) Empty() bool { return len(f.spans) == 0 }

// Area returns the number of covered pixels.
func (f *Footprint) Area() int {
	n := 0
	for _, s := range f.spans {
		n += s.X1 - s.X0 + 1
	}
	return n
}

// ForEach calls fn for every covered pixel.
func (f *Footprint) ForEach(fn func(x, y int)) {
	for _, s := range f.spans {
		for x := s.X0; x <= s.X1; x++ {
			fn(x, s.Y)
		}
	}
}

// Shape returns the principal axes of the footprint's unweighted second
// moments. For the detection footprint of a source this stands in for the
// region's own size when widening the initial Kron shape.
func (f *Footprint) Shape() (Axes, error) {
	n := float64(f.Area())
	if n == 0 {
		return Axes{}, ErrBadRadius
	}
	var sx, sy float64
	f.ForEach(func(x, y int) {
		sx += float64(x)
		sy += float64(y)
	})
	mx, my := sx/n, sy/n

	var ixx, iyy, ixy float64
	f.ForEach(func(x, y int) {
		dx := float64(x) - mx
		dy := float64(y) - my
		ixx += dx * dx
		iyy += dy * dy
		ixy += dx * dy
	})
	return axesFromMoments(ixx/n, iyy/n, ixy/n)
}
