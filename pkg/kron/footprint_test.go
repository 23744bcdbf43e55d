package kron

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEllipseFootprintCircleArea(t *testing.T) {
	r := 10.0
	foot := EllipseFootprint(Ellipse{
		Core:   Axes{A: r, B: r},
		Center: Point2D{X: 50, Y: 50},
	})
	// Pixel-center counting tracks pi*r^2 to within the boundary ring.
	assert.InEpsilon(t, math.Pi*r*r, float64(foot.Area()), 0.02)
	assert.True(t, foot.BBox().In(image.Rect(39, 39, 62, 62)))
}

func TestEllipseFootprintRotated(t *testing.T) {
	foot := EllipseFootprint(Ellipse{
		Core:   Axes{A: 8, B: 3, Theta: math.Pi / 4},
		Center: Point2D{X: 30, Y: 30},
	})

	cosT, sinT := math.Cos(math.Pi/4), math.Sin(math.Pi/4)
	inside := func(x, y int) bool {
		dx := float64(x) - 30
		dy := float64(y) - 30
		du := dx*cosT + dy*sinT
		dv := -dx*sinT + dy*cosT
		return du*du/64+dv*dv/9 <= 1
	}

	// The footprint is exactly the set of pixels whose centers satisfy the
	// ellipse inequality; count them directly.
	count := 0
	for y := 15; y <= 45; y++ {
		for x := 15; x <= 45; x++ {
			if inside(x, y) {
				count++
			}
		}
	}
	assert.Equal(t, count, foot.Area())

	// A thin ellipse leaves a large boundary ring, so the analytic area is
	// only a loose sanity bound.
	assert.InEpsilon(t, math.Pi*8*3, float64(foot.Area()), 0.1)

	// Every covered pixel must satisfy the ellipse inequality.
	foot.ForEach(func(x, y int) {
		assert.True(t, inside(x, y))
	})
}

func TestEllipseFootprintClipped(t *testing.T) {
	clip := image.Rect(0, 0, 20, 20)
	foot := EllipseFootprintClipped(Ellipse{
		Core:   Axes{A: 10, B: 10},
		Center: Point2D{X: 0, Y: 0},
	}, clip)
	assert.False(t, foot.Empty())
	assert.True(t, foot.BBox().In(clip))
	// Roughly a quarter of the disk survives the clip; the two axis rows kept
	// whole push the count above the exact quarter area.
	assert.InEpsilon(t, math.Pi*100/4, float64(foot.Area()), 0.2)
}

func TestFootprintShapeDisk(t *testing.T) {
	r := 12.0
	foot := EllipseFootprint(Ellipse{
		Core:   Axes{A: r, B: r},
		Center: Point2D{X: 40, Y: 40},
	})
	shape, err := foot.Shape()
	require.NoError(t, err)
	// A disk of radius R has per-axis second moment R^2/4.
	assert.InEpsilon(t, r/2, shape.A, 0.05)
	assert.InEpsilon(t, r/2, shape.B, 0.05)
}

func TestFootprintShapeEmpty(t *testing.T) {
	_, err := (&Footprint{}).Shape()
	assert.Error(t, err)
}
