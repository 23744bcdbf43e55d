package kron

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Measurement pairs a source with its result for rendering.
type Measurement struct {
	Source *Source
	Result *Result
}

// RenderApertureOverlay writes a JPEG of the image with the measured Kron
// apertures drawn on top: green for clean measurements, yellow where a radius
// floor was substituted, red for failures. Labels carry the Kron radius;
// failures have none and are marked with a cross at the source position.
func RenderApertureOverlay(mi *MaskedImage, measurements []Measurement, nRadiusForFlux float64, outputPath string) error {
	img := renderOverlayImage(mi, measurements, nRadiusForFlux)

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create overlay file: %w", err)
	}
	defer f.Close()

	return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
}

func renderOverlayImage(mi *MaskedImage, measurements []Measurement, nRadiusForFlux float64) *image.RGBA {
	b := mi.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	// Grayscale background stretched over the image's full intensity range.
	lo, hi := intensityRange(mi)
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := uint8(clampOverlay((mi.At(x, y)-lo)*scale, 0, 255))
			img.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}

	for _, m := range measurements {
		c := color.RGBA{G: 255, A: 255}
		switch {
		case m.Result == nil || m.Result.Failed:
			c = color.RGBA{R: 255, A: 255}
		case m.Result.UsedMinimumRadius || m.Result.UsedPsfRadius:
			c = color.RGBA{R: 255, G: 255, A: 255}
		}
		if m.Result == nil || math.IsNaN(m.Result.Radius) {
			// No aperture to draw; mark the position so failures show up.
			drawMarker(img,
				int(m.Source.Center.X)-b.Min.X, int(m.Source.Center.Y)-b.Min.Y, c)
			continue
		}
		axes := m.Source.Shape.ScaleToRadius(m.Result.Radius).Scale(nRadiusForFlux)
		drawEllipse(img, Ellipse{Core: axes, Center: m.Source.Center}, b.Min, c)
		drawLabel(img,
			int(m.Source.Center.X)-b.Min.X+4, int(m.Source.Center.Y)-b.Min.Y-4,
			fmt.Sprintf("R=%.2f", m.Result.Radius), c)
	}
	return img
}

// drawEllipse strokes the ellipse outline with a parametric walk, one step
// per half pixel of circumference.
func drawEllipse(img *image.RGBA, e Ellipse, origin image.Point, c color.RGBA) {
	cosT, sinT := math.Cos(e.Core.Theta), math.Sin(e.Core.Theta)
	steps := int(4 * math.Pi * e.Core.A)
	if steps < 16 {
		steps = 16
	}
	for i := 0; i < steps; i++ {
		phi := 2 * math.Pi * float64(i) / float64(steps)
		u := e.Core.A * math.Cos(phi)
		v := e.Core.B * math.Sin(phi)
		x := int(math.Round(e.Center.X+u*cosT-v*sinT)) - origin.X
		y := int(math.Round(e.Center.Y+u*sinT+v*cosT)) - origin.Y
		if image.Pt(x, y).In(img.Bounds()) {
			img.SetRGBA(x, y, c)
		}
	}
}

// drawMarker strokes a small cross centered on (x, y).
func drawMarker(img *image.RGBA, x, y int, c color.RGBA) {
	const arm = 4
	for d := -arm; d <= arm; d++ {
		if image.Pt(x+d, y).In(img.Bounds()) {
			img.SetRGBA(x+d, y, c)
		}
		if image.Pt(x, y+d).In(img.Bounds()) {
			img.SetRGBA(x, y+d, c)
		}
	}
}

func drawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}

func intensityRange(mi *MaskedImage) (lo, hi float64) {
	b := mi.Bounds()
	lo, hi = math.Inf(1), math.Inf(-1)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := mi.At(x, y)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

func clampOverlay(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
