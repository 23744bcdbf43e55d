//go:build purego || js

package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"kronphot/pkg/kron"
)

func loadNonFitsImage(path string) (*kron.MaskedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mi := kron.NewMaskedImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Grayscale luminance in the uint16 range.
			gray := (19595*r + 38470*g + 7471*b + 1<<15) >> 16
			mi.Set(x, y, float64(gray))
		}
	}
	return mi, nil
}
