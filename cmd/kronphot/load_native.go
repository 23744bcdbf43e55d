//go:build !purego && !js

package main

import (
	"fmt"

	"gocv.io/x/gocv"

	"kronphot/pkg/kron"
)

func loadNonFitsImage(path string) (*kron.MaskedImage, error) {
	src := gocv.IMRead(path, gocv.IMReadGrayScale)
	if src.Empty() {
		return nil, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	floatMat := gocv.NewMat()
	defer floatMat.Close()
	src.ConvertTo(&floatMat, gocv.MatTypeCV64F)

	w, h := floatMat.Cols(), floatMat.Rows()
	data, err := floatMat.DataPtrFloat64()
	if err != nil {
		return nil, fmt.Errorf("reading pixel data: %w", err)
	}

	mi := kron.NewMaskedImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mi.Set(x, y, data[y*w+x])
		}
	}
	return mi, nil
}
