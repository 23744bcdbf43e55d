package main

import (
	"fmt"
	"image"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"kronphot/pkg/kron"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: kronphot <run-config.yaml> <image>")
	}
	cfg, err := LoadRunConfig(args[0])
	if err != nil {
		return err
	}
	imagePath := args[1]
	fmt.Printf("Loading: %s\n", imagePath)

	mi, err := loadImage(imagePath, cfg.Detector)
	if err != nil {
		return err
	}

	var psf kron.Psf
	if cfg.Psf.SigmaX > 0 && cfg.Psf.SigmaY > 0 {
		psf = &kron.GaussianPsf{SigmaX: cfg.Psf.SigmaX, SigmaY: cfg.Psf.SigmaY, Theta: cfg.Psf.Theta}
	}
	measurer := kron.NewMeasurer(cfg.Photometry, psf)

	startTime := time.Now()
	measurements := make([]kron.Measurement, 0, len(cfg.Sources))
	failed := 0
	for i, spec := range cfg.Sources {
		src := buildSource(mi, int64(i), spec)
		res, err := measurer.Measure(mi, src)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "source %d at (%.2f, %.2f): %v\n", i, spec.X, spec.Y, err)
		}
		measurements = append(measurements, kron.Measurement{Source: src, Result: res})
	}
	elapsed := time.Since(startTime)

	printSummary(measurements, failed, elapsed)

	if cfg.Overlay != "" {
		if err := kron.RenderApertureOverlay(mi, measurements, cfg.Photometry.NRadiusForFlux, cfg.Overlay); err != nil {
			return err
		}
		fmt.Printf("Overlay written to %s\n", cfg.Overlay)
	}
	return nil
}

func loadImage(path string, det DetectorSpec) (*kron.MaskedImage, error) {
	if strings.HasSuffix(strings.ToLower(path), ".fits") ||
		strings.HasSuffix(strings.ToLower(path), ".fit") {
		fi, err := kron.ReadFits(path)
		if err != nil {
			return nil, err
		}
		gain, readNoise := det.Gain, det.ReadNoise
		if g, ok := fi.Header.Gain(); ok {
			gain = g
		}
		if rn, ok := fi.Header.ReadNoise(); ok {
			readNoise = rn
		}
		fi.FillVariance(gain, readNoise)
		return fi.Image, nil
	}
	mi, err := loadNonFitsImage(path)
	if err != nil {
		return nil, err
	}
	fi := &kron.FitsImage{Image: mi}
	fi.FillVariance(det.Gain, det.ReadNoise)
	return mi, nil
}

// buildSource turns a source entry into a measurement record, fitting the
// shape from the image when the entry does not carry one.
func buildSource(mi *kron.MaskedImage, id int64, spec SourceSpec) *kron.Source {
	src := &kron.Source{
		ID:     id,
		Center: kron.Point2D{X: spec.X, Y: spec.Y},
	}
	if spec.A > 0 && spec.B > 0 {
		src.Shape = kron.Axes{A: spec.A, B: spec.B, Theta: spec.Theta}
		src.ShapeOK = true
		return src
	}

	const fitHalfBox = 12
	box := image.Rect(int(spec.X)-fitHalfBox, int(spec.Y)-fitHalfBox,
		int(spec.X)+fitHalfBox+1, int(spec.Y)+fitHalfBox+1)
	fit, err := kron.FitShape(mi, src.Center, box, 0.5)
	if err != nil {
		// Leave ShapeOK false; the measurer substitutes the PSF shape.
		return src
	}
	src.Center = fit.Center
	src.Shape = fit.Axes
	src.ShapeOK = true
	return src
}

func printSummary(measurements []kron.Measurement, failed int, elapsed time.Duration) {
	radii := make([]float64, 0, len(measurements))
	fluxes := make([]float64, 0, len(measurements))
	for _, m := range measurements {
		if m.Result == nil || m.Result.Failed {
			continue
		}
		radii = append(radii, m.Result.Radius)
		fluxes = append(fluxes, m.Result.Flux)
	}

	fmt.Println()
	fmt.Printf("=== Kron Photometry Results (%.1fs) ===\n", elapsed.Seconds())
	fmt.Printf("  Sources measured: %d\n", len(measurements)-failed)
	fmt.Printf("  Sources failed:   %d\n", failed)
	if len(radii) > 0 {
		radMedian, radMAD := medianMAD(radii)
		fluxMedian, fluxMAD := medianMAD(fluxes)
		fmt.Printf("  Radius (median):  %.3f +/- %.3f px\n", radMedian, radMAD)
		fmt.Printf("  Flux (median):    %.4g +/- %.4g\n", fluxMedian, fluxMAD)
	}
	for i, m := range measurements {
		if m.Result == nil {
			continue
		}
		r := m.Result
		flags := resultFlags(r)
		fmt.Printf("  [%3d] (%8.2f, %8.2f)  flux=%12.4g +/- %10.4g  R=%7.3f%s\n",
			i, m.Source.Center.X, m.Source.Center.Y, r.Flux, r.FluxErr, r.Radius, flags)
	}
	fmt.Println("=======================================")
}

func resultFlags(r *kron.Result) string {
	var flags []string
	if r.Failed {
		flags = append(flags, "FAILED")
	}
	if r.Edge {
		flags = append(flags, "edge")
	}
	if r.BadRadius {
		flags = append(flags, "badRadius")
	}
	if r.SmallRadius {
		flags = append(flags, "smallRadius")
	}
	if r.UsedMinimumRadius {
		flags = append(flags, "minRadius")
	}
	if r.UsedPsfRadius {
		flags = append(flags, "psfRadius")
	}
	if r.BadShape {
		flags = append(flags, "badShape")
	}
	if len(flags) == 0 {
		return ""
	}
	return "  [" + strings.Join(flags, ",") + "]"
}

// medianMAD returns the median and the median absolute deviation.
func medianMAD(values []float64) (float64, float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	devs := make([]float64, len(sorted))
	for i, v := range sorted {
		devs[i] = math.Abs(v - median)
	}
	sort.Float64s(devs)
	return median, stat.Quantile(0.5, stat.Empirical, devs, nil)
}
