package kron

import (
	"fmt"
	"image"
	"math"
)

// ShapeFit is the result of fitting an elliptical Gaussian to a source. The
// fitted widths double as the source's adaptive second-moment shape.
type ShapeFit struct {
	Center     Point2D
	Peak       float64
	Background float64
	Axes       Axes
	RSquared   float64
}

// FitShape fits an elliptical Gaussian to the pixels of bbox around an
// initial center and returns the fitted shape. The fit fails when the box
// holds too few pixels, the solution degenerates, or the goodness of fit
// drops below goodnessThreshold; callers treat a failed fit as an invalid
// shape and substitute the PSF shape.
func FitShape(mi *MaskedImage, center Point2D, bbox image.Rectangle, goodnessThreshold float64) (*ShapeFit, error) {
	bbox = bbox.Intersect(mi.Bounds())
	numPixels := bbox.Dx() * bbox.Dy()
	if numPixels < 7 {
		return nil, fmt.Errorf("fit box %v has %d pixels, need at least 7", bbox, numPixels)
	}

	inputs := make([][2]float64, 0, numPixels)
	outputs := make([]float64, 0, numPixels)
	background := math.Inf(1)
	peak := math.Inf(-1)
	for y := bbox.Min.Y; y < bbox.Max.Y; y++ {
		for x := bbox.Min.X; x < bbox.Max.X; x++ {
			v := mi.At(x, y)
			inputs = append(inputs, [2]float64{float64(x) - center.X, float64(y) - center.Y})
			outputs = append(outputs, v)
			background = math.Min(background, v)
			peak = math.Max(peak, v)
		}
	}

	bw, bh := float64(bbox.Dx()), float64(bbox.Dy())
	sigmaUpperBound := math.Hypot(bw, bh) / 2
	dxLimit, dyLimit := bw/8, bh/8

	x0 := []float64{math.Max(0, peak-background), background, 0, 0, bw / 3, bh / 3, 0}
	lower := []float64{0, background - (peak - background), -dxLimit, -dyLimit, 0, 0, -math.Pi / 2}
	upper := []float64{2 * (peak - background), peak, dxLimit, dyLimit, sigmaUpperBound, sigmaUpperBound, math.Pi / 2}
	scale := []float64{0.01, 0.01, 0.1, 0.1, 1, 1, 1}

	solution := levenbergMarquardt(inputs, outputs, x0, lower, upper, scale, 1e-8, 200)
	if solution == nil {
		return nil, fmt.Errorf("shape fit did not converge for source at (%.3f, %.3f)", center.X, center.Y)
	}

	sigX, sigY := solution[4], solution[5]
	if math.IsNaN(sigX) || math.IsNaN(sigY) || sigX <= 0 || sigY <= 0 {
		return nil, fmt.Errorf("degenerate fitted widths (%g, %g)", sigX, sigY)
	}

	theta := euclidianModulus(solution[6], math.Pi)
	if theta > math.Pi/2 {
		theta -= math.Pi
	}
	if sigY > sigX {
		if theta < 0 {
			theta += math.Pi / 2
		} else {
			theta -= math.Pi / 2
		}
		sigX, sigY = sigY, sigX
	}

	rSquared := fitRSquared(inputs, outputs, solution)
	if rSquared < goodnessThreshold {
		return nil, fmt.Errorf("shape fit r-squared %.3f below threshold %.3f", rSquared, goodnessThreshold)
	}

	return &ShapeFit{
		Center:     Point2D{X: center.X + solution[2], Y: center.Y + solution[3]},
		Peak:       solution[0],
		Background: solution[1],
		Axes:       Axes{A: sigX, B: sigY, Theta: theta},
		RSquared:   rSquared,
	}, nil
}

func euclidianModulus(x, y float64) float64 {
	return math.Mod(math.Mod(x, y)+y, y)
}

// gaussianValue evaluates the 7-parameter elliptical Gaussian
// p = (A, B, x0, y0, sigX, sigY, theta) at an (x, y) offset.
func gaussianValue(p []float64, input [2]float64) float64 {
	amp, bg := p[0], p[1]
	x, y := input[0], input[1]
	x0, y0 := p[2], p[3]
	u, v, t := p[4], p[5], p[6]

	cosT, sinT := math.Cos(t), math.Sin(t)
	xr := (x-x0)*cosT + (y-y0)*sinT
	yr := -(x-x0)*sinT + (y-y0)*cosT
	e := xr*xr/(2*u*u) + yr*yr/(2*v*v)
	return bg + amp*math.Exp(-e)
}

func gaussianGradient(p []float64, input [2]float64, grad []float64) {
	amp := p[0]
	x, y := input[0], input[1]
	x0, y0 := p[2], p[3]
	u, v, t := p[4], p[5], p[6]

	cosT, sinT := math.Cos(t), math.Sin(t)
	xr := (x-x0)*cosT + (y-y0)*sinT
	yr := -(x-x0)*sinT + (y-y0)*cosT
	x2, y2 := xr*xr, yr*yr
	u2, v2 := u*u, v*v
	u3, v3 := u2*u, v2*v
	eE := math.Exp(-(x2/(2*u2) + y2/(2*v2)))

	grad[0] = eE
	grad[1] = 1.0
	grad[2] = amp * (cosT*xr/u2 - sinT*yr/v2) * eE
	grad[3] = amp * (sinT*xr/u2 + cosT*yr/v2) * eE
	grad[4] = amp * x2 / u3 * eE
	grad[5] = amp * y2 / v3 * eE
	grad[6] = amp * xr * yr * (1/v2 - 1/u2) * eE
}

func fitRSquared(inputs [][2]float64, outputs, p []float64) float64 {
	yBar := 0.0
	for _, o := range outputs {
		yBar += o
	}
	yBar /= float64(len(outputs))

	tss, rss := 0.0, 0.0
	for i := range inputs {
		res := gaussianValue(p, inputs[i]) - outputs[i]
		disp := outputs[i] - yBar
		rss += res * res
		tss += disp * disp
	}
	if tss > 0 {
		return 1 - rss/tss
	}
	return 0
}

// levenbergMarquardt minimizes the squared residuals of the elliptical
// Gaussian model with box constraints. Returns nil only on pathological
// inputs; otherwise the best solution found.
func levenbergMarquardt(inputs [][2]float64, outputs, x0, lower, upper, scale []float64, tolerance float64, maxIter int) []float64 {
	n := len(x0)
	m := len(inputs)

	x := make([]float64, n)
	copy(x, x0)
	for j := range x {
		x[j] = clampFit(x[j], lower[j], upper[j])
	}

	fi := make([]float64, m)
	jac := make([][]float64, m)
	for i := range jac {
		jac[i] = make([]float64, n)
	}
	grad := make([]float64, n)

	residualsAndJacobian := func() {
		for k := 0; k < m; k++ {
			fi[k] = gaussianValue(x, inputs[k]) - outputs[k]
			gaussianGradient(x, inputs[k], grad)
			copy(jac[k], grad)
		}
	}
	residualsAndJacobian()
	cost := sumOfSquares(fi)

	lambda := 1e-3
	nu := 2.0

	jtj := make([][]float64, n)
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		jtj[i] = make([]float64, n)
		aug[i] = make([]float64, n)
	}
	jtf := make([]float64, n)
	rhs := make([]float64, n)
	dx := make([]float64, n)
	xNew := make([]float64, n)
	fiNew := make([]float64, m)

	for iter := 0; iter < maxIter; iter++ {
		for i := 0; i < n; i++ {
			jtf[i] = 0
			for j := 0; j < n; j++ {
				jtj[i][j] = 0
			}
		}
		for k := 0; k < m; k++ {
			for i := 0; i < n; i++ {
				ji := jac[k][i]
				jtf[i] += ji * fi[k]
				for j := i; j < n; j++ {
					jtj[i][j] += ji * jac[k][j]
				}
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < i; j++ {
				jtj[i][j] = jtj[j][i]
			}
		}

		gradNorm := 0.0
		for i := 0; i < n; i++ {
			gradNorm += jtf[i] * jtf[i]
		}
		if math.Sqrt(gradNorm) < tolerance*cost {
			break
		}

		for tries := 0; tries < 20; tries++ {
			for i := 0; i < n; i++ {
				copy(aug[i], jtj[i])
				aug[i][i] += lambda * scale[i] * scale[i]
				rhs[i] = -jtf[i]
			}

			if !solveLinear(aug, rhs, dx, n) {
				lambda *= nu
				continue
			}

			for j := 0; j < n; j++ {
				xNew[j] = clampFit(x[j]+dx[j], lower[j], upper[j])
			}
			for k := 0; k < m; k++ {
				fiNew[k] = gaussianValue(xNew, inputs[k]) - outputs[k]
			}
			costNew := sumOfSquares(fiNew)

			if costNew < cost {
				improvement := (cost - costNew) / cost
				copy(x, xNew)
				cost = costNew
				lambda = math.Max(lambda/3, 1e-15)
				nu = 2.0
				residualsAndJacobian()
				if improvement < tolerance {
					return x
				}
				break
			}
			lambda *= nu
			nu *= 2
			if lambda > 1e16 {
				return x
			}
		}
	}
	return x
}

func sumOfSquares(fi []float64) float64 {
	s := 0.0
	for _, v := range fi {
		s += v * v
	}
	return s
}

func clampFit(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// solveLinear solves A*x = b by Gaussian elimination with partial pivoting.
func solveLinear(a [][]float64, b, x []float64, n int) bool {
	work := make([][]float64, n)
	for i := range work {
		work[i] = make([]float64, n)
		copy(work[i], a[i])
	}
	rhs := make([]float64, n)
	copy(rhs, b)

	for col := 0; col < n; col++ {
		maxRow := col
		maxVal := math.Abs(work[col][col])
		for row := col + 1; row < n; row++ {
			if av := math.Abs(work[row][col]); av > maxVal {
				maxVal = av
				maxRow = row
			}
		}
		if maxVal < 1e-30 {
			return false
		}
		if maxRow != col {
			work[col], work[maxRow] = work[maxRow], work[col]
			rhs[col], rhs[maxRow] = rhs[maxRow], rhs[col]
		}

		pivot := work[col][col]
		for row := col + 1; row < n; row++ {
			factor := work[row][col] / pivot
			for j := col; j < n; j++ {
				work[row][j] -= factor * work[col][j]
			}
			rhs[row] -= factor * rhs[col]
		}
	}

	for row := n - 1; row >= 0; row-- {
		sum := rhs[row]
		for j := row + 1; j < n; j++ {
			sum -= work[row][j] * x[j]
		}
		x[row] = sum / work[row][row]
	}
	return true
}
