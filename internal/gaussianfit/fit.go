// Package gaussianfit implements the GAUSSIAN_FIT centroid collaborator
// of §4.10: a 2D Gaussian fit over a single z-projection, seeded from the
// projection's image moments and refined with a derivative-free optimiser.
package gaussianfit

import (
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/optimize"
)

// Strategy fits an isotropic 2D Gaussian (one shared sigma) to a projection, satisfying
// collab.GaussianFitStrategy.
type Strategy struct {
	// MaxIterations bounds the refinement optimiser; 0 selects a sane default.
	MaxIterations int
}

// New returns a Strategy with default settings.
func New() *Strategy { return &Strategy{} }

// Fit projects values (row-major, w*h) to a gocv.Mat to seed the centre
// with image moments, then refines amplitude/centre/sigma by minimising
// sum-of-squares residual against a Gaussian model. Returns ok=false if
// the projection carries no mass or the optimiser fails to converge to a
// centre inside bounds.
func (s *Strategy) Fit(values []float64, w, h int) (cx, cy float64, ok bool) {
	if w <= 0 || h <= 0 || len(values) != w*h {
		return 0, 0, false
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV64F)
	defer mat.Close()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mat.SetDoubleAt(y, x, values[y*w+x])
		}
	}

	moments := gocv.Moments(mat, false)
	if moments.M00 == 0 {
		return 0, 0, false
	}
	seedX := moments.M10 / moments.M00
	seedY := moments.M01 / moments.M00
	seedSigma := initialSigma(values, w, h, seedX, seedY)
	seedAmplitude := maxValue(values)

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return residual(values, w, h, x[0], x[1], x[2], x[3])
		},
	}

	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = 100
	}
	result, err := optimize.Minimize(p, []float64{seedAmplitude, seedX, seedY, seedSigma}, &optimize.Settings{
		MajorIterations: maxIter,
	}, &optimize.NelderMead{})
	if err != nil && result == nil {
		return 0, 0, false
	}

	fitX, fitY := result.X[1], result.X[2]
	if math.IsNaN(fitX) || math.IsNaN(fitY) || fitX < -1 || fitY < -1 || fitX > float64(w) || fitY > float64(h) {
		return 0, 0, false
	}
	return fitX, fitY, true
}

// residual computes the sum of squared differences between values and a
// 2D isotropic Gaussian of the given amplitude/centre/sigma.
func residual(values []float64, w, h int, amplitude, cx, cy, sigma float64) float64 {
	if sigma <= 0 {
		return math.Inf(1)
	}
	var sum float64
	inv := 1.0 / (2 * sigma * sigma)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			model := amplitude * math.Exp(-(dx*dx+dy*dy)*inv)
			diff := values[y*w+x] - model
			sum += diff * diff
		}
	}
	return sum
}

func initialSigma(values []float64, w, h int, cx, cy float64) float64 {
	var sumW, sumD float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := values[y*w+x]
			if v <= 0 {
				continue
			}
			dx, dy := float64(x)-cx, float64(y)-cy
			sumD += v * (dx*dx + dy*dy)
			sumW += v
		}
	}
	if sumW == 0 {
		return 1
	}
	sigma := math.Sqrt(sumD / sumW)
	if sigma < 0.5 {
		sigma = 0.5
	}
	return sigma
}

func maxValue(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}
