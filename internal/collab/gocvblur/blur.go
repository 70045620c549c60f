// Package gocvblur implements the §6 BlurProvider collaborator with
// OpenCV's separable Gaussian blur, applied slice-by-slice for 3D volumes.
package gocvblur

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Provider applies a pure Gaussian blur via gocv.GaussianBlur.
type Provider struct{}

// New returns a Provider.
func New() *Provider { return &Provider{} }

// Blur returns values unchanged when sigma <= 0; otherwise it blurs each
// z-slice independently with a kernel sized from sigma, odd and clamped
// to [3,31].
func (p *Provider) Blur(values []float64, width, height, depth int, sigma float64) ([]float64, error) {
	if sigma <= 0 {
		return values, nil
	}
	if width <= 0 || height <= 0 || depth <= 0 || len(values) != width*height*depth {
		return nil, fmt.Errorf("gocvblur: dimensions %dx%dx%d do not match %d values", width, height, depth, len(values))
	}

	kernel := int(sigma*6) + 1
	if kernel%2 == 0 {
		kernel++
	}
	if kernel < 3 {
		kernel = 3
	}
	if kernel > 31 {
		kernel = 31
	}

	out := make([]float64, len(values))
	plane := width * height

	for z := 0; z < depth; z++ {
		src := gocv.NewMatWithSize(height, width, gocv.MatTypeCV64F)
		offset := z * plane
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				src.SetDoubleAt(y, x, values[offset+y*width+x])
			}
		}

		dst := gocv.NewMat()
		gocv.GaussianBlur(src, &dst, image.Pt(kernel, kernel), sigma, sigma, gocv.BorderDefault)

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[offset+y*width+x] = dst.GetDoubleAt(y, x)
			}
		}

		src.Close()
		dst.Close()
	}

	return out, nil
}
