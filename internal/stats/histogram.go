// Package stats builds the voxel-value histogram and image statistics
// record (C2), and the pure background/tolerance/height formulas of §4.6.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// Histogram hides the integer/float strategy split behind a uniform
// interface (§4.2): Bin maps a voxel value to a bin index, Value maps a
// bin index back to its representative value.
type Histogram interface {
	NumBins() int
	Bin(value float64) int
	Value(bin int) float64
	Counts() []uint64
}

const maxFloatBins = 1 << 16

// intHistogram covers 8/16-bit sources: bins = 2^bitDepth, bin(v) = v,
// value(bin) = bin.
type intHistogram struct {
	counts []uint64
}

func (h *intHistogram) NumBins() int    { return len(h.counts) }
func (h *intHistogram) Counts() []uint64 { return h.counts }
func (h *intHistogram) Bin(v float64) int {
	b := int(v + 0.5)
	return clamp(b, 0, len(h.counts)-1)
}
func (h *intHistogram) Value(bin int) float64 { return float64(bin) }

// floatHistogram covers float32 sources, compacted to at most
// maxFloatBins bins spanning the observed [min,max] range so integer
// threshold algorithms apply identically (§4.2).
type floatHistogram struct {
	counts   []uint64
	min, max float64
	scale    float64 // bins per unit value
}

func (h *floatHistogram) NumBins() int     { return len(h.counts) }
func (h *floatHistogram) Counts() []uint64 { return h.counts }
func (h *floatHistogram) Bin(v float64) int {
	if h.max <= h.min {
		return 0
	}
	b := int((v - h.min) * h.scale)
	return clamp(b, 0, len(h.counts)-1)
}
func (h *floatHistogram) Value(bin int) float64 {
	if h.max <= h.min {
		return h.min
	}
	return h.min + float64(bin)/h.scale
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Inclusion selects which voxels contribute to a histogram/statistics pass.
type Inclusion int

const (
	// InclusionAll includes every voxel.
	InclusionAll Inclusion = iota
	// InclusionInside includes only voxels with EXCLUDED == 0.
	InclusionInside
	// InclusionOutside includes only voxels with EXCLUDED != 0.
	InclusionOutside
)

func included(inc Inclusion, flags voxel.Flags, i int) bool {
	switch inc {
	case InclusionInside:
		return !flags[i].Has(voxel.EXCLUDED)
	case InclusionOutside:
		return flags[i].Has(voxel.EXCLUDED)
	default:
		return true
	}
}

// Build constructs a Histogram over src honouring inc; flags may be nil
// when inc is InclusionAll.
func Build(src voxel.Source, flags voxel.Flags, inc Inclusion) Histogram {
	if src.BitDepth() == 8 || src.BitDepth() == 16 {
		bins := 1 << uint(src.BitDepth())
		h := &intHistogram{counts: make([]uint64, bins)}
		n := src.PixelCount()
		for i := 0; i < n; i++ {
			if !included(inc, flags, i) {
				continue
			}
			h.counts[h.Bin(src.Value(i))]++
		}
		return h
	}

	// Float source: first pass to find the observed range.
	n := src.PixelCount()
	min, max := math.Inf(1), math.Inf(-1)
	any := false
	for i := 0; i < n; i++ {
		if !included(inc, flags, i) {
			continue
		}
		v := src.Value(i)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		any = true
	}
	if !any {
		min, max = 0, 0
	}

	bins := maxFloatBins
	h := &floatHistogram{counts: make([]uint64, bins), min: min, max: max}
	if max > min {
		h.scale = float64(bins-1) / (max - min)
	}
	for i := 0; i < n; i++ {
		if !included(inc, flags, i) {
			continue
		}
		h.counts[h.Bin(src.Value(i))]++
	}
	return h
}

// Statistics is the image statistics record (§3): image minimum plus
// min/max/mean/stddev/sum/count over the included voxels. BackgroundBin
// and voxel Bin resolve a raw value to its histogram bin.
type Statistics struct {
	ImageMinimum float64
	Min, Max     float64
	Mean, StdDev float64
	Sum          float64
	Count        int64

	hist Histogram
}

// Compute derives Statistics from hist over the included voxels of src,
// using gonum's population-corrected (n-1) standard deviation.
func Compute(src voxel.Source, flags voxel.Flags, inc Inclusion, hist Histogram) Statistics {
	s := Statistics{hist: hist, ImageMinimum: ImageMinimum(src)}

	n := src.PixelCount()
	values := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if !included(inc, flags, i) {
			continue
		}
		values = append(values, src.Value(i))
	}

	if len(values) == 0 {
		return s
	}

	s.Min, s.Max = values[0], values[0]
	for _, v := range values {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		s.Sum += v
	}
	s.Count = int64(len(values))
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}
	return s
}

// ImageMinimum scans every voxel of src (ignoring ROI/mask exclusion) and
// returns the global minimum value, used as the baseline for
// totalAboveImageMinimum and to distinguish a flat background from a
// genuine local maximum during seeding.
func ImageMinimum(src voxel.Source) float64 {
	n := src.PixelCount()
	if n == 0 {
		return 0
	}
	m := src.Value(0)
	for i := 1; i < n; i++ {
		if v := src.Value(i); v < m {
			m = v
		}
	}
	return m
}

// BackgroundBin returns the histogram bin index of background level bg.
func (s Statistics) BackgroundBin(bg float64) int {
	if s.hist == nil {
		return 0
	}
	return s.hist.Bin(bg)
}

// Bin returns the histogram bin of voxel i's value.
func (s Statistics) Bin(src voxel.Source, i int) int {
	if s.hist == nil {
		return 0
	}
	return s.hist.Bin(src.Value(i))
}

// Histogram exposes the backing histogram, e.g. for an auto-threshold
// strategy to consume.
func (s Statistics) Histogram() Histogram { return s.hist }
