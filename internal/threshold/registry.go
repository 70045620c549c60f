// Package threshold implements the auto-threshold strategy registry that
// the core injects through stats.AutoThreshold (§6 "Auto-threshold
// strategies", §9 "Global configuration registries should be passed in as
// an injected strategy table rather than held in process-wide state").
//
// The between-class variance search in otsuThreshold is grounded on the
// teacher's iterative-triclass calculateOtsuThreshold, generalized from a
// fixed 256-bin uint8 histogram to an arbitrary-width stats.Histogram.
package threshold

import (
	"fmt"

	"github.com/aherbert/gdsc-sub001/internal/stats"
)

// Registry is an injectable table of named auto-threshold strategies. The
// zero value is usable; use NewRegistry for the standard strategy set.
type Registry struct {
	strategies map[string]func(stats.Histogram) int
}

// NewRegistry returns a Registry pre-populated with the classical Otsu
// method plus multi-Otsu level-3/4 and the triangle method.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]func(stats.Histogram) int)}
	r.Register("otsu", otsuThreshold)
	r.Register("multi-otsu3", multiOtsu3)
	r.Register("multi-otsu4", multiOtsu4)
	r.Register("triangle", triangleThreshold)
	return r
}

// Register installs (or replaces) a named strategy.
func (r *Registry) Register(name string, fn func(stats.Histogram) int) {
	if r.strategies == nil {
		r.strategies = make(map[string]func(stats.Histogram) int)
	}
	r.strategies[name] = fn
}

// Names lists the registered strategy names, for configuration validation.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	return names
}

// Threshold resolves name against hist, satisfying stats.AutoThreshold.
func (r *Registry) Threshold(name string, hist stats.Histogram) (int, error) {
	fn, ok := r.strategies[name]
	if !ok {
		return 0, fmt.Errorf("threshold: unknown auto-threshold method %q", name)
	}
	return fn(hist), nil
}

// otsuThreshold finds the bin maximizing between-class variance,
// adapted from the teacher's single-histogram Otsu search.
func otsuThreshold(hist stats.Histogram) int {
	counts := hist.Counts()
	n := len(counts)
	if n == 0 {
		return 0
	}

	var total uint64
	var sum float64
	for i, c := range counts {
		total += c
		sum += float64(i) * float64(c)
	}
	if total == 0 {
		return n / 2
	}

	var wB uint64
	var sumB float64
	maxVariance := -1.0
	best := n / 2

	for i := 0; i < n; i++ {
		wB += counts[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(counts[i])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		diff := mB - mF
		variance := float64(wB) * float64(wF) * diff * diff
		if variance > maxVariance {
			maxVariance = variance
			best = i
		}
	}
	return best
}

// triangleThreshold implements the triangle method: the histogram bin at
// maximum perpendicular distance from the chord joining the peak to the
// farther non-empty tail. Adapted from the teacher's calculateTriangleThreshold.
func triangleThreshold(hist stats.Histogram) int {
	counts := hist.Counts()
	n := len(counts)
	if n == 0 {
		return 0
	}

	peak, peakCount := 0, counts[0]
	for i, c := range counts {
		if c > peakCount {
			peakCount = c
			peak = i
		}
	}

	left, right := 0, n-1
	for left < n && counts[left] == 0 {
		left++
	}
	for right >= 0 && counts[right] == 0 {
		right--
	}
	if left >= right {
		return peak
	}

	farEnd := right
	if peak-left > right-peak {
		farEnd = left
	}

	x1, y1 := float64(peak), float64(peakCount)
	x2, y2 := float64(farEnd), float64(counts[farEnd])
	if x1 == x2 {
		return peak
	}

	lo, hi := peak, farEnd
	if lo > hi {
		lo, hi = hi, lo
	}

	best := peak
	maxDist := -1.0
	denom := ((y2-y1)*(y2-y1) + (x2-x1)*(x2-x1))
	for i := lo; i <= hi; i++ {
		num := (y2-y1)*float64(i) - (x2-x1)*float64(counts[i]) + x2*y1 - y2*x1
		if num < 0 {
			num = -num
		}
		dist := num * num / denom // monotone in the true (sqrt) distance
		if dist > maxDist {
			maxDist = dist
			best = i
		}
	}
	return best
}

// multiOtsu3 returns the single (second) threshold of a level-3 multi-Otsu
// split: two thresholds t0 <= t1 partition the histogram into 3 classes,
// and the routine reports t1, per §6 "returning the second threshold of
// the sequence".
func multiOtsu3(hist stats.Histogram) int {
	thresholds := multiOtsuSearch(hist, 2)
	if len(thresholds) < 2 {
		return otsuThreshold(hist)
	}
	return thresholds[1]
}

// multiOtsu4 is the level-4 analogue, reporting the second of three
// thresholds.
func multiOtsu4(hist stats.Histogram) int {
	thresholds := multiOtsuSearch(hist, 3)
	if len(thresholds) < 2 {
		return otsuThreshold(hist)
	}
	return thresholds[1]
}

// multiOtsuSearch exhaustively maximizes total between-class variance over
// k ordered thresholds partitioning the histogram into k+1 classes. Bins
// are coarsened when the histogram is wide, keeping the search tractable.
func multiOtsuSearch(hist stats.Histogram, k int) []int {
	counts := hist.Counts()
	n := len(counts)
	if n == 0 || k < 1 {
		return nil
	}

	const maxSearchBins = 256
	step := 1
	if n > maxSearchBins {
		step = (n + maxSearchBins - 1) / maxSearchBins
	}
	coarse := make([]uint64, 0, n/step+1)
	for i := 0; i < n; i += step {
		end := i + step
		if end > n {
			end = n
		}
		var sum uint64
		for _, c := range counts[i:end] {
			sum += c
		}
		coarse = append(coarse, sum)
	}

	var total uint64
	var grandSum float64
	for i, c := range coarse {
		total += c
		grandSum += float64(i) * float64(c)
	}
	if total == 0 {
		return nil
	}

	// Prefix sums for O(1) class weight/mean lookups.
	m := len(coarse)
	prefixW := make([]float64, m+1)
	prefixS := make([]float64, m+1)
	for i, c := range coarse {
		prefixW[i+1] = prefixW[i] + float64(c)
		prefixS[i+1] = prefixS[i] + float64(i)*float64(c)
	}
	classVar := func(lo, hi int) float64 { // half-open [lo,hi)
		w := prefixW[hi] - prefixW[lo]
		if w == 0 {
			return 0
		}
		s := prefixS[hi] - prefixS[lo]
		mean := s / w
		return w * mean * mean
	}

	best := make([]int, k)
	bestVar := -1.0
	combo := make([]int, k)

	var recurse func(pos, lowBound int)
	recurse = func(pos, lowBound int) {
		if pos == k {
			v := classVar(0, combo[0]+1)
			for j := 1; j < k; j++ {
				v += classVar(combo[j-1]+1, combo[j]+1)
			}
			v += classVar(combo[k-1]+1, m)
			if v > bestVar {
				bestVar = v
				copy(best, combo)
			}
			return
		}
		for t := lowBound; t < m-(k-pos); t++ {
			combo[pos] = t
			recurse(pos+1, t+1)
		}
	}
	recurse(0, 0)

	out := make([]int, k)
	for i, t := range best {
		out[i] = t * step
	}
	return out
}
