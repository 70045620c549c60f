// Package result implements C10: centroid refinement, final derived
// fields, sorting, trim/renumber, and optional labelled-volume
// rasterization.
package result

import (
	"fmt"
	"math"
	"sort"

	"github.com/aherbert/gdsc-sub001/internal/collab"
	"github.com/aherbert/gdsc-sub001/internal/focierr"
	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/peak"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// CentroidMethod selects how a peak's reported centre is refined (§4.10).
type CentroidMethod int

const (
	CentroidMaxValue CentroidMethod = iota
	CentroidCentreOfMass
	CentroidGaussianFit
)

// SortKey selects the composite key peaks are ordered by (§4.10).
type SortKey int

const (
	SortIntensity SortKey = iota
	SortIntensityAboveBackground
	SortCount
	SortMaxValue
	SortAverageIntensity
	SortSaddleHeight
	SortCountAboveSaddle
	SortIntensityAboveSaddle
	SortAbsoluteHeight
	SortRelativeHeight
	SortXYZ
	SortPeakID
)

// maxLabelCapacity is the hard refusal threshold of §4.10: a labelled
// volume cannot address more than 65535 distinct peak ids.
const maxLabelCapacity = 65535

// RefineCentroids applies the configured centroid method to every peak,
// operating on src (the blurred or original buffer per the caller's
// choice) and, for GAUSSIAN_FIT, the projector collaborator.
func RefineCentroids(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, peaks []*peak.Record, method CentroidMethod, comRadius float64, gaussian collab.GaussianFitStrategy, projectionUsesMean bool) {
	for _, p := range peaks {
		switch method {
		case CentroidCentreOfMass:
			refineCentreOfMass(g, src, flags, labels, p, comRadius)
		case CentroidGaussianFit:
			if !refineGaussianFit(g, src, labels, p, gaussian, projectionUsesMean) {
				refineMaxValue(g, src, flags, labels, p)
			}
		default:
			refineMaxValue(g, src, flags, labels, p)
		}
	}
}

// refineMaxValue relocates the reported centre to the highest voxel of
// the peak's above-saddle subset, breaking ties by proximity to the
// subset's geometric mean.
func refineMaxValue(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, p *peak.Record) {
	var best []int
	bestVal := math.Inf(-1)
	var sumX, sumY, sumZ float64
	count := 0

	for z := p.MinZ; z < p.MaxZ; z++ {
		for y := p.MinY; y < p.MaxY; y++ {
			for x := p.MinX; x < p.MaxX; x++ {
				i := g.Index(x, y, z)
				if labels[i] != p.ID {
					continue
				}
				v := src.Value(i)
				if v <= p.HighestSaddleValue {
					continue
				}
				sumX += float64(x)
				sumY += float64(y)
				sumZ += float64(z)
				count++
				switch {
				case v > bestVal:
					bestVal = v
					best = best[:0]
					best = append(best, i)
				case v == bestVal:
					best = append(best, i)
				}
			}
		}
	}
	if len(best) == 0 {
		return
	}
	if len(best) == 1 || count == 0 {
		p.X, p.Y, p.Z = g.Coords(best[0])
		return
	}
	meanX, meanY, meanZ := sumX/float64(count), sumY/float64(count), sumZ/float64(count)
	chosen := best[0]
	chosenDist := math.Inf(1)
	for _, i := range best {
		x, y, z := g.Coords(i)
		dx, dy, dz := float64(x)-meanX, float64(y)-meanY, float64(z)-meanZ
		d := dx*dx + dy*dy + dz*dz
		if d < chosenDist {
			chosenDist = d
			chosen = i
		}
	}
	p.X, p.Y, p.Z = g.Coords(chosen)
}

// refineCentreOfMass iterates a centre-of-mass computation in a box of
// radius r around the peak's current centre, up to 10 iterations or
// until the squared shift is <= 1.
func refineCentreOfMass(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, p *peak.Record, r float64) {
	if r <= 0 {
		return
	}
	ir := int(r)
	cx, cy, cz := float64(p.X), float64(p.Y), float64(p.Z)

	for iter := 0; iter < 10; iter++ {
		minX, maxX := clampInt(int(cx)-ir, 0, g.Width-1), clampInt(int(cx)+ir, 0, g.Width-1)
		minY, maxY := clampInt(int(cy)-ir, 0, g.Height-1), clampInt(int(cy)+ir, 0, g.Height-1)
		minZ, maxZ := clampInt(int(cz)-ir, 0, g.Depth-1), clampInt(int(cz)+ir, 0, g.Depth-1)

		var sumX, sumY, sumZ, sumW float64
		for z := minZ; z <= maxZ; z++ {
			for y := minY; y <= maxY; y++ {
				for x := minX; x <= maxX; x++ {
					i := g.Index(x, y, z)
					if flags[i].Has(voxel.EXCLUDED) || labels[i] != p.ID {
						continue
					}
					v := src.Value(i)
					sumX += float64(x) * v
					sumY += float64(y) * v
					sumZ += float64(z) * v
					sumW += v
				}
			}
		}
		if sumW == 0 {
			break
		}
		nx, ny, nz := sumX/sumW, sumY/sumW, sumZ/sumW
		shift := (nx-cx)*(nx-cx) + (ny-cy)*(ny-cy) + (nz-cz)*(nz-cz)
		cx, cy, cz = nx, ny, nz
		if shift <= 1 {
			break
		}
	}
	p.X, p.Y, p.Z = int(math.Round(cx)), int(math.Round(cy)), int(math.Round(cz))
}

// refineGaussianFit projects the peak's region (average or maximum
// intensity, per projectionUsesMean) onto a single z-plane and delegates
// to the injected Gaussian-fit collaborator; z is set by a centre-of-mass
// pass along z alone.
func refineGaussianFit(g geometry.Grid, src voxel.Source, labels voxel.Labels, p *peak.Record, fit collab.GaussianFitStrategy, projectionUsesMean bool) bool {
	if fit == nil {
		return false
	}
	w, h := p.MaxX-p.MinX, p.MaxY-p.MinY
	if w <= 0 || h <= 0 {
		return false
	}
	projection := make([]float64, w*h)
	counts := make([]int, w*h)

	for z := p.MinZ; z < p.MaxZ; z++ {
		for y := p.MinY; y < p.MaxY; y++ {
			for x := p.MinX; x < p.MaxX; x++ {
				i := g.Index(x, y, z)
				if labels[i] != p.ID {
					continue
				}
				pi := (y-p.MinY)*w + (x - p.MinX)
				v := src.Value(i)
				if projectionUsesMean {
					projection[pi] += v
					counts[pi]++
				} else if v > projection[pi] {
					projection[pi] = v
				}
			}
		}
	}
	if projectionUsesMean {
		for i, c := range counts {
			if c > 0 {
				projection[i] /= float64(c)
			}
		}
	}

	cx, cy, ok := fit.Fit(projection, w, h)
	if !ok {
		return false
	}

	var sumZ, sumW float64
	for z := p.MinZ; z < p.MaxZ; z++ {
		for y := p.MinY; y < p.MaxY; y++ {
			for x := p.MinX; x < p.MaxX; x++ {
				i := g.Index(x, y, z)
				if labels[i] != p.ID {
					continue
				}
				v := src.Value(i)
				sumZ += float64(z) * v
				sumW += v
			}
		}
	}
	zc := p.Z
	if sumW > 0 {
		zc = int(math.Round(sumZ / sumW))
	}

	p.X = p.MinX + int(math.Round(cx))
	p.Y = p.MinY + int(math.Round(cy))
	p.Z = zc
	return true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FinalizeFields sets each peak's IntensityAboveBackground to
// totalIntensity - background*count, replacing the clipped sum left by
// peak.IntensityBaselines. IntensityAboveImageMinimum keeps that baseline
// sum, and no average of either total is computed.
func FinalizeFields(peaks []*peak.Record, background float64) {
	for _, p := range peaks {
		p.IntensityAboveBackground = p.TotalIntensity - background*float64(p.Count)
	}
}

// Sort orders peaks descending by the configured key, with the
// deterministic tiebreak (maxValue desc, count desc, x asc, y asc, z asc).
func Sort(peaks []*peak.Record, key SortKey, background float64) {
	keyOf := func(p *peak.Record) float64 {
		switch key {
		case SortIntensityAboveBackground:
			return p.IntensityAboveBackground
		case SortCount:
			return float64(p.Count)
		case SortMaxValue:
			return p.MaxValue
		case SortAverageIntensity:
			return p.AverageIntensity
		case SortSaddleHeight:
			return p.HighestSaddleValue
		case SortCountAboveSaddle:
			return float64(p.CountAboveSaddle)
		case SortIntensityAboveSaddle:
			return p.IntensityAboveSaddle
		case SortAbsoluteHeight:
			return p.MaxValue - p.HighestSaddleValue
		case SortRelativeHeight:
			if p.MaxValue == 0 {
				return 0
			}
			return (p.MaxValue - p.HighestSaddleValue) / p.MaxValue
		case SortXYZ:
			return -float64(p.Z)*1e12 - float64(p.Y)*1e6 - float64(p.X)
		case SortPeakID:
			return -float64(p.ID)
		default:
			return p.TotalIntensity
		}
	}

	cached := make(map[int32]float64, len(peaks))
	for _, p := range peaks {
		cached[p.ID] = keyOf(p)
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		a, b := peaks[i], peaks[j]
		if ka, kb := cached[a.ID], cached[b.ID]; ka != kb {
			return ka > kb
		}
		if a.MaxValue != b.MaxValue {
			return a.MaxValue > b.MaxValue
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
}

// TrimAndRenumber keeps the top maxPeaks entries (0 means unlimited),
// renumbers survivors 1..N in sorted order, and rewrites SaddleNeighbourID
// through the renumber map (a neighbour that fell outside the trim
// becomes 0).
func TrimAndRenumber(peaks []*peak.Record, maxPeaks int) []*peak.Record {
	if maxPeaks > 0 && len(peaks) > maxPeaks {
		peaks = peaks[:maxPeaks]
	}
	renumber := make(map[int32]int32, len(peaks))
	for i, p := range peaks {
		renumber[p.ID] = int32(i + 1)
	}
	for i, p := range peaks {
		p.ID = int32(i + 1)
		if target, ok := renumber[p.SaddleNeighbourID]; ok {
			p.SaddleNeighbourID = target
		} else {
			p.SaddleNeighbourID = 0
		}
	}
	return peaks
}

// RelabelSurvivors rewrites labels to match the trimmed/renumbered peak
// set, clearing any voxel whose peak did not survive the trim.
func RelabelSurvivors(labels voxel.Labels, oldToNew map[int32]int32) {
	for i, id := range labels {
		if id == 0 {
			continue
		}
		if target, ok := oldToNew[id]; ok {
			labels[i] = target
		} else {
			labels[i] = 0
		}
	}
}

// RasterMode selects how a peak's footprint is painted into the output
// volume (§4.10).
type RasterMode int

const (
	RasterAboveSaddle RasterMode = iota
	RasterFractionOfIntensity
	RasterFractionOfHeight
	RasterThresholded
)

// RasterOptions configures mask rasterization.
type RasterOptions struct {
	Mode          RasterMode
	FractionParam float64
	MarkMaximum   bool
	MaximumValue  int
	RenderBorders bool
	ThresholdFn   func(peakID int32, voxel int) bool
}

// Volume is a rasterized labelled output: 8-bit when peak count <= 255,
// else 16-bit.
type Volume struct {
	Wide8  []uint8
	Wide16 []uint16
	Bits   int
}

// Rasterize paints a labelled volume from the final peak set per opts.
// Refuses with ErrTooManyPeaks above 65535 distinct ids.
func Rasterize(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, peaks []*peak.Record, opts RasterOptions) (Volume, error) {
	if len(peaks) > maxLabelCapacity {
		return Volume{}, fmt.Errorf("%w: %d peaks exceeds capacity %d", focierr.ErrTooManyPeaks, len(peaks), maxLabelCapacity)
	}

	n := g.Voxels()
	bits := 8
	if len(peaks) > 255 {
		bits = 16
	}
	out := Volume{Bits: bits}
	if bits == 8 {
		out.Wide8 = make([]uint8, n)
	} else {
		out.Wide16 = make([]uint16, n)
	}

	byID := make(map[int32]*peak.Record, len(peaks))
	for _, p := range peaks {
		byID[p.ID] = p
	}

	var fracThresholds map[int32]float64
	if opts.Mode == RasterFractionOfIntensity {
		fracThresholds = fractionOfIntensityThresholds(n, labels, src, peaks, opts.FractionParam)
	}

	paint := func(i int, v int32) {
		if bits == 8 {
			out.Wide8[i] = uint8(v)
		} else {
			out.Wide16[i] = uint16(v)
		}
	}

	for i := 0; i < n; i++ {
		id := labels[i]
		if id == 0 {
			continue
		}
		p, ok := byID[id]
		if !ok {
			continue
		}
		if !includeVoxel(i, src, p, opts, fracThresholds) {
			continue
		}
		paint(i, id)
	}

	if opts.MarkMaximum {
		for _, p := range peaks {
			paint(g.Index(p.X, p.Y, p.Z), int32(opts.MaximumValue))
		}
	}

	if opts.RenderBorders {
		renderBorders(g, labels, out)
	}

	return out, nil
}

func includeVoxel(i int, src voxel.Source, p *peak.Record, opts RasterOptions, fracThresholds map[int32]float64) bool {
	v := src.Value(i)
	switch opts.Mode {
	case RasterFractionOfIntensity:
		return v >= fracThresholds[p.ID]
	case RasterFractionOfHeight:
		return v > p.HighestSaddleValue+opts.FractionParam*(p.MaxValue-p.HighestSaddleValue)
	case RasterThresholded:
		if opts.ThresholdFn == nil {
			return true
		}
		return opts.ThresholdFn(p.ID, i)
	default:
		return v > p.HighestSaddleValue
	}
}

// fractionOfIntensityThresholds finds, for each peak, the dimmest voxel
// value still inside the brightest opts.FractionParam share of that peak's
// total assigned intensity: voxels are ranked brightest first and the
// running sum is accumulated until it reaches fraction*total. A peak with
// no assigned voxels falls back to its MaxValue, so it paints nothing.
func fractionOfIntensityThresholds(n int, labels voxel.Labels, src voxel.Source, peaks []*peak.Record, fraction float64) map[int32]float64 {
	values := make(map[int32][]float64, len(peaks))
	for i := 0; i < n; i++ {
		id := labels[i]
		if id == 0 {
			continue
		}
		values[id] = append(values[id], src.Value(i))
	}

	thresholds := make(map[int32]float64, len(peaks))
	for _, p := range peaks {
		vs := values[p.ID]
		if len(vs) == 0 {
			thresholds[p.ID] = p.MaxValue
			continue
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(vs)))
		total := 0.0
		for _, v := range vs {
			total += v
		}
		target := fraction * total
		cum := 0.0
		threshold := vs[len(vs)-1]
		for _, v := range vs {
			cum += v
			threshold = v
			if cum >= target {
				break
			}
		}
		thresholds[p.ID] = threshold
	}
	return thresholds
}

// renderBorders strips diagonal-only "extra corner" boundary pixels and
// single-cell radii from the painted volume, walking the half-neighbour
// table once per voxel.
func renderBorders(g geometry.Grid, labels voxel.Labels, out Volume) {
	n := g.Voxels()
	erase := func(i int) {
		if out.Bits == 8 {
			out.Wide8[i] = 0
		} else {
			out.Wide16[i] = 0
		}
	}
	painted := func(i int) bool {
		if out.Bits == 8 {
			return out.Wide8[i] != 0
		}
		return out.Wide16[i] != 0
	}

	for i := 0; i < n; i++ {
		if !painted(i) {
			continue
		}
		x, y, z := g.Coords(i)
		interior := g.Interior(x, y, z)
		flatNeighbours := 0
		for _, d := range geometry.Half13 {
			if !d.FlatEdge {
				continue
			}
			if !interior && !g.Within(x, y, z, d) {
				continue
			}
			j := g.Neighbour(x, y, z, d)
			if labels[j] == labels[i] {
				flatNeighbours++
			}
		}
		if flatNeighbours == 0 {
			erase(i)
		}
	}
}
