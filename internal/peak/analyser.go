package peak

import (
	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// InitialTotals computes Count and TotalIntensity for every peak in one
// linear pass over the label map (§4.8 "Initial totals").
func InitialTotals(g geometry.Grid, labels voxel.Labels, src voxel.Source, byID map[int32]*Record) {
	n := g.Voxels()
	for i := 0; i < n; i++ {
		id := labels[i]
		if id == 0 {
			continue
		}
		p, ok := byID[id]
		if !ok {
			continue
		}
		p.Count++
		p.TotalIntensity += src.Value(i)
	}
	for _, p := range byID {
		if p.Count > 0 {
			p.AverageIntensity = p.TotalIntensity / float64(p.Count)
		}
	}
}

// AboveSaddleTotals recomputes CountAboveSaddle/IntensityAboveSaddle for
// every peak (§4.8 "Above-saddle totals"). In non-contiguous mode this is
// a single linear pass counting voxels above the peak's highest saddle;
// in contiguous mode it flood-fills from the peak's maximum, so a voxel
// cut off from the maximum by a lower-valued moat does not count even if
// its raw value exceeds the saddle.
func AboveSaddleTotals(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, byID map[int32]*Record, contiguous bool) {
	for _, p := range byID {
		p.CountAboveSaddle = 0
		p.IntensityAboveSaddle = 0
	}

	if !contiguous {
		n := g.Voxels()
		for i := 0; i < n; i++ {
			id := labels[i]
			if id == 0 {
				continue
			}
			p, ok := byID[id]
			if !ok {
				continue
			}
			v := src.Value(i)
			if v > p.HighestSaddleValue {
				p.CountAboveSaddle++
				p.IntensityAboveSaddle += v
			}
		}
		return
	}

	worklist := make([]int, 0, 64)
	for _, p := range byID {
		start := g.Index(p.X, p.Y, p.Z)
		if labels[start] != p.ID {
			continue
		}
		worklist = worklist[:0]
		worklist = append(worklist, start)
		flags[start] = flags[start].Set(voxel.LISTED)
		for head := 0; head < len(worklist); head++ {
			i := worklist[head]
			v := src.Value(i)
			if v > p.HighestSaddleValue {
				p.CountAboveSaddle++
				p.IntensityAboveSaddle += v
			}
			x, y, z := g.Coords(i)
			interior := g.Interior(x, y, z)
			count := g.NeighbourCount()
			for _, d := range geometry.Full26[:count] {
				if !interior && !g.Within(x, y, z, d) {
					continue
				}
				j := g.Neighbour(x, y, z, d)
				if flags[j].Has(voxel.LISTED) || labels[j] != p.ID {
					continue
				}
				if src.Value(j) <= p.HighestSaddleValue {
					continue
				}
				flags[j] = flags[j].Set(voxel.LISTED)
				worklist = append(worklist, j)
			}
		}
		for _, i := range worklist {
			flags[i] = flags[i].Clear(voxel.LISTED)
		}
	}
}

// IntensityBaselines sums (v-background)+ and (v-imageMinimum)+ across
// every non-excluded voxel of the final result set (§4.8 "Intensity-above
// baselines").
func IntensityBaselines(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, byID map[int32]*Record, background, imageMinimum float64) {
	n := g.Voxels()
	for i := 0; i < n; i++ {
		if flags[i].Has(voxel.EXCLUDED) {
			continue
		}
		id := labels[i]
		if id == 0 {
			continue
		}
		p, ok := byID[id]
		if !ok {
			continue
		}
		v := src.Value(i)
		if v > background {
			p.IntensityAboveBackground += v - background
		}
		if v > imageMinimum {
			p.IntensityAboveImageMinimum += v - imageMinimum
		}
	}
}
