// Package region implements C6: top-down level-by-level steepest-ascent
// assignment of every remaining voxel to the maximum it descends from.
package region

import (
	"context"

	"github.com/aherbert/gdsc-sub001/internal/focierr"
	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/peak"
	"github.com/aherbert/gdsc-sub001/internal/stats"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// Grow assigns every non-excluded voxel with background <= value < max to
// the id of its steepest-ascent parent, producing contiguous basins
// (§4.5). hist buckets non-excluded voxel indices by value so the level
// scan can walk from the top bin down to backgroundBin without re-sorting.
func Grow(ctx context.Context, g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, hist stats.Histogram, backgroundBin int, interrupted func() bool) error {
	n := g.Voxels()
	byBin := bucketByBin(n, flags, hist, src, backgroundBin)

	for bin := len(byBin) - 1; bin >= backgroundBin; bin-- {
		select {
		case <-ctx.Done():
			return focierr.ErrCancelled
		default:
		}
		if interrupted != nil && interrupted() {
			return focierr.ErrCancelled
		}

		level := byBin[bin]
		if len(level) == 0 {
			continue
		}

		progressed := growLevel(g, src, flags, labels, level)
		if !progressed && bin > backgroundBin {
			// No voxel at this level could be assigned (a flat area with
			// no adjacent maximum yet): push it down to the next
			// non-empty level rather than leaving it stranded (§4.5).
			byBin[bin-1] = append(byBin[bin-1], remaining(flags, labels, level)...)
		}
	}
	return nil
}

func bucketByBin(n int, flags voxel.Flags, hist stats.Histogram, src voxel.Source, backgroundBin int) [][]int {
	buckets := make([][]int, hist.NumBins())
	for i := 0; i < n; i++ {
		if flags[i].Has(voxel.EXCLUDED) || flags[i].Has(voxel.MAX_AREA) {
			continue
		}
		b := hist.Bin(src.Value(i))
		if b < backgroundBin {
			continue
		}
		buckets[b] = append(buckets[b], i)
	}
	return buckets
}

func remaining(flags voxel.Flags, labels voxel.Labels, level []int) []int {
	out := level[:0]
	for _, i := range level {
		if labels[i] == 0 && !flags[i].Has(voxel.EXCLUDED) {
			out = append(out, i)
		}
	}
	return append([]int(nil), out...)
}

// growLevel makes one pass over level, assigning every voxel it can.
// Returns whether any voxel progressed.
func growLevel(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, level []int) bool {
	progressed := false
	// Multiple passes over the same level let an assignment made mid-pass
	// immediately unlock a same-height neighbour later in iteration order,
	// matching the scan-order-biased plateau assignment called out in §9
	// ("Open questions").
	for {
		changed := false
		for _, i := range level {
			if labels[i] != 0 || flags[i].Has(voxel.MAX_AREA) || flags[i].Has(voxel.EXCLUDED) {
				continue
			}
			if assignVoxel(g, src, flags, labels, i) {
				changed = true
				progressed = true
			}
		}
		if !changed {
			break
		}
	}
	return progressed
}

func assignVoxel(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, i int) bool {
	x, y, z := g.Coords(i)
	v := src.Value(i)
	interior := g.Interior(x, y, z)
	count := g.NeighbourCount()

	bestHigher := -1
	bestHigherVal := v
	bestHigherFlat := false
	bestSame := -1
	bestSameFlat := false

	for _, d := range geometry.Full26[:count] {
		if !interior && !g.Within(x, y, z, d) {
			continue
		}
		j := g.Neighbour(x, y, z, d)
		if flags[j].Has(voxel.EXCLUDED) {
			continue
		}
		nv := src.Value(j)
		switch {
		case nv > v:
			if nv > bestHigherVal || (nv == bestHigherVal && d.FlatEdge && !bestHigherFlat) {
				bestHigherVal = nv
				bestHigher = j
				bestHigherFlat = d.FlatEdge
			}
		case nv == v && flags[j].Has(voxel.MAX_AREA) && labels[j] != 0:
			if bestSame < 0 || (d.FlatEdge && !bestSameFlat) {
				bestSame = j
				bestSameFlat = d.FlatEdge
			}
		}
	}

	switch {
	case bestHigher >= 0 && flags[bestHigher].Has(voxel.MAX_AREA) && labels[bestHigher] != 0:
		labels[i] = labels[bestHigher]
		flags[i] = flags[i].Set(voxel.MAX_AREA)
		return true
	case bestHigher < 0 && bestSame >= 0:
		labels[i] = labels[bestSame]
		flags[i] = flags[i].Set(voxel.MAX_AREA)
		return true
	default:
		return false
	}
}

// Prune clears the assignment of any voxel in peak p whose value falls
// below p's search threshold (§4.5 "Search-threshold pruning").
func Prune(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, p *peak.Record, threshold float64) {
	n := g.Voxels()
	for i := 0; i < n; i++ {
		if labels[i] != p.ID {
			continue
		}
		if src.Value(i) < threshold {
			labels[i] = 0
			flags[i] = flags[i].Clear(voxel.MAX_AREA)
		}
	}
}
