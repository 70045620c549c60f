// Package maxima implements C5: locating every local maximum (including
// plateau centres) above the search threshold and seeding the label map.
package maxima

import (
	"fmt"

	"github.com/aherbert/gdsc-sub001/internal/focierr"
	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/peak"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// seed is a candidate maximum before sort/renumber.
type seed struct {
	x, y, z int
	value   float64
	order   int // insertion order, for a deterministic tiebreak
}

// Find scans src for local maxima at or above threshold and not equal
// to the image's global minimum, seeding labels/flags as it goes.
// Returns peak records with ids assigned in descending-value order
// (ties broken by insertion order), renumbered into labels. More than
// capacity seeds fails with ErrCapacityExceeded; capacity <= 0 sets no limit.
func Find(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, threshold, imageMin float64, capacity int) ([]*peak.Record, error) {
	n := g.Voxels()
	worklist := make([]int, 0, 64)
	var seeds []seed

	skip := voxel.EXCLUDED | voxel.MAX_AREA | voxel.PLATEAU | voxel.NOT_MAXIMUM

	for i := 0; i < n; i++ {
		if flags[i].Has(skip) {
			continue
		}
		v := src.Value(i)
		if v < threshold || v == imageMin {
			continue
		}

		x, y, z := g.Coords(i)
		higher, equalNeighbour := compareNeighbours(g, src, flags, x, y, z, i, v)
		if higher {
			continue
		}

		if equalNeighbour {
			centre, isMax, members := expandPlateau(g, src, flags, x, y, z, i, v, worklist[:0])
			worklist = members[:0]
			if !isMax {
				continue
			}
			provisionalID := int32(len(seeds) + 1)
			for _, m := range members {
				flags[m] = flags[m].Set(voxel.MAX_AREA)
				labels[m] = provisionalID
			}
			cx, cy, cz := g.Coords(centre)
			flags[centre] = flags[centre].Set(voxel.MAXIMUM)
			seeds = append(seeds, seed{x: cx, y: cy, z: cz, value: v, order: len(seeds)})
			if capacity > 0 && len(seeds) > capacity {
				return nil, fmt.Errorf("%w: seed count exceeded capacity %d", focierr.ErrCapacityExceeded, capacity)
			}
			continue
		}

		provisionalID := int32(len(seeds) + 1)
		flags[i] = flags[i].Set(voxel.MAXIMUM | voxel.MAX_AREA)
		labels[i] = provisionalID
		seeds = append(seeds, seed{x: x, y: y, z: z, value: v, order: len(seeds)})
		if capacity > 0 && len(seeds) > capacity {
			return nil, fmt.Errorf("%w: seed count exceeded capacity %d", focierr.ErrCapacityExceeded, capacity)
		}
	}

	sortSeeds(seeds)

	peaks := make([]*peak.Record, len(seeds))
	for idx, s := range seeds {
		id := int32(idx + 1)
		peaks[idx] = &peak.Record{ID: id, X: s.x, Y: s.y, Z: s.z, MaxValue: s.value,
			MinX: s.x, MaxX: s.x + 1, MinY: s.y, MaxY: s.y + 1, MinZ: s.z, MaxZ: s.z + 1}
	}

	remapLabels(g, labels, seeds)

	return peaks, nil
}

// compareNeighbours checks voxel i=(x,y,z) against its in-bounds
// neighbours. It returns higher=true if any neighbour strictly exceeds v
// (marking every strictly-lower neighbour NOT_MAXIMUM as a pruning
// optimisation), and equal=true if any neighbour equals v.
func compareNeighbours(g geometry.Grid, src voxel.Source, flags voxel.Flags, x, y, z, i int, v float64) (higher, equal bool) {
	interior := g.Interior(x, y, z)
	count := g.NeighbourCount()
	for _, d := range geometry.Full26[:count] {
		if !interior && !g.Within(x, y, z, d) {
			continue
		}
		j := g.Neighbour(x, y, z, d)
		nv := src.Value(j)
		switch {
		case nv > v:
			higher = true
		case nv == v:
			equal = true
		default:
			flags[j] = flags[j].Set(voxel.NOT_MAXIMUM)
		}
	}
	return
}

// expandPlateau runs a BFS over the connected equal-valued component
// containing seed index i0, returning the representative centre voxel,
// whether the plateau is a genuine maximum, and the list of member
// indices (every one of which receives MAX_AREA and the assigned label
// once isMax is known).
func expandPlateau(g geometry.Grid, src voxel.Source, flags voxel.Flags, x0, y0, z0, i0 int, v float64, scratch []int) (centre int, isMax bool, members []int) {
	members = append(scratch, i0)
	flags[i0] = flags[i0].Set(voxel.LISTED | voxel.PLATEAU)
	isMax = true

	var sumX, sumY, sumZ float64

	for head := 0; head < len(members); head++ {
		i := members[head]
		x, y, z := g.Coords(i)
		sumX += float64(x)
		sumY += float64(y)
		sumZ += float64(z)

		interior := g.Interior(x, y, z)
		count := g.NeighbourCount()
		for _, d := range geometry.Full26[:count] {
			if !interior && !g.Within(x, y, z, d) {
				continue
			}
			j := g.Neighbour(x, y, z, d)
			if flags[j].Has(voxel.LISTED) {
				continue
			}
			nv := src.Value(j)
			if nv > v {
				isMax = false
				continue
			}
			if nv == v {
				flags[j] = flags[j].Set(voxel.LISTED | voxel.PLATEAU)
				members = append(members, j)
			}
		}
	}

	// Clear the scratch LISTED bit; PLATEAU stays.
	for _, i := range members {
		flags[i] = flags[i].Clear(voxel.LISTED)
	}

	if !isMax {
		for _, i := range members {
			flags[i] = flags[i].Set(voxel.NOT_MAXIMUM)
		}
		return 0, false, members
	}

	centroidX := sumX / float64(len(members))
	centroidY := sumY / float64(len(members))
	centroidZ := sumZ / float64(len(members))

	best := members[0]
	bestDist := -1.0
	for _, i := range members {
		x, y, z := g.Coords(i)
		dx, dy, dz := float64(x)-centroidX, float64(y)-centroidY, float64(z)-centroidZ
		dist := dx*dx + dy*dy + dz*dz
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	return best, true, members
}

func sortSeeds(seeds []seed) {
	// Stable descending-value sort with insertion-order tiebreak (§4.4,
	// §8 "deterministic sort tiebreak").
	for i := 1; i < len(seeds); i++ {
		for j := i; j > 0 && less(seeds[j], seeds[j-1]); j-- {
			seeds[j], seeds[j-1] = seeds[j-1], seeds[j]
		}
	}
}

func less(a, b seed) bool {
	if a.value != b.value {
		return a.value > b.value
	}
	return a.order < b.order
}

func remapLabels(g geometry.Grid, labels voxel.Labels, seeds []seed) {
	// Re-derive plateau membership is unnecessary: plateau voxels were
	// already tagged MAX_AREA|PLATEAU with a provisional label equal to
	// their insertion order+1 in the caller; here we just remap provisional
	// ids (by seed.order) to final ids (by sorted position).
	remap := make([]int32, len(seeds)+1)
	for finalIdx, s := range seeds {
		remap[s.order+1] = int32(finalIdx + 1)
	}
	for i := range labels {
		if labels[i] > 0 && int(labels[i]) < len(remap) {
			labels[i] = remap[labels[i]]
		}
	}
}
