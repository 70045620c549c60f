// Package saddle implements C7: for every ordered pair of adjacent
// regions, the highest saddle value separating them.
package saddle

import (
	"sort"

	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/peak"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// Build walks the half-neighbour table once to flag boundary voxels, then
// restricts the expensive full-neighbourhood scan to each peak's
// bounding box, installing the resulting saddle lists into peaks (§4.7).
func Build(g geometry.Grid, labels voxel.Labels, flags voxel.Flags, peaks []*peak.Record, background float64, imageFn func(i int) float64) {
	byID := make(map[int32]*peak.Record, len(peaks))
	for _, p := range peaks {
		byID[p.ID] = p
		p.Saddles = p.Saddles[:0]
	}

	n := g.Voxels()
	flagBoundaries(g, labels, flags, n)

	type box struct{ minX, maxX, minY, maxY, minZ, maxZ int }
	boxes := make(map[int32]*box, len(peaks))
	for i := 0; i < n; i++ {
		if !flags[i].Has(voxel.SADDLE_SEARCH) {
			continue
		}
		id := labels[i]
		if id == 0 {
			continue
		}
		x, y, z := g.Coords(i)
		b, ok := boxes[id]
		if !ok {
			b = &box{x, x, y, y, z, z}
			boxes[id] = b
		}
		if x < b.minX {
			b.minX = x
		}
		if x > b.maxX {
			b.maxX = x
		}
		if y < b.minY {
			b.minY = y
		}
		if y > b.maxY {
			b.maxY = y
		}
		if z < b.minZ {
			b.minZ = z
		}
		if z > b.maxZ {
			b.maxZ = z
		}
	}

	highest := make(map[int32]map[int32]float64, len(peaks))

	for id, b := range boxes {
		hs := highest[id]
		if hs == nil {
			hs = make(map[int32]float64)
			highest[id] = hs
		}
		for z := b.minZ; z <= b.maxZ; z++ {
			for y := b.minY; y <= b.maxY; y++ {
				for x := b.minX; x <= b.maxX; x++ {
					i := g.Index(x, y, z)
					if labels[i] != id || !flags[i].Has(voxel.SADDLE_SEARCH) {
						continue
					}
					vi := imageFn(i)
					interior := g.Interior(x, y, z)
					count := g.NeighbourCount()
					for _, d := range geometry.Full26[:count] {
						if !interior && !g.Within(x, y, z, d) {
							continue
						}
						j := g.Neighbour(x, y, z, d)
						qid := labels[j]
						if qid == 0 || qid == id {
							continue
						}
						vj := imageFn(j)
						m := vi
						if vj < m {
							m = vj
						}
						if cur, ok := hs[qid]; !ok || m > cur {
							hs[qid] = m
						}
					}
				}
			}
		}
	}

	for id, hs := range highest {
		p, ok := byID[id]
		if !ok {
			continue
		}
		for qid, v := range hs {
			p.Saddles = append(p.Saddles, peak.Saddle{NeighbourID: qid, Value: v})
		}
	}

	for _, p := range peaks {
		sortAndInstall(p, background)
	}
}

// flagBoundaries marks SADDLE_SEARCH on both sides of every boundary
// between two distinctly-labelled, non-excluded voxels, walking the
// 13-entry half-neighbour table so each unordered pair is visited once.
func flagBoundaries(g geometry.Grid, labels voxel.Labels, flags voxel.Flags, n int) {
	for i := 0; i < n; i++ {
		if labels[i] == 0 {
			continue
		}
		x, y, z := g.Coords(i)
		interior := g.Interior(x, y, z)
		for _, d := range geometry.Half13 {
			if !interior && !g.Within(x, y, z, d) {
				continue
			}
			j := g.Neighbour(x, y, z, d)
			if labels[j] == 0 || labels[j] == labels[i] {
				continue
			}
			flags[i] = flags[i].Set(voxel.SADDLE_SEARCH)
			flags[j] = flags[j].Set(voxel.SADDLE_SEARCH)
		}
	}
}

func sortAndInstall(p *peak.Record, background float64) {
	sort.Slice(p.Saddles, func(i, j int) bool {
		if p.Saddles[i].Value != p.Saddles[j].Value {
			return p.Saddles[i].Value > p.Saddles[j].Value
		}
		return p.Saddles[i].NeighbourID < p.Saddles[j].NeighbourID
	})
	if len(p.Saddles) == 0 {
		p.HighestSaddleValue = peak.NoSaddleFor(background)
		p.SaddleNeighbourID = 0
		return
	}
	p.HighestSaddleValue = p.Saddles[0].Value
	p.SaddleNeighbourID = p.Saddles[0].NeighbourID
}
