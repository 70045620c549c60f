// Package merge implements C9: the three-pass peak merger (height, size,
// size-above-saddle) plus optional edge removal, all driven through the
// peakIdMap indirection described in §9 ("Cyclic object graph").
package merge

import (
	"sort"

	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/peak"
	"github.com/aherbert/gdsc-sub001/internal/stats"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// Merger owns the peak records and the id->surviving-id map mutated by
// each pass. A record's own id never changes; peakIdMap[id] == id means
// the peak is still alive under its own id, 0 means removed.
type Merger struct {
	byID      map[int32]*peak.Record
	peakIdMap map[int32]int32
	order     []int32 // original id order, stable across passes
}

// New builds a Merger over peaks, seeded with an identity peakIdMap.
func New(peaks []*peak.Record) *Merger {
	m := &Merger{
		byID:      make(map[int32]*peak.Record, len(peaks)),
		peakIdMap: make(map[int32]int32, len(peaks)),
		order:     make([]int32, len(peaks)),
	}
	for i, p := range peaks {
		m.byID[p.ID] = p
		m.peakIdMap[p.ID] = p.ID
		m.order[i] = p.ID
	}
	return m
}

// PeakIDMap exposes the current id remap, e.g. for the caller to apply to
// the label map between passes.
func (m *Merger) PeakIDMap() map[int32]int32 { return m.peakIdMap }

// Alive peaks still present under their own id.
func (m *Merger) alivePeaks() []*peak.Record {
	out := make([]*peak.Record, 0, len(m.order))
	for _, id := range m.order {
		if m.peakIdMap[id] == id && m.byID[id].Alive() {
			out = append(out, m.byID[id])
		}
	}
	return out
}

// RunHeightPass is Pass H (§4.9): peaks processed in ascending
// HighestSaddleValue order; a peak merges when v_max - peakBase < h_p.
func (m *Merger) RunHeightPass(method stats.PeakHeightMethod, param, background float64, integer bool) {
	if param <= 0 {
		return
	}
	peaks := m.alivePeaks()
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].HighestSaddleValue < peaks[j].HighestSaddleValue })

	for _, p := range peaks {
		if !p.Alive() || m.peakIdMap[p.ID] != p.ID {
			continue
		}
		peakBase := background
		hasNeighbour := p.SaddleNeighbourID != 0 && m.survives(p.SaddleNeighbourID)
		if hasNeighbour {
			peakBase = p.HighestSaddleValue
		}
		h := stats.PeakHeight(method, param, background, p.MaxValue, integer)
		if p.MaxValue-peakBase < h {
			m.mergeAway(p, false)
		}
	}
}

// RunSizePass is Pass S: peaks processed in ascending Count order.
func (m *Merger) RunSizePass(minSize int64) {
	peaks := m.alivePeaks()
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Count < peaks[j].Count })
	for _, p := range peaks {
		if !p.Alive() || m.peakIdMap[p.ID] != p.ID {
			continue
		}
		if p.Count < minSize {
			m.mergeAway(p, false)
		}
	}
}

// RunAboveSaddlePass is Pass A (optional): countAboveSaddle is recounted
// first (contiguous or not), then peaks merge in ascending
// CountAboveSaddle order.
func (m *Merger) RunAboveSaddlePass(g geometry.Grid, src voxel.Source, flags voxel.Flags, labels voxel.Labels, minSize int64, contiguous bool) {
	m.Apply(labels)
	peak.AboveSaddleTotals(g, src, flags, labels, m.byID, contiguous)

	peaks := m.alivePeaks()
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].CountAboveSaddle < peaks[j].CountAboveSaddle })
	for _, p := range peaks {
		if !p.Alive() || m.peakIdMap[p.ID] != p.ID {
			continue
		}
		if p.CountAboveSaddle < minSize {
			m.mergeAway(p, true)
		}
	}
}

// RemoveEdge kills every alive peak whose bounding box touches the image
// boundary (§4.9 "Edge removal"), without transferring its voxels to a
// neighbour.
func (m *Merger) RemoveEdge(w, h, d int) {
	for _, p := range m.alivePeaks() {
		if p.TouchesBounds(w, h, d) {
			p.Kill()
			m.peakIdMap[p.ID] = 0
		}
	}
}

func (m *Merger) survives(id int32) bool {
	return m.peakIdMap[id] == id && m.byID[id].Alive()
}

// mergeAway merges peak p into its highest saddle neighbour, or removes
// it outright if it has none (§4.9 "Merge operation").
func (m *Merger) mergeAway(p *peak.Record, updateBBox bool) {
	var q *peak.Record
	if p.SaddleNeighbourID != 0 {
		if cur := m.peakIdMap[p.SaddleNeighbourID]; cur != 0 {
			if candidate, ok := m.byID[cur]; ok && candidate.Alive() {
				q = candidate
			}
		}
	}

	if q == nil {
		m.peakIdMap[p.ID] = 0
		p.Kill()
		return
	}

	q.Count += p.Count
	q.TotalIntensity += p.TotalIntensity
	if q.Count > 0 {
		q.AverageIntensity = q.TotalIntensity / float64(q.Count)
	}
	if updateBBox {
		q.ExpandBounds(p.MinX, p.MinY, p.MinZ)
		q.ExpandBounds(p.MaxX-1, p.MaxY-1, p.MaxZ-1)
	}
	if p.MaxValue > q.MaxValue {
		q.MaxValue = p.MaxValue
		q.X, q.Y, q.Z = p.X, p.Y, p.Z
	}

	spliceSaddles(p, q, m.peakIdMap)

	for _, id := range m.order {
		if m.peakIdMap[id] == p.ID {
			m.peakIdMap[id] = q.ID
		}
	}
	m.peakIdMap[p.ID] = q.ID
	p.Kill()

	if len(q.Saddles) == 0 {
		q.HighestSaddleValue = peak.NoSaddleFor(0)
		q.SaddleNeighbourID = 0
		q.CountAboveSaddle = q.Count
		q.IntensityAboveSaddle = q.TotalIntensity
	} else {
		q.HighestSaddleValue = q.Saddles[0].Value
		q.SaddleNeighbourID = q.Saddles[0].NeighbourID
	}
}

// spliceSaddles implements §4.9 step 2: drop mutual references between p
// and q, merge the rest (keeping the max value on neighbourid ties),
// remap through peakIdMap, then resort and collapse.
func spliceSaddles(p, q *peak.Record, peakIdMap map[int32]int32) {
	merged := make(map[int32]float64, len(p.Saddles)+len(q.Saddles))
	for _, s := range q.Saddles {
		if s.NeighbourID == p.ID {
			continue
		}
		merged[s.NeighbourID] = s.Value
	}
	for _, s := range p.Saddles {
		if s.NeighbourID == q.ID {
			continue
		}
		if cur, ok := merged[s.NeighbourID]; !ok || s.Value > cur {
			merged[s.NeighbourID] = s.Value
		}
	}

	remapped := make(map[int32]float64, len(merged))
	for id, v := range merged {
		target := peakIdMap[id]
		if target == 0 || target == q.ID {
			continue
		}
		if cur, ok := remapped[target]; !ok || v > cur {
			remapped[target] = v
		}
	}

	q.Saddles = q.Saddles[:0]
	for id, v := range remapped {
		q.Saddles = append(q.Saddles, peak.Saddle{NeighbourID: id, Value: v})
	}
	sort.Slice(q.Saddles, func(i, j int) bool {
		if q.Saddles[i].Value != q.Saddles[j].Value {
			return q.Saddles[i].Value > q.Saddles[j].Value
		}
		return q.Saddles[i].NeighbourID < q.Saddles[j].NeighbourID
	})
}

// Apply rewrites labels through the current peakIdMap; a peak mapped to
// 0 clears its voxels' labels.
func (m *Merger) Apply(labels voxel.Labels) {
	for i, id := range labels {
		if id == 0 {
			continue
		}
		target := m.peakIdMap[id]
		if target != id {
			labels[i] = target
		}
	}
}

// Finalize sorts surviving peaks by TotalIntensity descending, drops dead
// peaks, applies peakIdMap to labels, and rewrites SaddleNeighbourID
// through the map (self-references collapse to 0). It does not renumber
// ids to 1..N; that is the result builder's job (C10), run after sorting.
func (m *Merger) Finalize(labels voxel.Labels) []*peak.Record {
	m.Apply(labels)

	survivors := m.alivePeaks()
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].TotalIntensity > survivors[j].TotalIntensity
	})

	for _, p := range survivors {
		if p.SaddleNeighbourID == 0 {
			continue
		}
		target := m.peakIdMap[p.SaddleNeighbourID]
		if target == p.ID {
			target = 0
		}
		p.SaddleNeighbourID = target
	}
	return survivors
}
