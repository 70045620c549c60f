// Package peak holds the peak record (§3), its saddle list, and the
// sentinel-based removal convention used by the merger (C9).
package peak

import "math"

// Dead is the sentinel TotalIntensity assigned to a merged-away peak
// (§9 "Sentinel-based removal"). Finalisation filters on this value.
var Dead = math.Inf(-1)

// NoSaddleValue is the highest-saddle value reported for a peak with no
// neighbour (§3). It is 0 when the background is non-negative, else -Inf;
// NoSaddleFor below resolves it against the actual background.
const NoSaddleValue = 0.0

// Saddle is one entry of a peak's saddle list: the highest value at which
// this peak touches neighbour NeighbourID (§3, §4.7).
type Saddle struct {
	NeighbourID int32
	Value       float64
}

// Record is one peak (§3). Bounding box is half-open on the upper bound.
type Record struct {
	ID       int32
	X, Y, Z  int
	MaxValue float64

	Count          int64
	TotalIntensity float64
	AverageIntensity float64

	HighestSaddleValue float64
	SaddleNeighbourID  int32
	CountAboveSaddle   int64
	IntensityAboveSaddle float64

	MinX, MaxX, MinY, MaxY, MinZ, MaxZ int

	IntensityAboveBackground    float64
	IntensityAboveImageMinimum float64

	// Saddles is sorted primarily by Value descending, then NeighbourID
	// ascending (§3); Saddles[0] is the highest saddle.
	Saddles []Saddle
}

// Alive reports whether the peak has not been merged away.
func (r *Record) Alive() bool { return r.TotalIntensity != Dead }

// Kill marks the peak as merged away (§9 sentinel-based removal).
func (r *Record) Kill() { r.TotalIntensity = Dead }

// NoSaddleFor resolves NO_SADDLE_VALUE against a background threshold:
// 0 when background >= 0, else -Inf (§3).
func NoSaddleFor(background float64) float64 {
	if background >= 0 {
		return 0
	}
	return math.Inf(-1)
}

// ExpandBounds grows the bounding box to include (x,y,z), using a
// half-open upper bound.
func (r *Record) ExpandBounds(x, y, z int) {
	if x < r.MinX {
		r.MinX = x
	}
	if x+1 > r.MaxX {
		r.MaxX = x + 1
	}
	if y < r.MinY {
		r.MinY = y
	}
	if y+1 > r.MaxY {
		r.MaxY = y + 1
	}
	if z < r.MinZ {
		r.MinZ = z
	}
	if z+1 > r.MaxZ {
		r.MaxZ = z + 1
	}
}

// TouchesBounds reports whether the peak's bounding box touches the edge
// of a W x H x D image (§8 REMOVE_EDGE_MAXIMA).
func (r *Record) TouchesBounds(w, h, d int) bool {
	if r.MinX <= 0 || r.MaxX >= w || r.MinY <= 0 || r.MaxY >= h {
		return true
	}
	if d > 1 && (r.MinZ <= 0 || r.MaxZ >= d) {
		return true
	}
	return false
}
