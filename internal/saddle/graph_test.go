package saddle

import (
	"testing"

	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/peak"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// Two regions touching directly at one boundary: labels 1 1 3 3 3 over
// values 10 6 7 10 10. The saddle is min(6,7) = 6, the lower of the two
// boundary voxels.
func TestBuildFindsSaddleBetweenTwoRegions(t *testing.T) {
	g := geometry.NewGrid(5, 1, 1)
	values := []float64{10, 6, 7, 10, 10}
	labels := voxel.Labels{1, 1, 3, 3, 3}
	flags := voxel.NewFlags(g)

	p1 := &peak.Record{ID: 1}
	p2 := &peak.Record{ID: 3}
	peaks := []*peak.Record{p1, p2}

	imageFn := func(i int) float64 { return values[i] }
	Build(g, labels, flags, peaks, 0, imageFn)

	if len(p1.Saddles) != 1 || p1.Saddles[0].NeighbourID != 3 {
		t.Fatalf("p1.Saddles = %+v, want one saddle to neighbour 3", p1.Saddles)
	}
	if p1.HighestSaddleValue != 6 {
		t.Errorf("p1.HighestSaddleValue = %v, want 6", p1.HighestSaddleValue)
	}
	if p2.SaddleNeighbourID != 1 {
		t.Errorf("p2.SaddleNeighbourID = %d, want 1", p2.SaddleNeighbourID)
	}
}

func TestBuildNoNeighbourYieldsNoSaddleValue(t *testing.T) {
	g := geometry.NewGrid(3, 1, 1)
	values := []float64{5, 10, 5}
	labels := voxel.Labels{0, 1, 0}
	flags := voxel.NewFlags(g)

	p1 := &peak.Record{ID: 1}
	imageFn := func(i int) float64 { return values[i] }
	Build(g, labels, flags, []*peak.Record{p1}, 0, imageFn)

	if len(p1.Saddles) != 0 {
		t.Fatalf("isolated peak should have no saddles, got %+v", p1.Saddles)
	}
	if p1.HighestSaddleValue != peak.NoSaddleFor(0) {
		t.Errorf("HighestSaddleValue = %v, want %v", p1.HighestSaddleValue, peak.NoSaddleFor(0))
	}
}

func TestBuildKeepsHighestOfMultipleBoundaryVoxels(t *testing.T) {
	// Two regions interleaved along a single row with contact points of
	// min(vi,vj) = 3 and 7; the saddle must record the higher of the two.
	g := geometry.NewGrid(5, 1, 1)
	values := []float64{10, 3, 10, 7, 10}
	labels := voxel.Labels{1, 2, 1, 2, 1}
	flags := voxel.NewFlags(g)

	p1 := &peak.Record{ID: 1}
	p2 := &peak.Record{ID: 2}
	imageFn := func(i int) float64 { return values[i] }
	Build(g, labels, flags, []*peak.Record{p1, p2}, 0, imageFn)

	if p1.HighestSaddleValue != 7 {
		t.Errorf("HighestSaddleValue = %v, want 7 (max of contact mins 3 and 7)", p1.HighestSaddleValue)
	}
}
