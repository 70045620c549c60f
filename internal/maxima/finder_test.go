package maxima

import (
	"testing"

	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/stats"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

func TestFindSinglePeak(t *testing.T) {
	g := geometry.NewGrid(5, 5, 1)
	values := make([]float64, g.Voxels())
	for i := range values {
		values[i] = 1
	}
	values[g.Index(2, 2, 0)] = 100

	src := voxel.NewBuffer(g, 8, values)
	flags := voxel.NewFlags(g)
	labels := voxel.NewLabels(g)

	peaks, err := Find(g, src, flags, labels, 0, stats.ImageMinimum(src), 1024)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(peaks) != 1 {
		t.Fatalf("len(peaks) = %d, want 1", len(peaks))
	}
	p := peaks[0]
	if p.X != 2 || p.Y != 2 {
		t.Errorf("peak at (%d,%d), want (2,2)", p.X, p.Y)
	}
	if p.MaxValue != 100 {
		t.Errorf("MaxValue = %v, want 100", p.MaxValue)
	}
	if labels[g.Index(2, 2, 0)] != p.ID {
		t.Errorf("label at peak centre = %d, want %d", labels[g.Index(2, 2, 0)], p.ID)
	}
}

func TestFindOrdersPeaksDescending(t *testing.T) {
	g := geometry.NewGrid(7, 1, 1)
	values := []float64{0, 50, 0, 0, 0, 90, 0}
	src := voxel.NewBuffer(g, 8, values)
	flags := voxel.NewFlags(g)
	labels := voxel.NewLabels(g)

	peaks, err := Find(g, src, flags, labels, 0, 0, 1024)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(peaks) != 2 {
		t.Fatalf("len(peaks) = %d, want 2", len(peaks))
	}
	if peaks[0].MaxValue != 90 || peaks[1].MaxValue != 50 {
		t.Errorf("peaks not sorted descending: %v, %v", peaks[0].MaxValue, peaks[1].MaxValue)
	}
	if peaks[0].ID != 1 || peaks[1].ID != 2 {
		t.Errorf("ids not assigned in sorted order: %d, %d", peaks[0].ID, peaks[1].ID)
	}
}

func TestFindPlateauCentresOnCentroid(t *testing.T) {
	g := geometry.NewGrid(5, 1, 1)
	values := []float64{0, 50, 50, 50, 0}
	src := voxel.NewBuffer(g, 8, values)
	flags := voxel.NewFlags(g)
	labels := voxel.NewLabels(g)

	peaks, err := Find(g, src, flags, labels, 0, 0, 1024)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(peaks) != 1 {
		t.Fatalf("len(peaks) = %d, want 1", len(peaks))
	}
	if peaks[0].X != 2 {
		t.Errorf("plateau centre X = %d, want 2 (centroid of 1,2,3)", peaks[0].X)
	}
}

func TestFindSkipsBelowThreshold(t *testing.T) {
	g := geometry.NewGrid(3, 1, 1)
	values := []float64{0, 5, 0}
	src := voxel.NewBuffer(g, 8, values)
	flags := voxel.NewFlags(g)
	labels := voxel.NewLabels(g)

	peaks, err := Find(g, src, flags, labels, 10, 0, 1024)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(peaks) != 0 {
		t.Fatalf("len(peaks) = %d, want 0 (below threshold)", len(peaks))
	}
}

func TestFindRespectsCapacity(t *testing.T) {
	g := geometry.NewGrid(5, 1, 1)
	values := []float64{10, 0, 20, 0, 30}
	src := voxel.NewBuffer(g, 8, values)
	flags := voxel.NewFlags(g)
	labels := voxel.NewLabels(g)

	_, err := Find(g, src, flags, labels, 0, -1, 2)
	if err == nil {
		t.Fatal("expected capacity exceeded error, got nil")
	}
}
