package result

import (
	"errors"
	"testing"

	"github.com/aherbert/gdsc-sub001/internal/focierr"
	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/peak"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

func TestSortByIntensityDefault(t *testing.T) {
	peaks := []*peak.Record{
		{ID: 1, TotalIntensity: 50},
		{ID: 2, TotalIntensity: 200},
		{ID: 3, TotalIntensity: 100},
	}
	Sort(peaks, SortIntensity, 0)
	if peaks[0].ID != 2 || peaks[1].ID != 3 || peaks[2].ID != 1 {
		t.Fatalf("sort order = %d,%d,%d, want 2,3,1", peaks[0].ID, peaks[1].ID, peaks[2].ID)
	}
}

func TestSortTiebreakChain(t *testing.T) {
	// Equal primary key (TotalIntensity); MaxValue breaks the tie.
	peaks := []*peak.Record{
		{ID: 1, TotalIntensity: 100, MaxValue: 10},
		{ID: 2, TotalIntensity: 100, MaxValue: 20},
	}
	Sort(peaks, SortIntensity, 0)
	if peaks[0].ID != 2 {
		t.Errorf("higher MaxValue should win the tiebreak: got order %d,%d", peaks[0].ID, peaks[1].ID)
	}

	// Equal primary and MaxValue; Count breaks the tie.
	peaks = []*peak.Record{
		{ID: 1, TotalIntensity: 100, MaxValue: 10, Count: 5},
		{ID: 2, TotalIntensity: 100, MaxValue: 10, Count: 50},
	}
	Sort(peaks, SortIntensity, 0)
	if peaks[0].ID != 2 {
		t.Errorf("higher Count should win the tiebreak: got order %d,%d", peaks[0].ID, peaks[1].ID)
	}

	// Equal primary, MaxValue, Count; X ascending breaks the tie.
	peaks = []*peak.Record{
		{ID: 1, TotalIntensity: 100, MaxValue: 10, Count: 5, X: 9},
		{ID: 2, TotalIntensity: 100, MaxValue: 10, Count: 5, X: 1},
	}
	Sort(peaks, SortIntensity, 0)
	if peaks[0].ID != 2 {
		t.Errorf("lower X should win the tiebreak: got order %d,%d", peaks[0].ID, peaks[1].ID)
	}
}

func TestSortByCount(t *testing.T) {
	peaks := []*peak.Record{
		{ID: 1, Count: 5},
		{ID: 2, Count: 50},
	}
	Sort(peaks, SortCount, 0)
	if peaks[0].ID != 2 {
		t.Errorf("SortCount did not order by Count descending")
	}
}

func TestTrimAndRenumber(t *testing.T) {
	peaks := []*peak.Record{
		{ID: 10, SaddleNeighbourID: 20},
		{ID: 20, SaddleNeighbourID: 30},
		{ID: 30, SaddleNeighbourID: 0},
	}
	trimmed := TrimAndRenumber(peaks, 2)

	if len(trimmed) != 2 {
		t.Fatalf("len(trimmed) = %d, want 2", len(trimmed))
	}
	if trimmed[0].ID != 1 || trimmed[1].ID != 2 {
		t.Fatalf("ids not renumbered 1..N: got %d, %d", trimmed[0].ID, trimmed[1].ID)
	}
	if trimmed[0].SaddleNeighbourID != 2 {
		t.Errorf("SaddleNeighbourID not remapped: got %d, want 2", trimmed[0].SaddleNeighbourID)
	}
	if trimmed[1].SaddleNeighbourID != 0 {
		t.Errorf("SaddleNeighbourID pointing outside the trim should become 0, got %d", trimmed[1].SaddleNeighbourID)
	}
}

func TestTrimAndRenumberUnlimited(t *testing.T) {
	peaks := []*peak.Record{{ID: 1}, {ID: 2}, {ID: 3}}
	trimmed := TrimAndRenumber(peaks, 0)
	if len(trimmed) != 3 {
		t.Fatalf("maxPeaks=0 should keep every peak, got %d", len(trimmed))
	}
}

func TestRelabelSurvivors(t *testing.T) {
	labels := voxel.Labels{1, 2, 3, 0}
	oldToNew := map[int32]int32{1: 1, 3: 2}
	RelabelSurvivors(labels, oldToNew)

	want := voxel.Labels{1, 0, 2, 0}
	for i := range labels {
		if labels[i] != want[i] {
			t.Errorf("labels[%d] = %d, want %d", i, labels[i], want[i])
		}
	}
}

func TestRasterizeAboveSaddle(t *testing.T) {
	g := geometry.NewGrid(3, 1, 1)
	values := []float64{5, 20, 5}
	src := voxel.NewBuffer(g, 8, values)
	labels := voxel.Labels{1, 1, 1}
	p := &peak.Record{ID: 1, X: 1, Y: 0, Z: 0, MaxValue: 20, HighestSaddleValue: 10}

	vol, err := Rasterize(g, src, nil, labels, []*peak.Record{p}, RasterOptions{Mode: RasterAboveSaddle})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if vol.Bits != 8 {
		t.Fatalf("Bits = %d, want 8 for <=255 peaks", vol.Bits)
	}
	if vol.Wide8[1] != 1 {
		t.Errorf("voxel above the saddle should be painted with its peak id, got %d", vol.Wide8[1])
	}
	if vol.Wide8[0] != 0 || vol.Wide8[2] != 0 {
		t.Errorf("voxels at or below the saddle must stay unpainted")
	}
}

func TestRasterizeFractionOfHeight(t *testing.T) {
	g := geometry.NewGrid(3, 1, 1)
	values := []float64{5, 15, 20}
	src := voxel.NewBuffer(g, 8, values)
	labels := voxel.Labels{1, 1, 1}
	p := &peak.Record{ID: 1, X: 2, Y: 0, Z: 0, MaxValue: 20, HighestSaddleValue: 10}

	vol, err := Rasterize(g, src, nil, labels, []*peak.Record{p}, RasterOptions{Mode: RasterFractionOfHeight, FractionParam: 0.5})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	// Threshold = 10 + 0.5*(20-10) = 15; only the voxel strictly above 15 paints.
	if vol.Wide8[2] != 1 {
		t.Errorf("voxel above the fractional height threshold should be painted, got %d", vol.Wide8[2])
	}
	if vol.Wide8[0] != 0 || vol.Wide8[1] != 0 {
		t.Errorf("voxels at or below the fractional height threshold must stay unpainted")
	}
}

func TestRasterizeFractionOfIntensityDiffersFromHeight(t *testing.T) {
	// Values ranked 20,9,5,1. fraction=0.6 against total=35 (target=21) needs
	// the top two values (20+9=29) to reach the cumulative target, while the
	// height-based threshold (0 + 0.6*20 = 12) admits only the single 20.
	g := geometry.NewGrid(4, 1, 1)
	values := []float64{1, 5, 9, 20}
	src := voxel.NewBuffer(g, 8, values)
	labels := voxel.Labels{1, 1, 1, 1}
	p := &peak.Record{ID: 1, X: 3, Y: 0, Z: 0, MaxValue: 20, HighestSaddleValue: 0}

	heightVol, err := Rasterize(g, src, nil, labels, []*peak.Record{p}, RasterOptions{Mode: RasterFractionOfHeight, FractionParam: 0.6})
	if err != nil {
		t.Fatalf("Rasterize (height): %v", err)
	}
	intensityVol, err := Rasterize(g, src, nil, labels, []*peak.Record{p}, RasterOptions{Mode: RasterFractionOfIntensity, FractionParam: 0.6})
	if err != nil {
		t.Fatalf("Rasterize (intensity): %v", err)
	}

	heightPainted, intensityPainted := 0, 0
	for _, v := range heightVol.Wide8 {
		if v != 0 {
			heightPainted++
		}
	}
	for _, v := range intensityVol.Wide8 {
		if v != 0 {
			intensityPainted++
		}
	}
	if heightPainted != 1 {
		t.Errorf("fraction-of-height should paint only the voxel above the height threshold, got %d", heightPainted)
	}
	if intensityPainted != 2 {
		t.Errorf("fraction-of-intensity should paint the voxels needed to reach the cumulative target, got %d", intensityPainted)
	}
}

func TestRasterizeThresholded(t *testing.T) {
	g := geometry.NewGrid(3, 1, 1)
	values := []float64{5, 20, 5}
	src := voxel.NewBuffer(g, 8, values)
	labels := voxel.Labels{1, 1, 1}
	p := &peak.Record{ID: 1, X: 1, Y: 0, Z: 0, MaxValue: 20, HighestSaddleValue: 10}

	thresholdFn := func(peakID int32, voxel int) bool { return voxel == 0 }
	vol, err := Rasterize(g, src, nil, labels, []*peak.Record{p}, RasterOptions{Mode: RasterThresholded, ThresholdFn: thresholdFn})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if vol.Wide8[0] != 1 {
		t.Errorf("thresholded mode should defer entirely to ThresholdFn, voxel 0 should be painted")
	}
	if vol.Wide8[1] != 0 || vol.Wide8[2] != 0 {
		t.Errorf("thresholded mode should not paint voxels ThresholdFn rejects")
	}
}

func TestRasterizeThresholdedWithNilFnIncludesEverything(t *testing.T) {
	g := geometry.NewGrid(2, 1, 1)
	src := voxel.NewBuffer(g, 8, []float64{1, 2})
	labels := voxel.Labels{1, 1}
	p := &peak.Record{ID: 1}

	vol, err := Rasterize(g, src, nil, labels, []*peak.Record{p}, RasterOptions{Mode: RasterThresholded})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if vol.Wide8[0] != 1 || vol.Wide8[1] != 1 {
		t.Errorf("a nil ThresholdFn should default to including every assigned voxel")
	}
}

func TestRasterizeRefusesTooManyPeaks(t *testing.T) {
	g := geometry.NewGrid(1, 1, 1)
	src := voxel.NewBuffer(g, 8, []float64{0})
	labels := voxel.Labels{0}

	peaks := make([]*peak.Record, 70000)
	for i := range peaks {
		peaks[i] = &peak.Record{ID: int32(i + 1)}
	}

	_, err := Rasterize(g, src, nil, labels, peaks, RasterOptions{})
	if err == nil {
		t.Fatal("expected ErrTooManyPeaks, got nil")
	}
	if !errors.Is(err, focierr.ErrTooManyPeaks) {
		t.Errorf("expected ErrTooManyPeaks, got %v", err)
	}
}

func TestRasterizeUsesWide16AboveByteCapacity(t *testing.T) {
	g := geometry.NewGrid(1, 1, 1)
	src := voxel.NewBuffer(g, 8, []float64{0})
	labels := voxel.Labels{0}

	peaks := make([]*peak.Record, 300)
	for i := range peaks {
		peaks[i] = &peak.Record{ID: int32(i + 1)}
	}

	vol, err := Rasterize(g, src, nil, labels, peaks, RasterOptions{})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if vol.Bits != 16 {
		t.Errorf("Bits = %d, want 16 for >255 peaks", vol.Bits)
	}
}

func TestRefineCentroidsMaxValue(t *testing.T) {
	g := geometry.NewGrid(3, 1, 1)
	values := []float64{5, 20, 8}
	src := voxel.NewBuffer(g, 8, values)
	flags := voxel.NewFlags(g)
	labels := voxel.Labels{1, 1, 1}
	p := &peak.Record{ID: 1, X: 0, Y: 0, Z: 0, MaxValue: 20, HighestSaddleValue: 6,
		MinX: 0, MaxX: 3, MinY: 0, MaxY: 1, MinZ: 0, MaxZ: 1}

	RefineCentroids(g, src, flags, labels, []*peak.Record{p}, CentroidMaxValue, 0, nil, false)
	if p.X != 1 {
		t.Errorf("MAX_VALUE centroid should land on the highest above-saddle voxel: X = %d, want 1", p.X)
	}
}
