package merge

import (
	"testing"

	"github.com/aherbert/gdsc-sub001/internal/peak"
	"github.com/aherbert/gdsc-sub001/internal/stats"
)

func TestRunHeightPassMergesIntoNeighbour(t *testing.T) {
	p1 := &peak.Record{ID: 1, MaxValue: 10, HighestSaddleValue: 8, SaddleNeighbourID: 2,
		Count: 5, TotalIntensity: 50, Saddles: []peak.Saddle{{NeighbourID: 2, Value: 8}}}
	p2 := &peak.Record{ID: 2, MaxValue: 20, HighestSaddleValue: 8, SaddleNeighbourID: 1,
		Count: 10, TotalIntensity: 150, Saddles: []peak.Saddle{{NeighbourID: 1, Value: 8}}}

	m := New([]*peak.Record{p1, p2})
	m.RunHeightPass(stats.PeakHeightAbsolute, 5, 0, false)

	if p1.Alive() {
		t.Error("p1 should have been merged away (10-8=2 < height 5)")
	}
	if !p2.Alive() {
		t.Fatal("p2 should have survived")
	}
	if p2.Count != 15 {
		t.Errorf("p2.Count = %d, want 15", p2.Count)
	}
	if p2.TotalIntensity != 200 {
		t.Errorf("p2.TotalIntensity = %v, want 200", p2.TotalIntensity)
	}
	if got := m.PeakIDMap()[1]; got != 2 {
		t.Errorf("peakIdMap[1] = %d, want 2", got)
	}
}

func TestRunHeightPassNoParamIsNoop(t *testing.T) {
	p1 := &peak.Record{ID: 1, MaxValue: 10}
	m := New([]*peak.Record{p1})
	m.RunHeightPass(stats.PeakHeightAbsolute, 0, 0, false)
	if !p1.Alive() {
		t.Error("a zero height parameter must never merge anything")
	}
}

func TestRunSizePassRemovesIsolatedSmallPeak(t *testing.T) {
	p1 := &peak.Record{ID: 1, Count: 2, TotalIntensity: 20}
	m := New([]*peak.Record{p1})
	m.RunSizePass(10)

	if p1.Alive() {
		t.Error("an isolated peak below minSize with no neighbour should be fully removed")
	}
	if m.PeakIDMap()[1] != 0 {
		t.Errorf("peakIdMap[1] = %d, want 0 (removed outright)", m.PeakIDMap()[1])
	}
}

func TestRunSizePassKeepsLargePeak(t *testing.T) {
	p1 := &peak.Record{ID: 1, Count: 100, TotalIntensity: 1000}
	m := New([]*peak.Record{p1})
	m.RunSizePass(10)

	if !p1.Alive() {
		t.Error("a peak at or above minSize should survive the size pass")
	}
}

func TestFinalizeSortsDescendingAndDropsDead(t *testing.T) {
	p1 := &peak.Record{ID: 1, TotalIntensity: 50}
	p2 := &peak.Record{ID: 2, TotalIntensity: 200}
	p3 := &peak.Record{ID: 3, TotalIntensity: 100}
	m := New([]*peak.Record{p1, p2, p3})
	m.RunSizePass(0) // no-op: minSize 0 removes nothing

	p1.Kill()
	m.peakIdMap[1] = 0

	labels := make([]int32, 3)
	labels[0], labels[1], labels[2] = 1, 2, 3

	survivors := m.Finalize(labels)
	if len(survivors) != 2 {
		t.Fatalf("len(survivors) = %d, want 2", len(survivors))
	}
	if survivors[0].ID != 2 || survivors[1].ID != 3 {
		t.Errorf("survivors not sorted by TotalIntensity descending: got ids %d, %d", survivors[0].ID, survivors[1].ID)
	}
	if labels[0] != 0 {
		t.Errorf("labels for the killed peak should be cleared, got %d", labels[0])
	}
}

func TestRemoveEdgeKillsBoundaryPeaks(t *testing.T) {
	edge := &peak.Record{ID: 1, MinX: 0, MaxX: 1, MinY: 1, MaxY: 2}
	interior := &peak.Record{ID: 2, MinX: 2, MaxX: 3, MinY: 2, MaxY: 3}
	m := New([]*peak.Record{edge, interior})
	m.RemoveEdge(5, 5, 1)

	if edge.Alive() {
		t.Error("a peak touching the image boundary should be removed by RemoveEdge")
	}
	if !interior.Alive() {
		t.Error("an interior peak must survive RemoveEdge")
	}
}
