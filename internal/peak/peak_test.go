package peak

import (
	"math"
	"testing"
)

func TestKillAndAlive(t *testing.T) {
	r := &Record{TotalIntensity: 42}
	if !r.Alive() {
		t.Fatal("freshly constructed record should be alive")
	}
	r.Kill()
	if r.Alive() {
		t.Fatal("killed record should report not alive")
	}
	if r.TotalIntensity != Dead {
		t.Errorf("TotalIntensity after Kill = %v, want %v", r.TotalIntensity, Dead)
	}
}

func TestNoSaddleFor(t *testing.T) {
	cases := []struct {
		background float64
		want       float64
	}{
		{0, 0},
		{10, 0},
		{-5, math.Inf(-1)},
	}
	for _, c := range cases {
		if got := NoSaddleFor(c.background); got != c.want {
			t.Errorf("NoSaddleFor(%v) = %v, want %v", c.background, got, c.want)
		}
	}
}

func TestExpandBounds(t *testing.T) {
	r := &Record{MinX: 2, MaxX: 3, MinY: 2, MaxY: 3, MinZ: 0, MaxZ: 1}
	r.ExpandBounds(5, 7, 0)
	if r.MinX != 2 || r.MaxX != 6 {
		t.Errorf("X bounds = [%d,%d), want [2,6)", r.MinX, r.MaxX)
	}
	if r.MinY != 2 || r.MaxY != 8 {
		t.Errorf("Y bounds = [%d,%d), want [2,8)", r.MinY, r.MaxY)
	}
	r.ExpandBounds(0, 0, 0)
	if r.MinX != 0 || r.MinY != 0 {
		t.Errorf("bounds did not shrink-expand to include the origin: MinX=%d MinY=%d", r.MinX, r.MinY)
	}
}

func TestTouchesBounds2D(t *testing.T) {
	cases := []struct {
		name       string
		r          Record
		w, h, d    int
		wantTouch  bool
	}{
		{"interior", Record{MinX: 1, MaxX: 2, MinY: 1, MaxY: 2}, 5, 5, 1, false},
		{"touches left edge", Record{MinX: 0, MaxX: 1, MinY: 1, MaxY: 2}, 5, 5, 1, true},
		{"touches right edge", Record{MinX: 3, MaxX: 5, MinY: 1, MaxY: 2}, 5, 5, 1, true},
		{"touches bottom edge", Record{MinX: 1, MaxX: 2, MinY: 0, MaxY: 1}, 5, 5, 1, true},
		{"touches top edge", Record{MinX: 1, MaxX: 2, MinY: 3, MaxY: 5}, 5, 5, 1, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.r.TouchesBounds(c.w, c.h, c.d); got != c.wantTouch {
				t.Errorf("TouchesBounds() = %v, want %v", got, c.wantTouch)
			}
		})
	}
}

func TestTouchesBoundsIgnoresZFor2D(t *testing.T) {
	r := Record{MinX: 1, MaxX: 2, MinY: 1, MaxY: 2, MinZ: 0, MaxZ: 1}
	if r.TouchesBounds(5, 5, 1) {
		t.Error("a depth-1 image should never report a z-edge touch")
	}
}
