package gocvblur

import "testing"

func TestBlurNoopForNonPositiveSigma(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	out, err := New().Blur(values, 2, 2, 1, 0)
	if err != nil {
		t.Fatalf("Blur: %v", err)
	}
	for i := range values {
		if out[i] != values[i] {
			t.Errorf("out[%d] = %v, want unchanged %v for sigma<=0", i, out[i], values[i])
		}
	}
}

func TestBlurRejectsDimensionMismatch(t *testing.T) {
	_, err := New().Blur([]float64{1, 2, 3}, 2, 2, 1, 1.5)
	if err == nil {
		t.Fatal("expected an error when values length does not match width*height*depth")
	}
}

func TestBlurSmoothsAnImpulse(t *testing.T) {
	w, h := 9, 9
	values := make([]float64, w*h)
	values[4*w+4] = 100

	out, err := New().Blur(values, w, h, 1, 1.5)
	if err != nil {
		t.Fatalf("Blur: %v", err)
	}
	if out[4*w+4] >= 100 {
		t.Errorf("blurred centre value = %v, want reduced from the 100 impulse", out[4*w+4])
	}
	if out[4*w+3] <= 0 {
		t.Errorf("a neighbouring voxel should pick up some blurred mass, got %v", out[4*w+3])
	}
}

func TestBlurPreservesVolumeLength(t *testing.T) {
	w, h, d := 3, 3, 2
	values := make([]float64, w*h*d)
	out, err := New().Blur(values, w, h, d, 1)
	if err != nil {
		t.Fatalf("Blur: %v", err)
	}
	if len(out) != len(values) {
		t.Errorf("len(out) = %d, want %d", len(out), len(values))
	}
}
