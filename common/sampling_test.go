package common

import "testing"

func TestRadicalInverseBitReversal(t *testing.T) {
	tests := []struct {
		i    int
		want float32
	}{
		{0, 0},
		{1, 0.5},
		{2, 0.25},
		{3, 0.75},
		{4, 0.125},
		{8, 0.0625},
	}
	for _, tt := range tests {
		if got := RadicalInverse(tt.i); got != tt.want {
			t.Errorf("RadicalInverse(%d) = %v, want %v", tt.i, got, tt.want)
		}
	}
}

func TestRadicalInverseRange(t *testing.T) {
	for i := 0; i < 4096; i++ {
		v := RadicalInverse(i)
		if v < 0 || v >= 1 {
			t.Fatalf("RadicalInverse(%d) = %v, outside [0, 1)", i, v)
		}
	}
}

func TestHammersleyPointsAreUnitVectors(t *testing.T) {
	points := HammersleyPoints(1024)
	if len(points) != 1024 {
		t.Fatalf("point count = %d, want 1024", len(points))
	}
	for i, p := range points {
		lenSq := p[0]*p[0] + p[1]*p[1]
		if diff := lenSq - 1; diff > 1e-5 || diff < -1e-5 {
			t.Errorf("point %d length squared = %v, want 1", i, lenSq)
		}
	}
	// The first sample is phi = 0.
	if points[0] != [2]float32{1, 0} {
		t.Errorf("points[0] = %v, want [1 0]", points[0])
	}
}
