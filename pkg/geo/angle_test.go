package geo

import (
	"math"
	"testing"
)

func TestSignedDeltaBearing(t *testing.T) {
	cases := []struct {
		prev, current, want float64
	}{
		{0, 0, 0},
		{0, 90, 90},
		{90, 0, -90},
		{350, 10, 20},
		{10, 350, -20},
		{0, 180, 180},
		{270, 45, 135},
	}

	for _, c := range cases {
		got := SignedDeltaBearing(c.prev, c.current)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("SignedDeltaBearing(%v, %v) = %v, want %v", c.prev, c.current, got, c.want)
		}
	}
}

func TestBearingToCardinalDirections(t *testing.T) {
	north := BearingTo(0, 0, 1, 0)
	if math.Abs(north) > 1e-6 {
		t.Errorf("bearing due north = %v, want 0", north)
	}

	east := BearingTo(0, 0, 0, 1)
	if math.Abs(east-90) > 1e-6 {
		t.Errorf("bearing due east = %v, want 90", east)
	}

	south := BearingTo(1, 0, 0, 0)
	if math.Abs(south-180) > 1e-6 {
		t.Errorf("bearing due south = %v, want 180", south)
	}
}

func TestHaversineMeterSymmetry(t *testing.T) {
	a := NewCoordinate(-7.55, 110.79)
	b := NewCoordinate(-7.56, 110.80)

	ab := HaversineMeter(a, b)
	ba := HaversineMeter(b, a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("haversine not symmetric: %v vs %v", ab, ba)
	}
	if ab <= 0 {
		t.Errorf("expected positive distance, got %v", ab)
	}
}
