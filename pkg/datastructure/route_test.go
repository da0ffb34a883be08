package datastructure

import (
	"math"
	"testing"

	"github.com/opennavx/navsim/pkg/geo"
)

// straight west-east route: four points, 100/200/150 meter segments travelled
// at a constant 10 m/s.
func buildStraightRoute() *RouteMeta {
	coords := []geo.Coordinate{
		geo.NewCoordinate(0, 0.0000),
		geo.NewCoordinate(0, 0.0009),
		geo.NewCoordinate(0, 0.0027),
		geo.NewCoordinate(0, 0.00405),
	}
	cumDistance := []float64{0, 100, 300, 450}
	cumTime := []float64{0, 10, 30, 45}
	steps := []NavStep{
		NewNavStep(0, "Head east on Jalan Slamet Riyadi", "Jalan Slamet Riyadi", 0, 450, DEPART),
		NewNavStep(1, "Arrive at your destination", "", 450, 450, ARRIVE),
	}
	return NewRouteMeta(coords, cumDistance, cumTime, steps, "baseline")
}

func TestRouteMetaValidate(t *testing.T) {
	route := buildStraightRoute()
	if err := route.Validate(); err != nil {
		t.Fatalf("valid route rejected: %v", err)
	}

	tooShort := NewRouteMeta(route.GetCoords()[:1], []float64{0}, []float64{0}, nil, "baseline")
	if err := tooShort.Validate(); err == nil {
		t.Error("single point route accepted")
	}

	mismatched := NewRouteMeta(route.GetCoords(), []float64{0, 100}, route.GetCumTime(), route.GetSteps(), "baseline")
	if err := mismatched.Validate(); err == nil {
		t.Error("length-mismatched arrays accepted")
	}

	decreasing := NewRouteMeta(route.GetCoords(),
		[]float64{0, 100, 50, 450}, route.GetCumTime(), route.GetSteps(), "baseline")
	if err := decreasing.Validate(); err == nil {
		t.Error("decreasing cumulative distance accepted")
	}

	gapSteps := []NavStep{
		NewNavStep(0, "", "", 0, 200, DEPART),
		NewNavStep(1, "", "", 250, 450, CONTINUE),
	}
	withGap := NewRouteMeta(route.GetCoords(), route.GetCumDistance(), route.GetCumTime(), gapSteps, "baseline")
	if err := withGap.Validate(); err == nil {
		t.Error("steps with a gap accepted")
	}
}

func TestPositionAtTimeInterpolates(t *testing.T) {
	route := buildStraightRoute()

	pos, dist := route.PositionAtTime(5)
	if math.Abs(dist-50) > 1e-9 {
		t.Errorf("distance at t=5 = %v, want 50", dist)
	}
	if math.Abs(pos.GetLon()-0.00045) > 1e-12 {
		t.Errorf("lon at t=5 = %v, want 0.00045", pos.GetLon())
	}

	pos, dist = route.PositionAtTime(20)
	if math.Abs(dist-200) > 1e-9 {
		t.Errorf("distance at t=20 = %v, want 200", dist)
	}
	if math.Abs(pos.GetLon()-0.0018) > 1e-12 {
		t.Errorf("lon at t=20 = %v, want 0.0018", pos.GetLon())
	}

	_, dist = route.PositionAtTime(-3)
	if dist != 0 {
		t.Errorf("distance before departure = %v, want 0", dist)
	}

	pos, dist = route.PositionAtTime(999)
	if dist != 450 || pos.GetLon() != 0.00405 {
		t.Errorf("clamp past arrival: dist=%v lon=%v", dist, pos.GetLon())
	}
}

func TestStepAtDistance(t *testing.T) {
	route := buildStraightRoute()

	step := route.StepAtDistance(10)
	if step == nil || step.GetManeuver() != DEPART {
		t.Fatalf("step at 10m = %+v, want depart step", step)
	}

	step = route.StepAtDistance(450)
	if step == nil || step.GetManeuver() != ARRIVE {
		t.Fatalf("step at arrival = %+v, want arrive step", step)
	}
}

func TestIndexAtTimeAndDistance(t *testing.T) {
	route := buildStraightRoute()

	if i := route.IndexAtTime(10); i != 1 {
		t.Errorf("IndexAtTime(10) = %d, want 1", i)
	}
	if i := route.IndexAtTime(10.5); i != 2 {
		t.Errorf("IndexAtTime(10.5) = %d, want 2", i)
	}
	if i := route.IndexAtDistance(300); i != 2 {
		t.Errorf("IndexAtDistance(300) = %d, want 2", i)
	}
	if i := route.IndexAtDistance(0); i != 0 {
		t.Errorf("IndexAtDistance(0) = %d, want 0", i)
	}
}
