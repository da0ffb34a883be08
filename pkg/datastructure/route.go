package datastructure

import (
	"sort"

	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/util"
)

type Maneuver string

const (
	DEPART       Maneuver = "depart"
	CONTINUE     Maneuver = "continue"
	SLIGHT_LEFT  Maneuver = "slight_left"
	SLIGHT_RIGHT Maneuver = "slight_right"
	TURN_LEFT    Maneuver = "left"
	TURN_RIGHT   Maneuver = "right"
	SHARP_LEFT   Maneuver = "sharp_left"
	SHARP_RIGHT  Maneuver = "sharp_right"
	BACKTRACK    Maneuver = "backtrack"
	ARRIVE       Maneuver = "arrive"
)

// NavStep. labeled sub-interval of a route's distance domain.
// steps partition [0, totalDistance): step[i].endDistance == step[i+1].startDistance.
type NavStep struct {
	id            int
	instruction   string
	street        string
	startDistance float64 // meter
	endDistance   float64 // meter
	maneuver      Maneuver
}

func NewNavStep(id int, instruction, street string, startDistance, endDistance float64,
	maneuver Maneuver) NavStep {
	return NavStep{
		id:            id,
		instruction:   instruction,
		street:        street,
		startDistance: startDistance,
		endDistance:   endDistance,
		maneuver:      maneuver,
	}
}

func (s *NavStep) GetId() int {
	return s.id
}

func (s *NavStep) GetInstruction() string {
	return s.instruction
}

func (s *NavStep) GetStreet() string {
	return s.street
}

func (s *NavStep) GetStartDistance() float64 {
	return s.startDistance
}

func (s *NavStep) GetEndDistance() float64 {
	return s.endDistance
}

func (s *NavStep) GetManeuver() Maneuver {
	return s.maneuver
}

func (s *NavStep) SetId(id int) {
	s.id = id
}

func (s *NavStep) SetEndDistance(d float64) {
	s.endDistance = d
}

// RouteMeta. navigable metadata for one route: dense polyline, cumulative
// distance/time prefix arrays (one entry per polyline point) and maneuver steps.
type RouteMeta struct {
	coords        []geo.Coordinate
	cumDistance   []float64 // meter, non-decreasing
	cumTime       []float64 // second, non-decreasing
	steps         []NavStep
	totalDistance float64
	totalTime     float64
	algorithm     string
}

func NewRouteMeta(coords []geo.Coordinate, cumDistance, cumTime []float64,
	steps []NavStep, algorithm string) *RouteMeta {
	var totalDistance, totalTime float64
	if len(cumDistance) > 0 {
		totalDistance = cumDistance[len(cumDistance)-1]
	}
	if len(cumTime) > 0 {
		totalTime = cumTime[len(cumTime)-1]
	}
	return &RouteMeta{
		coords:        coords,
		cumDistance:   cumDistance,
		cumTime:       cumTime,
		steps:         steps,
		totalDistance: totalDistance,
		totalTime:     totalTime,
		algorithm:     algorithm,
	}
}

func (r *RouteMeta) GetCoords() []geo.Coordinate {
	return r.coords
}

func (r *RouteMeta) GetCumDistance() []float64 {
	return r.cumDistance
}

func (r *RouteMeta) GetCumTime() []float64 {
	return r.cumTime
}

func (r *RouteMeta) GetSteps() []NavStep {
	return r.steps
}

func (r *RouteMeta) GetTotalDistance() float64 {
	return r.totalDistance
}

func (r *RouteMeta) GetTotalTime() float64 {
	return r.totalTime
}

func (r *RouteMeta) GetAlgorithm() string {
	return r.algorithm
}

// Validate fails fast on malformed metadata so a simulation never starts on it:
// empty or length-mismatched arrays, a decreasing prefix array, or steps that
// leave a gap or overlap in [0, totalDistance).
func (r *RouteMeta) Validate() error {
	n := len(r.coords)
	if n < 2 {
		return util.WrapErrorf(util.ErrInvalidRoute, util.ErrBadParamInput,
			"route needs at least two points, got %d", n)
	}
	if len(r.cumDistance) != n || len(r.cumTime) != n {
		return util.WrapErrorf(util.ErrInvalidRoute, util.ErrBadParamInput,
			"per-point arrays must share one length: coords=%d cumDistance=%d cumTime=%d",
			n, len(r.cumDistance), len(r.cumTime))
	}
	for i := 1; i < n; i++ {
		if r.cumDistance[i] < r.cumDistance[i-1] {
			return util.WrapErrorf(util.ErrInvalidRoute, util.ErrBadParamInput,
				"cumulative distance decreases at index %d", i)
		}
		if r.cumTime[i] < r.cumTime[i-1] {
			return util.WrapErrorf(util.ErrInvalidRoute, util.ErrBadParamInput,
				"cumulative time decreases at index %d", i)
		}
	}
	if len(r.steps) == 0 {
		return util.WrapErrorf(util.ErrInvalidRoute, util.ErrBadParamInput, "route has no steps")
	}
	if r.steps[0].startDistance != 0 {
		return util.WrapErrorf(util.ErrInvalidRoute, util.ErrBadParamInput,
			"first step must start at 0, got %f", r.steps[0].startDistance)
	}
	for i := 1; i < len(r.steps); i++ {
		if r.steps[i].startDistance != r.steps[i-1].endDistance {
			return util.WrapErrorf(util.ErrInvalidRoute, util.ErrBadParamInput,
				"steps %d and %d leave a gap or overlap", i-1, i)
		}
	}
	return nil
}

// IndexAtTime returns the smallest i such that cumTime[i] >= simTime.
func (r *RouteMeta) IndexAtTime(simTime float64) int {
	return sort.SearchFloat64s(r.cumTime, simTime)
}

// IndexAtDistance returns the smallest i such that cumDistance[i] >= dist.
func (r *RouteMeta) IndexAtDistance(dist float64) int {
	return sort.SearchFloat64s(r.cumDistance, dist)
}

// PositionAtTime interpolates the vehicle position and travelled distance at
// simTime along the cumulative-time array.
func (r *RouteMeta) PositionAtTime(simTime float64) (geo.Coordinate, float64) {
	n := len(r.coords)
	if simTime <= 0 {
		return r.coords[0], 0
	}
	if simTime >= r.totalTime {
		return r.coords[n-1], r.totalDistance
	}

	i := r.IndexAtTime(simTime)
	if i == 0 {
		return r.coords[0], 0
	}

	t0, t1 := r.cumTime[i-1], r.cumTime[i]
	frac := 0.0
	if t1 > t0 {
		frac = (simTime - t0) / (t1 - t0)
	}
	a, b := r.coords[i-1], r.coords[i]
	pos := geo.NewCoordinate(
		a.GetLat()+(b.GetLat()-a.GetLat())*frac,
		a.GetLon()+(b.GetLon()-a.GetLon())*frac,
	)
	dist := r.cumDistance[i-1] + (r.cumDistance[i]-r.cumDistance[i-1])*frac
	return pos, dist
}

// StepAtDistance returns the step covering the given travelled distance.
func (r *RouteMeta) StepAtDistance(dist float64) *NavStep {
	for i := range r.steps {
		if dist < r.steps[i].endDistance || i == len(r.steps)-1 {
			return &r.steps[i]
		}
	}
	return nil
}
