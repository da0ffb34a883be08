package simulation

import (
	"sync"
	"time"

	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/engine"
	"github.com/opennavx/navsim/pkg/geo"
)

type Phase string

const (
	// PhaseActive vehicle moves along the route clock.
	PhaseActive Phase = "ACTIVE"
	// PhaseFrozen vehicle stopped at the freeze point, reroute in flight.
	PhaseFrozen Phase = "FROZEN"
	// PhaseAwaitingSplice reroute finished, spliced route staged until the
	// vehicle reaches the freeze point.
	PhaseAwaitingSplice Phase = "AWAITING_SPLICE"
	// PhaseArrived vehicle reached the destination. terminal.
	PhaseArrived Phase = "ARRIVED"
)

// Simulation replays one vehicle along route metadata in simulated time.
// wall time maps to route-local time through the time multiplier, anchored at
// simStart. a splice re-anchors the clock: the consumed prefix moves into
// timeBase/distBase and the fresh route starts its local clock at zero, so
// published sim time and travelled distance never go backwards.
type Simulation struct {
	mu sync.Mutex

	id       string
	scenario string

	region  *engine.Region
	route   *da.RouteMeta
	pending *da.RouteMeta // staged splice, swapped in at the freeze point

	timeMultiplier float64

	simStart time.Time
	timeBase float64 // sim seconds consumed by previous route segments
	distBase float64 // meters consumed by previous route segments

	phase      Phase
	freezeIdx  int
	freezeTime float64 // route-local seconds at the freeze point
	freezeDist float64 // route-local meters at the freeze point

	blocked    da.EdgeSet
	generation uint64

	arrivedSignaled bool
	lastRerouteErr  error
}

func NewSimulation(id, scenario string, region *engine.Region, route *da.RouteMeta,
	timeMultiplier float64, now time.Time) *Simulation {
	if timeMultiplier <= 0 {
		timeMultiplier = 1
	}
	return &Simulation{
		id:             id,
		scenario:       scenario,
		region:         region,
		route:          route,
		timeMultiplier: timeMultiplier,
		simStart:       now,
		phase:          PhaseActive,
		blocked:        da.NewEdgeSet(),
	}
}

func (s *Simulation) Id() string {
	return s.id
}

func (s *Simulation) Scenario() string {
	return s.scenario
}

func (s *Simulation) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Simulation) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Simulation) Route() *da.RouteMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// LiveState one published snapshot of the vehicle.
type LiveState struct {
	SimulationId      string      `json:"simulation_id"`
	Phase             Phase       `json:"phase"`
	SimTime           float64     `json:"sim_time"`
	Lat               float64     `json:"lat"`
	Lon               float64     `json:"lon"`
	Bearing           float64     `json:"bearing"`
	Distance          float64     `json:"distance"`
	RemainingDistance float64     `json:"remaining_distance"`
	RemainingTime     float64     `json:"remaining_time"`
	StepId            int         `json:"step_id"`
	Instruction       string      `json:"instruction"`
	Street            string      `json:"street"`
	Maneuver          da.Maneuver `json:"maneuver"`
	Generation        uint64      `json:"generation"`
	JustArrived       bool        `json:"just_arrived"`
}

// routeLocalTime maps a wall instant to seconds along the current route.
// frozen phases clamp at the freeze point so the vehicle holds still there no
// matter how much wall time the reroute takes.
func (s *Simulation) routeLocalTime(now time.Time) float64 {
	t := now.Sub(s.simStart).Seconds() * s.timeMultiplier
	if t < 0 {
		t = 0
	}
	switch s.phase {
	case PhaseFrozen, PhaseAwaitingSplice:
		if t > s.freezeTime {
			t = s.freezeTime
		}
	case PhaseArrived:
		t = s.route.GetTotalTime()
	}
	return t
}

// Tick computes the vehicle snapshot for a wall instant. the same (state,
// instant) pair always yields the same snapshot; the only transitions a tick
// itself performs are crossing into ARRIVED (JustArrived set on exactly one
// tick) and committing a staged splice once the vehicle reaches the freeze
// point.
func (s *Simulation) Tick(now time.Time) LiveState {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.routeLocalTime(now)

	if s.phase == PhaseAwaitingSplice && t >= s.freezeTime {
		s.commitSplice(now)
		t = s.routeLocalTime(now)
	}

	justArrived := false
	if s.phase == PhaseActive && t >= s.route.GetTotalTime() {
		t = s.route.GetTotalTime()
		s.phase = PhaseArrived
		if !s.arrivedSignaled {
			s.arrivedSignaled = true
			justArrived = true
		}
	}

	pos, dist := s.route.PositionAtTime(t)
	step := s.route.StepAtDistance(dist)

	state := LiveState{
		SimulationId:      s.id,
		Phase:             s.phase,
		SimTime:           s.timeBase + t,
		Lat:               pos.GetLat(),
		Lon:               pos.GetLon(),
		Bearing:           s.bearingAt(t),
		Distance:          s.distBase + dist,
		RemainingDistance: s.route.GetTotalDistance() - dist,
		RemainingTime:     s.route.GetTotalTime() - t,
		Generation:        s.generation,
		JustArrived:       justArrived,
	}
	if step != nil {
		state.StepId = step.GetId()
		state.Instruction = step.GetInstruction()
		state.Street = step.GetStreet()
		state.Maneuver = step.GetManeuver()
	}
	return state
}

func (s *Simulation) bearingAt(t float64) float64 {
	coords := s.route.GetCoords()
	i := s.route.IndexAtTime(t)
	if i == 0 {
		i = 1
	}
	if i >= len(coords) {
		i = len(coords) - 1
	}
	a, b := coords[i-1], coords[i]
	return geo.BearingTo(a.GetLat(), a.GetLon(), b.GetLat(), b.GetLon())
}
