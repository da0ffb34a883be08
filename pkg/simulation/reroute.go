package simulation

import (
	"time"

	"github.com/spf13/viper"

	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/guidance"
	"github.com/opennavx/navsim/pkg/util"
)

// RerouteRequest snapshot handed to the reroute worker when a simulation
// freezes. the generation tags the request so a result computed for an older
// obstacle set gets discarded instead of spliced.
type RerouteRequest struct {
	Generation  uint64
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Blocked     da.EdgeSet
	Scenario    string
	Algorithm   string
}

// InjectObstacle registers road obstacles against a running simulation. when
// an obstacle touches the remaining route the vehicle freezes at a stand-off
// before the first affected point and a reroute request is returned. obstacles
// that miss the remaining route only widen the blocked set. a second injection
// while frozen keeps the existing freeze point but bumps the generation, which
// invalidates any reroute still in flight.
func (s *Simulation) InjectObstacle(now time.Time, obstacles []geo.Coordinate) (*RerouteRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseArrived {
		return nil, false, util.WrapErrorf(util.ErrConflict, util.ErrConflict,
			"simulation %s already arrived", s.id)
	}

	newlyBlocked := s.region.Routing().BlockedEdgesNear(obstacles)
	s.blocked = s.blocked.Union(newlyBlocked)

	switch s.phase {
	case PhaseActive:
		affectedIdx, hit := s.firstAffectedIndex(now, obstacles)
		if !hit {
			return nil, false, nil
		}
		s.freezeAt(now, affectedIdx)
	case PhaseAwaitingSplice:
		// new obstacles invalidate the staged route. the vehicle holds the
		// existing freeze point and waits for the next reroute.
		s.pending = nil
		s.phase = PhaseFrozen
	}

	s.generation++
	coords := s.route.GetCoords()
	req := &RerouteRequest{
		Generation:  s.generation,
		Origin:      coords[s.freezeIdx],
		Destination: coords[len(coords)-1],
		Blocked:     s.blocked.Clone(),
		Scenario:    s.scenario,
		Algorithm:   s.route.GetAlgorithm(),
	}
	return req, true, nil
}

// firstAffectedIndex finds the first remaining polyline point within the block
// radius of any obstacle. the scan stops at the look-ahead distance: an
// obstacle further down the route widens the blocked set but does not freeze
// the vehicle yet.
func (s *Simulation) firstAffectedIndex(now time.Time, obstacles []geo.Coordinate) (int, bool) {
	blockRadiusM := viper.GetFloat64("routing.block_radius_meters")
	lookaheadM := viper.GetFloat64("simulation.lookahead_meters")

	coords := s.route.GetCoords()
	cumDist := s.route.GetCumDistance()
	curIdx := s.route.IndexAtTime(s.routeLocalTime(now))

	for i := curIdx; i < len(coords); i++ {
		if lookaheadM > 0 && cumDist[i]-cumDist[curIdx] > lookaheadM {
			break
		}
		for _, obstacle := range obstacles {
			if geo.HaversineMeter(coords[i], obstacle) <= blockRadiusM {
				return i, true
			}
		}
	}
	return 0, false
}

// freezeAt stops the vehicle at the stand-off distance before the affected
// point, never behind its current position. the freeze lands on the last
// polyline point at or before the stand-off, so on coarse geometry the
// vehicle never parks closer to the obstacle than the stand-off.
func (s *Simulation) freezeAt(now time.Time, affectedIdx int) {
	standoffM := viper.GetFloat64("simulation.standoff_meters")

	cumDist := s.route.GetCumDistance()
	curIdx := s.route.IndexAtTime(s.routeLocalTime(now))

	target := cumDist[affectedIdx] - standoffM
	freezeIdx := s.route.IndexAtDistance(target)
	if freezeIdx > 0 && (freezeIdx >= len(cumDist) || cumDist[freezeIdx] > target) {
		freezeIdx--
	}
	if freezeIdx > affectedIdx {
		freezeIdx = affectedIdx
	}
	if freezeIdx < curIdx {
		freezeIdx = curIdx
	}

	s.freezeIdx = freezeIdx
	s.freezeTime = s.route.GetCumTime()[freezeIdx]
	s.freezeDist = cumDist[freezeIdx]
	s.phase = PhaseFrozen
}

// ApplySplice stages a freshly computed route against a frozen simulation.
// the combined route starts exactly at the freeze coordinate and stays
// pending until the vehicle reaches the freeze point; the swap happens on the
// first tick at or past it, never mid-motion. a result whose generation no
// longer matches is discarded.
func (s *Simulation) ApplySplice(generation uint64, newRoute *da.RouteMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return util.WrapErrorf(util.ErrConflict, util.ErrConflict,
			"stale reroute result: generation %d, current %d", generation, s.generation)
	}
	if s.phase != PhaseFrozen {
		return util.WrapErrorf(util.ErrConflict, util.ErrConflict,
			"simulation %s is %s, expected %s", s.id, s.phase, PhaseFrozen)
	}

	combined, err := spliceRoutes(s.route, s.freezeIdx, newRoute)
	if err != nil {
		return err
	}

	s.pending = combined
	s.lastRerouteErr = nil
	s.phase = PhaseAwaitingSplice
	return nil
}

// commitSplice swaps the pending route in. caller holds the lock and has
// verified the vehicle is at the freeze point. the consumed prefix moves into
// the bases and the fresh route's local clock re-anchors at the commit
// instant, so position, sim time, and the odometer are all continuous.
func (s *Simulation) commitSplice(now time.Time) {
	s.timeBase += s.freezeTime
	s.distBase += s.freezeDist
	s.simStart = now
	s.route = s.pending
	s.pending = nil
	s.freezeIdx = 0
	s.freezeTime = 0
	s.freezeDist = 0
	s.phase = PhaseActive
}

// RerouteFailed records a failed reroute attempt. the vehicle stays frozen
// until a later obstacle set yields a reachable route.
func (s *Simulation) RerouteFailed(generation uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return
	}
	s.lastRerouteErr = err
}

func (s *Simulation) LastRerouteError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRerouteErr
}

// spliceRoutes builds the combined route: a backtrack leg from the freeze
// coordinate to the new route's start, then the new route. when the new route
// starts behind the vehicle on the old path, the backtrack leg retraces the
// old polyline in reverse; otherwise it is a straight connector. cumulative
// time over the whole combined route is renormalized to the new route's
// implied speed so the step and position interpolation stay consistent.
func spliceRoutes(oldRoute *da.RouteMeta, freezeIdx int, newRoute *da.RouteMeta) (*da.RouteMeta, error) {
	newCoords := newRoute.GetCoords()
	newStart := newCoords[0]

	backtrack := backtrackLeg(oldRoute, freezeIdx, newStart)

	coords := make([]geo.Coordinate, 0, len(backtrack)+len(newCoords))
	coords = append(coords, backtrack...)
	joinIdx := len(coords)
	if len(coords) > 0 && geo.HaversineMeter(coords[len(coords)-1], newStart) < 0.5 {
		joinIdx--
		coords = coords[:joinIdx]
	}
	coords = append(coords, newCoords...)

	cumDistance := make([]float64, len(coords))
	for i := 1; i < len(coords); i++ {
		cumDistance[i] = cumDistance[i-1] + geo.HaversineMeter(coords[i-1], coords[i])
	}
	backtrackDist := cumDistance[joinIdx]

	steps := spliceSteps(oldRoute, freezeIdx, newRoute, backtrackDist)

	// constant implied speed from the fresh route carries over the backtrack
	// leg as well.
	cumTime := make([]float64, len(coords))
	v := impliedSpeed(newRoute, oldRoute)
	for i := range cumTime {
		cumTime[i] = cumDistance[i] / v
	}

	combined := da.NewRouteMeta(coords, cumDistance, cumTime, steps, newRoute.GetAlgorithm())
	if err := combined.Validate(); err != nil {
		return nil, err
	}
	return combined, nil
}

// backtrackLeg returns the coordinates from the freeze point to the new
// route's start, excluding the start itself unless it coincides. retraces the
// old polyline when a point within the snap tolerance sits inside the
// look-back window, else falls back to a straight connector.
func backtrackLeg(oldRoute *da.RouteMeta, freezeIdx int, newStart geo.Coordinate) []geo.Coordinate {
	lookbackM := viper.GetFloat64("simulation.splice_lookback_meters")
	snapTolM := viper.GetFloat64("simulation.splice_snap_tolerance_meters")

	coords := oldRoute.GetCoords()
	cumDist := oldRoute.GetCumDistance()

	bestIdx := -1
	bestDist := snapTolM
	for j := freezeIdx; j >= 0; j-- {
		if cumDist[freezeIdx]-cumDist[j] > lookbackM {
			break
		}
		d := geo.HaversineMeter(coords[j], newStart)
		if d <= bestDist {
			bestDist = d
			bestIdx = j
		}
	}

	if bestIdx < 0 {
		return []geo.Coordinate{coords[freezeIdx]}
	}
	return util.ReverseG(coords[bestIdx : freezeIdx+1])
}

// spliceSteps prefixes a backtrack step over the connector leg and shifts the
// new route's steps by the backtrack distance. the shift preserves the exact
// partition since every boundary moves by the same constant.
func spliceSteps(oldRoute *da.RouteMeta, freezeIdx int, newRoute *da.RouteMeta, backtrackDist float64) []da.NavStep {
	steps := make([]da.NavStep, 0, len(newRoute.GetSteps())+1)

	if backtrackDist > 0 {
		street := ""
		if old := oldRoute.StepAtDistance(oldRoute.GetCumDistance()[freezeIdx]); old != nil {
			street = old.GetStreet()
		}
		steps = append(steps, da.NewNavStep(
			0,
			guidance.InstructionFor(da.BACKTRACK, street, 0),
			street,
			0,
			backtrackDist,
			da.BACKTRACK,
		))
	}

	for _, step := range newRoute.GetSteps() {
		shifted := da.NewNavStep(
			len(steps),
			step.GetInstruction(),
			step.GetStreet(),
			step.GetStartDistance()+backtrackDist,
			step.GetEndDistance()+backtrackDist,
			step.GetManeuver(),
		)
		steps = append(steps, shifted)
	}

	for i := range steps {
		steps[i].SetId(i)
	}
	return steps
}

// impliedSpeed of the fresh route in m/s, falling back to the old route's
// when the fresh one is degenerate.
func impliedSpeed(newRoute, oldRoute *da.RouteMeta) float64 {
	if newRoute.GetTotalTime() > 0 {
		return newRoute.GetTotalDistance() / newRoute.GetTotalTime()
	}
	if oldRoute.GetTotalTime() > 0 {
		return oldRoute.GetTotalDistance() / oldRoute.GetTotalTime()
	}
	return 1
}
