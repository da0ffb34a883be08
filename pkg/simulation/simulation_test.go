package simulation

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opennavx/navsim/pkg"
	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/engine"
	"github.com/opennavx/navsim/pkg/engine/routing"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/guidance"
	"github.com/opennavx/navsim/pkg/osmparser"
	"github.com/opennavx/navsim/pkg/spatialindex"
)

func setSimulationConfig() {
	viper.Set("routing.block_radius_meters", 100.0)
	viper.Set("simulation.standoff_meters", 100.0)
	viper.Set("simulation.lookahead_meters", 10000.0)
	viper.Set("simulation.splice_lookback_meters", 250.0)
	viper.Set("simulation.splice_snap_tolerance_meters", 25.0)
}

// lineCoords four points spaced ~111m apart along the equator.
func lineCoords() []geo.Coordinate {
	return []geo.Coordinate{
		geo.NewCoordinate(0, 0.000),
		geo.NewCoordinate(0, 0.001),
		geo.NewCoordinate(0, 0.002),
		geo.NewCoordinate(0, 0.003),
	}
}

// routeOver builds route metadata over the coordinates at a constant speed,
// with a depart and an arrive step.
func routeOver(coords []geo.Coordinate, speedMps float64) *da.RouteMeta {
	cumDist := make([]float64, len(coords))
	cumTime := make([]float64, len(coords))
	for i := 1; i < len(coords); i++ {
		cumDist[i] = cumDist[i-1] + geo.HaversineMeter(coords[i-1], coords[i])
		cumTime[i] = cumDist[i] / speedMps
	}
	steps := []da.NavStep{
		da.NewNavStep(0, "Head east on Main Street", "Main Street",
			0, cumDist[len(cumDist)-1], da.DEPART),
		da.NewNavStep(1, guidance.InstructionFor(da.ARRIVE, "", 0), "",
			cumDist[len(cumDist)-1], cumDist[len(cumDist)-1], da.ARRIVE),
	}
	return da.NewRouteMeta(coords, cumDist, cumTime, steps, routing.AlgorithmBaseline)
}

// lineRegion a region whose graph is the equator line, one edge per direction
// between neighbors.
func lineRegion() *engine.Region {
	coords := lineCoords()
	vertices := make([]da.Vertex, len(coords))
	for i, c := range coords {
		vertices[i] = *da.NewVertex(c.GetLat(), c.GetLon(), da.Index(i), int64(i))
	}

	edge := func(id, tail, head da.Index) da.DirectedEdge {
		return da.NewDirectedEdge(id, tail, head,
			geo.HaversineMeter(coords[tail], coords[head]), 36, 1, pkg.RESIDENTIAL, false,
			[]geo.Coordinate{coords[tail], coords[head]})
	}
	edges := []da.DirectedEdge{
		edge(0, 0, 1), edge(1, 1, 2), edge(2, 2, 3),
		edge(3, 1, 0), edge(4, 2, 1), edge(5, 3, 2),
	}
	g := da.NewGraph(vertices, edges, []string{"", "Main Street"})

	rtree := spatialindex.NewRtree()
	rtree.Build(g, 0.05, zap.NewNop())

	return engine.NewRegion(
		osmparser.NewBoundingBox(-0.01, -0.01, 0.01, 0.01),
		g, rtree, routing.NewRoutingEngine(g, rtree, zap.NewNop()))
}

func newLineSimulation(t *testing.T, now time.Time) *Simulation {
	t.Helper()
	setSimulationConfig()
	return NewSimulation("sim-1", "routine", lineRegion(),
		routeOver(lineCoords(), 10), 1.0, now)
}

func TestTickIsIdempotentAtOneInstant(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)

	at := t0.Add(10 * time.Second)
	first := sim.Tick(at)
	second := sim.Tick(at)

	assert.Equal(t, first, second)
	assert.Equal(t, PhaseActive, first.Phase)
	assert.InDelta(t, 10, first.SimTime, 1e-9)
	assert.InDelta(t, 100, first.Distance, 1e-6)
	assert.Equal(t, "Main Street", first.Street)
	assert.Equal(t, da.DEPART, first.Maneuver)
}

func TestTickSignalsArrivalOnce(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	total := sim.Route().GetTotalTime()

	state := sim.Tick(t0.Add(time.Minute))
	assert.Equal(t, PhaseArrived, state.Phase)
	assert.True(t, state.JustArrived)
	assert.InDelta(t, total, state.SimTime, 1e-9)
	assert.Zero(t, state.RemainingDistance)

	again := sim.Tick(t0.Add(2 * time.Minute))
	assert.Equal(t, PhaseArrived, again.Phase)
	assert.False(t, again.JustArrived)
	assert.InDelta(t, total, again.SimTime, 1e-9)
}

func TestInjectObstacleFreezesBeforeIt(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	coords := lineCoords()

	// obstacle on the last point while the vehicle is ~50m in. the 100m
	// stand-off puts the freeze on the second-to-last point.
	req, frozen, err := sim.InjectObstacle(t0.Add(5*time.Second),
		[]geo.Coordinate{coords[3]})
	require.NoError(t, err)
	require.True(t, frozen)
	require.NotNil(t, req)

	assert.Equal(t, PhaseFrozen, sim.Phase())
	assert.Equal(t, uint64(1), req.Generation)
	assert.Equal(t, coords[2], req.Origin)
	assert.Equal(t, coords[3], req.Destination)
	assert.True(t, req.Blocked.Contains(2))
	assert.True(t, req.Blocked.Contains(5))
	assert.False(t, req.Blocked.Contains(0))

	// frozen vehicle holds the freeze point no matter how long the reroute
	// takes.
	state := sim.Tick(t0.Add(time.Hour))
	assert.Equal(t, PhaseFrozen, state.Phase)
	assert.InDelta(t, coords[2].GetLat(), state.Lat, 1e-12)
	assert.InDelta(t, coords[2].GetLon(), state.Lon, 1e-12)
	assert.InDelta(t, sim.Route().GetCumTime()[2], state.SimTime, 1e-9)
	assert.False(t, state.JustArrived)
}

func TestInjectObstacleOffRouteIsNoOp(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)

	req, frozen, err := sim.InjectObstacle(t0.Add(time.Second),
		[]geo.Coordinate{geo.NewCoordinate(0.05, 0.05)})
	require.NoError(t, err)
	assert.False(t, frozen)
	assert.Nil(t, req)
	assert.Equal(t, PhaseActive, sim.Phase())
}

func TestInjectObstacleWhileFrozenBumpsGeneration(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	coords := lineCoords()

	first, frozen, err := sim.InjectObstacle(t0.Add(5*time.Second),
		[]geo.Coordinate{coords[3]})
	require.NoError(t, err)
	require.True(t, frozen)

	second, frozen, err := sim.InjectObstacle(t0.Add(6*time.Second),
		[]geo.Coordinate{coords[0]})
	require.NoError(t, err)
	require.True(t, frozen)

	assert.Equal(t, first.Generation+1, second.Generation)
	// the freeze point does not move on a repeat injection.
	assert.Equal(t, first.Origin, second.Origin)
	assert.True(t, second.Blocked.Contains(0))
	assert.True(t, second.Blocked.Contains(2))
}

func TestInjectObstacleAfterArrival(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	sim.Tick(t0.Add(time.Minute))

	_, _, err := sim.InjectObstacle(t0.Add(2*time.Minute),
		[]geo.Coordinate{lineCoords()[3]})
	assert.Error(t, err)
}

func TestApplySpliceRejectsStaleGeneration(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	coords := lineCoords()

	_, _, err := sim.InjectObstacle(t0.Add(5*time.Second), []geo.Coordinate{coords[3]})
	require.NoError(t, err)
	_, _, err = sim.InjectObstacle(t0.Add(6*time.Second), []geo.Coordinate{coords[0]})
	require.NoError(t, err)

	detour := routeOver([]geo.Coordinate{
		coords[2],
		geo.NewCoordinate(0.001, 0.002),
		geo.NewCoordinate(0.002, 0.002),
	}, 10)

	// result computed for the first obstacle set arrives after the second
	// injection: discarded, vehicle stays frozen.
	err = sim.ApplySplice(1, detour)
	assert.Error(t, err)
	assert.Equal(t, PhaseFrozen, sim.Phase())
}

func TestApplySpliceRequiresFrozenPhase(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)

	detour := routeOver(lineCoords(), 10)
	err := sim.ApplySplice(0, detour)
	assert.Error(t, err)
}

func TestApplySpliceKeepsPositionAndClockContinuous(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	coords := lineCoords()

	req, _, err := sim.InjectObstacle(t0.Add(5*time.Second), []geo.Coordinate{coords[3]})
	require.NoError(t, err)

	before := sim.Tick(t0.Add(30 * time.Second))

	// fresh route departs exactly at the freeze coordinate, heading north.
	detour := routeOver([]geo.Coordinate{
		coords[2],
		geo.NewCoordinate(0.001, 0.002),
		geo.NewCoordinate(0.002, 0.002),
	}, 12)

	require.NoError(t, sim.ApplySplice(req.Generation, detour))
	assert.Equal(t, PhaseAwaitingSplice, sim.Phase())

	// the vehicle is already holding the freeze point, so the next tick
	// commits the staged route.
	spliceAt := t0.Add(31 * time.Second)
	after := sim.Tick(spliceAt)
	assert.Equal(t, PhaseActive, after.Phase)
	assert.InDelta(t, before.Lat, after.Lat, 1e-12)
	assert.InDelta(t, before.Lon, after.Lon, 1e-12)
	assert.InDelta(t, before.SimTime, after.SimTime, 1e-9)
	assert.InDelta(t, before.Distance, after.Distance, 1e-6)
	assert.GreaterOrEqual(t, after.Generation, before.Generation)

	// clock and odometer keep advancing from the splice point.
	later := sim.Tick(spliceAt.Add(10 * time.Second))
	assert.Greater(t, later.SimTime, after.SimTime)
	assert.Greater(t, later.Distance, after.Distance)
	assert.Equal(t, PhaseActive, later.Phase)
}

func TestApplySplicePrefixesBacktrackLeg(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	coords := lineCoords()

	req, _, err := sim.InjectObstacle(t0.Add(5*time.Second), []geo.Coordinate{coords[3]})
	require.NoError(t, err)

	// fresh route departs one polyline point behind the freeze, so the
	// vehicle has to retrace the old path first.
	detour := routeOver([]geo.Coordinate{
		coords[1],
		geo.NewCoordinate(0.001, 0.001),
		geo.NewCoordinate(0.002, 0.001),
	}, 10)

	require.NoError(t, sim.ApplySplice(req.Generation, detour))
	sim.Tick(t0.Add(31 * time.Second))

	combined := sim.Route()
	steps := combined.GetSteps()
	require.NotEmpty(t, steps)

	backtrackDist := geo.HaversineMeter(coords[2], coords[1])
	assert.Equal(t, da.BACKTRACK, steps[0].GetManeuver())
	assert.Equal(t, "Main Street", steps[0].GetStreet())
	assert.Zero(t, steps[0].GetStartDistance())
	assert.InDelta(t, backtrackDist, steps[0].GetEndDistance(), 1e-6)

	// new route's steps shift by the backtrack distance and keep the exact
	// partition.
	for i := 1; i < len(steps); i++ {
		assert.Equal(t, steps[i-1].GetEndDistance(), steps[i].GetStartDistance())
	}
	assert.InDelta(t, detour.GetTotalDistance()+backtrackDist,
		combined.GetTotalDistance(), 1e-6)

	// combined time runs at the fresh route's implied speed end to end.
	impliedSpeed := detour.GetTotalDistance() / detour.GetTotalTime()
	assert.InDelta(t, combined.GetTotalDistance()/impliedSpeed,
		combined.GetTotalTime(), 1e-6)

	// the combined route still starts at the freeze coordinate.
	start := combined.GetCoords()[0]
	assert.Equal(t, coords[2], start)
}

func TestSpliceHeldUntilVehicleReachesFreezePoint(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	coords := lineCoords()
	orig := sim.Route()

	// obstacle lands while the vehicle is ~50m in; the freeze point sits at
	// ~222m, tens of sim-seconds ahead.
	req, _, err := sim.InjectObstacle(t0.Add(5*time.Second), []geo.Coordinate{coords[3]})
	require.NoError(t, err)
	freezeTime := orig.GetCumTime()[2]
	freezeDist := orig.GetCumDistance()[2]

	detour := routeOver([]geo.Coordinate{
		coords[2],
		geo.NewCoordinate(0.001, 0.002),
		geo.NewCoordinate(0.002, 0.002),
	}, 10)

	// the search returns almost immediately, long before the vehicle gets
	// there. the result stays pending and the vehicle does not jump.
	before := sim.Tick(t0.Add(6 * time.Second))
	require.NoError(t, sim.ApplySplice(req.Generation, detour))
	assert.Equal(t, PhaseAwaitingSplice, sim.Phase())

	after := sim.Tick(t0.Add(6 * time.Second))
	assert.InDelta(t, before.Lat, after.Lat, 1e-12)
	assert.InDelta(t, before.Lon, after.Lon, 1e-12)
	assert.InDelta(t, before.SimTime, after.SimTime, 1e-9)
	assert.InDelta(t, before.Distance, after.Distance, 1e-6)
	assert.Equal(t, PhaseAwaitingSplice, after.Phase)

	// still rolling toward the freeze point on the old polyline.
	mid := sim.Tick(t0.Add(15 * time.Second))
	assert.Equal(t, PhaseAwaitingSplice, mid.Phase)
	assert.InDelta(t, 15, mid.SimTime, 1e-9)
	assert.InDelta(t, 150, mid.Distance, 1e-6)

	// the swap lands on the first tick at or past the freeze point,
	// continuous in position, clock, and odometer.
	swapped := sim.Tick(t0.Add(23 * time.Second))
	assert.Equal(t, PhaseActive, swapped.Phase)
	assert.InDelta(t, coords[2].GetLat(), swapped.Lat, 1e-12)
	assert.InDelta(t, coords[2].GetLon(), swapped.Lon, 1e-12)
	assert.InDelta(t, freezeTime, swapped.SimTime, 1e-9)
	assert.InDelta(t, freezeDist, swapped.Distance, 1e-6)

	later := sim.Tick(t0.Add(33 * time.Second))
	assert.Equal(t, PhaseActive, later.Phase)
	assert.Greater(t, later.SimTime, swapped.SimTime)
	assert.Greater(t, later.Distance, swapped.Distance)
	assert.Greater(t, later.Lat, 0.0)
}

func TestInjectObstacleWhileAwaitingSpliceDropsPendingRoute(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	coords := lineCoords()

	req, _, err := sim.InjectObstacle(t0.Add(5*time.Second), []geo.Coordinate{coords[3]})
	require.NoError(t, err)

	detour := routeOver([]geo.Coordinate{
		coords[2],
		geo.NewCoordinate(0.001, 0.002),
		geo.NewCoordinate(0.002, 0.002),
	}, 10)
	require.NoError(t, sim.ApplySplice(req.Generation, detour))
	require.Equal(t, PhaseAwaitingSplice, sim.Phase())

	second, frozen, err := sim.InjectObstacle(t0.Add(6*time.Second),
		[]geo.Coordinate{coords[0]})
	require.NoError(t, err)
	require.True(t, frozen)
	assert.Equal(t, req.Generation+1, second.Generation)
	assert.Equal(t, PhaseFrozen, sim.Phase())

	// the staged route never swaps in: the vehicle holds the freeze point.
	state := sim.Tick(t0.Add(time.Hour))
	assert.Equal(t, PhaseFrozen, state.Phase)
	assert.InDelta(t, coords[2].GetLat(), state.Lat, 1e-12)
	assert.InDelta(t, coords[2].GetLon(), state.Lon, 1e-12)
}

func TestFreezePointKeepsStandoffOnCoarseGeometry(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	coords := lineCoords()

	// stand-off of 100m against ~111m point spacing: the freeze must land on
	// the point before the obstacle, not on the obstacle itself.
	obstacle := coords[2]
	req, frozen, err := sim.InjectObstacle(t0.Add(time.Second),
		[]geo.Coordinate{obstacle})
	require.NoError(t, err)
	require.True(t, frozen)

	assert.Equal(t, coords[1], req.Origin)
	standoffM := viper.GetFloat64("simulation.standoff_meters")
	assert.GreaterOrEqual(t, geo.HaversineMeter(req.Origin, obstacle), standoffM)
}

func TestObstacleBeyondLookaheadDoesNotFreeze(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	coords := lineCoords()
	viper.Set("simulation.lookahead_meters", 150.0)

	// obstacle ~222m past the vehicle, beyond the 150m look-ahead: the
	// blocked set widens but the vehicle keeps moving.
	req, frozen, err := sim.InjectObstacle(t0.Add(time.Second),
		[]geo.Coordinate{coords[3]})
	require.NoError(t, err)
	assert.False(t, frozen)
	assert.Nil(t, req)
	assert.Equal(t, PhaseActive, sim.Phase())

	// once the vehicle gets close enough the same obstacle freezes it.
	viper.Set("simulation.lookahead_meters", 10000.0)
	req, frozen, err = sim.InjectObstacle(t0.Add(2*time.Second),
		[]geo.Coordinate{coords[3]})
	require.NoError(t, err)
	require.True(t, frozen)
	assert.Equal(t, coords[2], req.Origin)
	assert.True(t, req.Blocked.Contains(2))
}

func TestRerouteFailedRecordsMatchingGenerationOnly(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sim := newLineSimulation(t, t0)
	coords := lineCoords()

	req, _, err := sim.InjectObstacle(t0.Add(5*time.Second), []geo.Coordinate{coords[3]})
	require.NoError(t, err)

	sim.RerouteFailed(req.Generation+1, assert.AnError)
	assert.NoError(t, sim.LastRerouteError())

	sim.RerouteFailed(req.Generation, assert.AnError)
	assert.Error(t, sim.LastRerouteError())
	assert.Equal(t, PhaseFrozen, sim.Phase())
}
