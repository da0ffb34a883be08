package simulation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/opennavx/navsim/pkg/concurrent"
	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/engine"
	"github.com/opennavx/navsim/pkg/engine/routing"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/guidance"
	"github.com/opennavx/navsim/pkg/util"
)

// Manager owns the live simulations and runs their reroutes on a shared
// worker pool so a burst of obstacle injections cannot spawn unbounded search
// goroutines.
type Manager struct {
	mu      sync.RWMutex
	sims    map[string]*Simulation
	pool    *concurrent.Pool
	log     *zap.Logger
	counter uint64

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(log *zap.Logger) *Manager {
	workers := viper.GetInt("simulation.reroute_workers")
	if workers <= 0 {
		workers = 8
	}
	queue := viper.GetInt("simulation.reroute_queue")
	if queue <= 0 {
		queue = workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sims:   make(map[string]*Simulation),
		pool:   concurrent.NewPool(workers, queue, 1),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers a new simulation over validated route metadata.
func (m *Manager) Start(region *engine.Region, route *da.RouteMeta, scenario string) (*Simulation, error) {
	if err := route.Validate(); err != nil {
		return nil, err
	}

	multiplier := viper.GetFloat64("simulation.time_multiplier")
	id := fmt.Sprintf("sim-%d", atomic.AddUint64(&m.counter, 1))
	sim := NewSimulation(id, scenario, region, route, multiplier, time.Now())

	m.mu.Lock()
	m.sims[id] = sim
	m.mu.Unlock()

	m.log.Info("simulation started",
		zap.String("simulationId", id),
		zap.String("scenario", scenario),
		zap.Float64("totalDistance", route.GetTotalDistance()),
		zap.Float64("totalTime", route.GetTotalTime()))
	return sim, nil
}

func (m *Manager) Get(id string) (*Simulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sim, ok := m.sims[id]
	if !ok {
		return nil, util.WrapErrorf(util.ErrNotFound, util.ErrNotFound,
			"simulation %s not found", id)
	}
	return sim, nil
}

func (m *Manager) List() []*Simulation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sims := make([]*Simulation, 0, len(m.sims))
	for _, sim := range m.sims {
		sims = append(sims, sim)
	}
	return sims
}

// Cancel removes a simulation. bumping the generation first makes any reroute
// still in flight discard itself when it completes.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	sim, ok := m.sims[id]
	if ok {
		delete(m.sims, id)
	}
	m.mu.Unlock()

	if !ok {
		return util.WrapErrorf(util.ErrNotFound, util.ErrNotFound,
			"simulation %s not found", id)
	}

	sim.mu.Lock()
	sim.generation++
	sim.mu.Unlock()

	m.log.Info("simulation cancelled", zap.String("simulationId", id))
	return nil
}

// Shutdown stops accepting reroute work and invalidates pending results.
func (m *Manager) Shutdown() {
	m.cancel()
}

// InjectObstacle forwards obstacles to a simulation and, when the route is
// affected, schedules the reroute. returns whether the vehicle froze.
func (m *Manager) InjectObstacle(id string, obstacles []geo.Coordinate) (bool, error) {
	sim, err := m.Get(id)
	if err != nil {
		return false, err
	}

	req, frozen, err := sim.InjectObstacle(time.Now(), obstacles)
	if err != nil {
		return false, err
	}
	if !frozen {
		return false, nil
	}

	scheduleTimeout := viper.GetDuration("simulation.reroute_schedule_timeout")
	if scheduleTimeout <= 0 {
		scheduleTimeout = time.Second
	}

	err = m.pool.ScheduleTimeout(scheduleTimeout, func() {
		m.runReroute(sim, req)
	})
	if err != nil {
		sim.RerouteFailed(req.Generation, err)
		return true, util.WrapErrorf(err, util.ErrInternalServerError,
			"reroute for simulation %s could not be scheduled", id)
	}
	return true, nil
}

// runReroute searches a replacement route around the blocked edges and
// stages the splice. stale generations and shutdown are silently dropped; an
// unreachable destination leaves the vehicle frozen with the error recorded.
func (m *Manager) runReroute(sim *Simulation, req *RerouteRequest) {
	if util.StopConcurrentOperation(m.ctx) {
		return
	}
	if sim.Generation() != req.Generation {
		return
	}

	result, err := sim.region.Routing().Search(m.ctx, routing.PathRequest{
		Origin:       req.Origin,
		Destination:  req.Destination,
		Algorithm:    req.Algorithm,
		BlockedEdges: req.Blocked,
	})
	if err != nil {
		m.log.Warn("reroute search failed",
			zap.String("simulationId", sim.Id()),
			zap.Uint64("generation", req.Generation),
			zap.Error(err))
		sim.RerouteFailed(req.Generation, err)
		return
	}

	synth := guidance.NewSynthesizer(sim.region.Graph(), m.log)
	newRoute, err := synth.Synthesize(result.EdgePath, req.Scenario, result.Algorithm)
	if err != nil {
		m.log.Warn("reroute synthesis failed",
			zap.String("simulationId", sim.Id()),
			zap.Uint64("generation", req.Generation),
			zap.Error(err))
		sim.RerouteFailed(req.Generation, err)
		return
	}

	if err := sim.ApplySplice(req.Generation, newRoute); err != nil {
		m.log.Info("reroute result discarded",
			zap.String("simulationId", sim.Id()),
			zap.Uint64("generation", req.Generation),
			zap.Error(err))
		return
	}

	m.log.Info("reroute staged",
		zap.String("simulationId", sim.Id()),
		zap.Uint64("generation", req.Generation),
		zap.Float64("newTotalDistance", newRoute.GetTotalDistance()))
}
