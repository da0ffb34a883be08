package usecases

import (
	"time"

	"go.uber.org/zap"

	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/simulation"
)

type SimulationService struct {
	log     *zap.Logger
	routing *RoutingService
	manager *simulation.Manager
}

func NewSimulationService(log *zap.Logger, routing *RoutingService,
	manager *simulation.Manager) *SimulationService {
	return &SimulationService{
		log:     log,
		routing: routing,
		manager: manager,
	}
}

// StartSimulation computes the initial route and registers a vehicle on it.
func (ss *SimulationService) StartSimulation(origLat, origLon, dstLat, dstLon float64,
	scenario, algorithm string) (*simulation.Simulation, string, error) {

	route, region, _, err := ss.routing.computeRouteInRegion(origLat, origLon, dstLat, dstLon,
		scenario, algorithm, nil, false)
	if err != nil {
		return nil, "", err
	}

	sim, err := ss.manager.Start(region, route, scenario)
	if err != nil {
		return nil, "", err
	}
	return sim, geo.PolylineFromCoords(route.GetCoords()), nil
}

func (ss *SimulationService) SimulationState(id string) (simulation.LiveState, error) {
	sim, err := ss.manager.Get(id)
	if err != nil {
		return simulation.LiveState{}, err
	}
	return sim.Tick(time.Now()), nil
}

func (ss *SimulationService) InjectObstacle(id string, obstacles []geo.Coordinate) (bool, error) {
	return ss.manager.InjectObstacle(id, obstacles)
}

func (ss *SimulationService) CancelSimulation(id string) error {
	return ss.manager.Cancel(id)
}

func (ss *SimulationService) ListSimulations() []simulation.LiveState {
	now := time.Now()
	sims := ss.manager.List()

	states := make([]simulation.LiveState, 0, len(sims))
	for _, sim := range sims {
		states = append(states, sim.Tick(now))
	}
	return states
}
