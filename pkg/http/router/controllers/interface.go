package controllers

import (
	"github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/engine/routing"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/simulation"
)

type RoutingService interface {
	ComputeRoute(origLat, origLon, dstLat, dstLon float64, scenario, algorithm string,
		obstacles []geo.Coordinate, includeExploration bool) (*datastructure.RouteMeta, string, *routing.PathResult, error)
}

type SimulationService interface {
	StartSimulation(origLat, origLon, dstLat, dstLon float64, scenario,
		algorithm string) (*simulation.Simulation, string, error)
	SimulationState(id string) (simulation.LiveState, error)
	InjectObstacle(id string, obstacles []geo.Coordinate) (bool, error)
	CancelSimulation(id string) error
	ListSimulations() []simulation.LiveState
}
