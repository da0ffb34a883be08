package controllers

import (
	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/engine/routing"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/simulation"
)

type computeRoutesRequest struct {
	OriginLat          float64 `json:"origin_lat" validate:"required,min=-90,max=90"`
	OriginLon          float64 `json:"origin_lon" validate:"required,min=-180,max=180"`
	DestinationLat     float64 `json:"destination_lat" validate:"required,min=-90,max=90"`
	DestinationLon     float64 `json:"destination_lon" validate:"required,min=-180,max=180"`
	Scenario           string  `json:"scenario" validate:"omitempty,oneof=routine trauma cardiac_arrest"`
	Algorithm          string  `json:"algorithm" validate:"omitempty,oneof=baseline alternate"`
	IncludeExploration bool    `json:"include_exploration"`

	// [lat, lng] pairs; edges near each point are excluded from the search.
	BlockedEdges [][]float64 `json:"blocked_edges" validate:"omitempty,dive,len=2"`
}

type navStepResponse struct {
	Id            int     `json:"id"`
	Instruction   string  `json:"instruction"`
	Street        string  `json:"street"`
	StartDistance float64 `json:"start_distance"`
	EndDistance   float64 `json:"end_distance"`
	Maneuver      string  `json:"maneuver"`
}

type routeResponse struct {
	Eta             float64           `json:"eta"`
	Dist            float64           `json:"distance"`
	Path            string            `json:"path"`
	Coords          [][2]float64      `json:"coords"`
	CumDistance     []float64         `json:"cum_distance"`
	CumTime         []float64         `json:"cum_time"`
	Steps           []navStepResponse `json:"steps"`
	Algorithm       string            `json:"algorithm"`
	SnappedStart    []float64         `json:"snapped_start,omitempty"`
	SnappedEnd      []float64         `json:"snapped_end,omitempty"`
	ExecutionTimeMs float64           `json:"execution_time_ms,omitempty"`
	Exploration     [][4]float64      `json:"exploration,omitempty"`
	ExploredCount   int               `json:"explored_count,omitempty"`
}

func NewRouteResponse(route *da.RouteMeta, polyline string, result *routing.PathResult) routeResponse {
	coords := make([][2]float64, len(route.GetCoords()))
	for i, c := range route.GetCoords() {
		coords[i] = [2]float64{c.GetLat(), c.GetLon()}
	}

	steps := make([]navStepResponse, len(route.GetSteps()))
	for i, s := range route.GetSteps() {
		steps[i] = navStepResponse{
			Id:            s.GetId(),
			Instruction:   s.GetInstruction(),
			Street:        s.GetStreet(),
			StartDistance: s.GetStartDistance(),
			EndDistance:   s.GetEndDistance(),
			Maneuver:      string(s.GetManeuver()),
		}
	}

	resp := routeResponse{
		Eta:         route.GetTotalTime(),
		Dist:        route.GetTotalDistance(),
		Path:        polyline,
		Coords:      coords,
		CumDistance: route.GetCumDistance(),
		CumTime:     route.GetCumTime(),
		Steps:       steps,
		Algorithm:   route.GetAlgorithm(),
	}

	if result != nil {
		resp.SnappedStart = []float64{result.SnappedOrigin.GetLat(), result.SnappedOrigin.GetLon()}
		resp.SnappedEnd = []float64{result.SnappedDestination.GetLat(), result.SnappedDestination.GetLon()}
		resp.ExecutionTimeMs = float64(result.SearchDuration.Microseconds()) / 1000.0
		if result.Exploration != nil {
			resp.Exploration = result.Exploration.Segments()
			resp.ExploredCount = result.Exploration.TotalRelaxed()
		}
	}
	return resp
}

type startSimulationRequest struct {
	OriginLat      float64 `json:"origin_lat" validate:"required,min=-90,max=90"`
	OriginLon      float64 `json:"origin_lon" validate:"required,min=-180,max=180"`
	DestinationLat float64 `json:"destination_lat" validate:"required,min=-90,max=90"`
	DestinationLon float64 `json:"destination_lon" validate:"required,min=-180,max=180"`
	Scenario       string  `json:"scenario" validate:"omitempty,oneof=routine trauma cardiac_arrest"`
	Algorithm      string  `json:"algorithm" validate:"omitempty,oneof=baseline alternate"`
}

type startSimulationResponse struct {
	SimulationId string        `json:"simulation_id"`
	Route        routeResponse `json:"route"`
}

func NewStartSimulationResponse(id string, route *da.RouteMeta, polyline string) startSimulationResponse {
	return startSimulationResponse{
		SimulationId: id,
		Route:        NewRouteResponse(route, polyline, nil),
	}
}

type obstacleCoordinate struct {
	Lat float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lon float64 `json:"lon" validate:"required,min=-180,max=180"`
}

type injectObstacleRequest struct {
	Obstacles []obstacleCoordinate `json:"obstacles" validate:"required,min=1,dive"`
}

func (req injectObstacleRequest) ToCoordinates() []geo.Coordinate {
	coords := make([]geo.Coordinate, len(req.Obstacles))
	for i, o := range req.Obstacles {
		coords[i] = geo.NewCoordinate(o.Lat, o.Lon)
	}
	return coords
}

type injectObstacleResponse struct {
	Frozen bool `json:"frozen"`
}

type listSimulationsResponse struct {
	Simulations []simulation.LiveState `json:"simulations"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
