package usecases

import (
	"context"
	"math"

	"go.uber.org/zap"

	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/engine"
	"github.com/opennavx/navsim/pkg/engine/routing"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/guidance"
	"github.com/opennavx/navsim/pkg/osmparser"
)

type RoutingService struct {
	log     *zap.Logger
	regions RegionProvider
}

func NewRoutingService(log *zap.Logger, regions RegionProvider) *RoutingService {
	return &RoutingService{
		log:     log,
		regions: regions,
	}
}

// ComputeRoute answers one routing query: resolve the region covering both
// endpoints, search around the blocked edges, and synthesize the route
// metadata.
func (rs *RoutingService) ComputeRoute(origLat, origLon, dstLat, dstLon float64,
	scenario, algorithm string, obstacles []geo.Coordinate,
	includeExploration bool) (*da.RouteMeta, string, *routing.PathResult, error) {

	route, _, result, err := rs.computeRouteInRegion(origLat, origLon, dstLat, dstLon,
		scenario, algorithm, obstacles, includeExploration)
	if err != nil {
		return nil, "", nil, err
	}

	return route, geo.PolylineFromCoords(route.GetCoords()), result, nil
}

func (rs *RoutingService) computeRouteInRegion(origLat, origLon, dstLat, dstLon float64,
	scenario, algorithm string, obstacles []geo.Coordinate,
	includeExploration bool) (*da.RouteMeta, *engine.Region, *routing.PathResult, error) {

	region, err := rs.regions.RegionFor(coveringBBox(origLat, origLon, dstLat, dstLon))
	if err != nil {
		return nil, nil, nil, err
	}

	req := routing.PathRequest{
		Origin:             geo.NewCoordinate(origLat, origLon),
		Destination:        geo.NewCoordinate(dstLat, dstLon),
		Algorithm:          algorithm,
		CaptureExploration: includeExploration,
	}
	if len(obstacles) > 0 {
		req.BlockedEdges = region.Routing().BlockedEdgesNear(obstacles)
	}

	result, err := region.Routing().Search(context.Background(), req)
	if err != nil {
		return nil, nil, nil, err
	}

	synth := guidance.NewSynthesizer(region.Graph(), rs.log)
	route, err := synth.Synthesize(result.EdgePath, scenario, result.Algorithm)
	if err != nil {
		return nil, nil, nil, err
	}

	return route, region, &result, nil
}

func coveringBBox(origLat, origLon, dstLat, dstLon float64) osmparser.BoundingBox {
	return osmparser.NewBoundingBox(
		math.Min(origLat, dstLat), math.Min(origLon, dstLon),
		math.Max(origLat, dstLat), math.Max(origLon, dstLon))
}
