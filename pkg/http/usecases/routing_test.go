package usecases

import (
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opennavx/navsim/pkg"
	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/engine"
	"github.com/opennavx/navsim/pkg/engine/routing"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/osmparser"
	"github.com/opennavx/navsim/pkg/spatialindex"
	"github.com/opennavx/navsim/pkg/util"
)

type singleRegionProvider struct {
	region *engine.Region
}

func (p *singleRegionProvider) RegionFor(osmparser.BoundingBox) (*engine.Region, error) {
	return p.region, nil
}

func (p *singleRegionProvider) RegionAround(lat, lon float64) (*engine.Region, error) {
	return p.region, nil
}

// newTestRoutingService serves a three-vertex line along the equator with one
// edge per direction between neighbors.
func newTestRoutingService(t *testing.T) *RoutingService {
	t.Helper()

	viper.Set("routing.max_snap_distance_km", 0.35)
	viper.Set("routing.block_radius_meters", 100.0)
	viper.Set("routing.exploration_cap", 2500)
	viper.Set("guidance.turn_threshold_degrees", 35.0)
	viper.Set("guidance.min_step_length_meters", 30.0)
	viper.Set("guidance.scenario_multipliers.routine", 1.0)

	vertices := []da.Vertex{
		*da.NewVertex(0, 0.000, 0, 0),
		*da.NewVertex(0, 0.001, 1, 1),
		*da.NewVertex(0, 0.002, 2, 2),
	}
	edge := func(id, tail, head da.Index) da.DirectedEdge {
		tv, hv := vertices[tail], vertices[head]
		return da.NewDirectedEdge(id, tail, head,
			geo.HaversineMeter(tv.Coordinate(), hv.Coordinate()), 36, 1, pkg.RESIDENTIAL, false,
			[]geo.Coordinate{tv.Coordinate(), hv.Coordinate()})
	}
	edges := []da.DirectedEdge{
		edge(0, 0, 1), edge(1, 1, 2), edge(2, 1, 0), edge(3, 2, 1),
	}
	g := da.NewGraph(vertices, edges, []string{"", "Main Street"})

	rtree := spatialindex.NewRtree()
	rtree.Build(g, 0.05, zap.NewNop())

	region := engine.NewRegion(
		osmparser.NewBoundingBox(-0.01, -0.01, 0.01, 0.01),
		g, rtree, routing.NewRoutingEngine(g, rtree, zap.NewNop()))

	return NewRoutingService(zap.NewNop(), &singleRegionProvider{region: region})
}

func TestComputeRouteAppliesBlockedEdges(t *testing.T) {
	rs := newTestRoutingService(t)

	route, polyline, _, err := rs.ComputeRoute(0, 0, 0, 0.002,
		"routine", routing.AlgorithmBaseline, nil, false)
	require.NoError(t, err)
	require.NotNil(t, route)
	assert.NotEmpty(t, polyline)
	assert.InDelta(t, 222.39, route.GetTotalDistance(), 0.1)

	// an obstacle on the middle vertex blocks the only path through.
	_, _, _, err = rs.ComputeRoute(0, 0, 0, 0.002,
		"routine", routing.AlgorithmBaseline,
		[]geo.Coordinate{geo.NewCoordinate(0, 0.001)}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrUnreachable))
}
