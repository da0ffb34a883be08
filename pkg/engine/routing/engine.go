package routing

import (
	"context"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/spatialindex"
	"github.com/opennavx/navsim/pkg/util"
)

// RoutingEngine answers point-to-point path queries over one loaded region:
// snap the query coordinates to graph vertices, optionally mask out blocked
// edges, and run the requested search algorithm.
type RoutingEngine struct {
	graph *da.Graph
	rtree *spatialindex.Rtree
	log   *zap.Logger
}

func NewRoutingEngine(graph *da.Graph, rtree *spatialindex.Rtree, log *zap.Logger) *RoutingEngine {
	return &RoutingEngine{
		graph: graph,
		rtree: rtree,
		log:   log,
	}
}

func (re *RoutingEngine) Graph() *da.Graph {
	return re.graph
}

type PathRequest struct {
	Origin             geo.Coordinate
	Destination        geo.Coordinate
	Algorithm          string
	BlockedEdges       da.EdgeSet
	CaptureExploration bool
}

type PathResult struct {
	VertexPath         []da.Index
	EdgePath           []da.Index
	DistanceMeters     float64
	Algorithm          string
	SnappedOrigin      geo.Coordinate
	SnappedDestination geo.Coordinate
	SearchDuration     time.Duration
	Exploration        *ExplorationRecorder
}

// NearestNode snaps a coordinate to the closest graph vertex within the
// configured snap radius.
func (re *RoutingEngine) NearestNode(point geo.Coordinate) (da.Index, error) {
	maxSnapKm := viper.GetFloat64("routing.max_snap_distance_km")

	nodeId, found := re.rtree.NearestNode(point.GetLat(), point.GetLon(), maxSnapKm)
	if !found {
		return da.INVALID_VERTEX_ID, util.WrapErrorf(util.ErrSnapFailed, util.ErrSnapFailed,
			"no road vertex within %.0f m of (%f, %f)", maxSnapKm*1000, point.GetLat(), point.GetLon())
	}
	return nodeId, nil
}

// BlockedEdgesNear resolves obstacle coordinates to the set of directed edges
// they disable. an edge counts as blocked when either endpoint or the segment
// between them passes within the configured block radius of an obstacle.
func (re *RoutingEngine) BlockedEdgesNear(obstacles []geo.Coordinate) da.EdgeSet {
	blockRadiusM := viper.GetFloat64("routing.block_radius_meters")
	blockRadiusKm := blockRadiusM / 1000.0

	blocked := da.NewEdgeSet()
	for _, obstacle := range obstacles {
		// pad the vertex query so edges that pass through the radius without
		// an endpoint inside it still get visited through a nearby endpoint.
		nearby := re.rtree.SearchWithinRadius(obstacle.GetLat(), obstacle.GetLon(), 2*blockRadiusKm)

		for _, u := range nearby {
			re.graph.ForOutEdgesOf(u, func(e *da.DirectedEdge) {
				if blocked.Contains(e.GetEdgeId()) {
					return
				}
				if re.edgeWithinRadius(e, obstacle, blockRadiusM) {
					blocked.Add(e.GetEdgeId())
				}
			})
			re.graph.ForInEdgesOf(u, func(e *da.DirectedEdge) {
				if blocked.Contains(e.GetEdgeId()) {
					return
				}
				if re.edgeWithinRadius(e, obstacle, blockRadiusM) {
					blocked.Add(e.GetEdgeId())
				}
			})
		}
	}
	return blocked
}

func (re *RoutingEngine) edgeWithinRadius(e *da.DirectedEdge, obstacle geo.Coordinate, radiusM float64) bool {
	tailLat, tailLon := re.graph.GetVertexCoordinates(e.GetTail())
	tail := geo.NewCoordinate(tailLat, tailLon)
	if geo.HaversineMeter(tail, obstacle) <= radiusM {
		return true
	}

	headLat, headLon := re.graph.GetVertexCoordinates(e.GetHead())
	head := geo.NewCoordinate(headLat, headLon)
	if geo.HaversineMeter(head, obstacle) <= radiusM {
		return true
	}

	return geo.PointLinePerpendicularDistance(tail, head, obstacle) <= radiusM
}

// Search snaps the request endpoints and runs the requested algorithm.
// returns util.ErrSnapFailed when an endpoint is off the road network and
// util.ErrUnreachable when no path survives the blocked-edge mask.
func (re *RoutingEngine) Search(ctx context.Context, req PathRequest) (PathResult, error) {
	source, err := re.NearestNode(req.Origin)
	if err != nil {
		return PathResult{}, err
	}
	target, err := re.NearestNode(req.Destination)
	if err != nil {
		return PathResult{}, err
	}

	if util.StopConcurrentOperation(ctx) {
		return PathResult{}, ctx.Err()
	}

	var searchGraph SearchGraph = re.graph
	if len(req.BlockedEdges) > 0 {
		searchGraph = re.graph.Masked(req.BlockedEdges)
	}

	var recorder *ExplorationRecorder
	if req.CaptureExploration {
		recorder = NewExplorationRecorder(viper.GetInt("routing.exploration_cap"))
	}

	algo := NewSearchAlgorithm(req.Algorithm)

	start := time.Now()
	vertexPath, edgePath, distMeters, found := algo.ShortestPath(searchGraph, source, target, recorder)
	elapsed := time.Since(start)

	if !found {
		return PathResult{}, util.WrapErrorf(util.ErrUnreachable, util.ErrUnreachable,
			"no path from vertex %d to vertex %d with %d blocked edges",
			source, target, len(req.BlockedEdges))
	}

	re.log.Debug("shortest path query done",
		zap.String("algorithm", algo.Label()),
		zap.Float64("distanceMeters", distMeters),
		zap.Int("pathVertices", len(vertexPath)),
		zap.Duration("searchDuration", elapsed),
	)

	srcLat, srcLon := re.graph.GetVertexCoordinates(source)
	dstLat, dstLon := re.graph.GetVertexCoordinates(target)

	return PathResult{
		VertexPath:         vertexPath,
		EdgePath:           edgePath,
		DistanceMeters:     distMeters,
		Algorithm:          algo.Label(),
		SnappedOrigin:      geo.NewCoordinate(srcLat, srcLon),
		SnappedDestination: geo.NewCoordinate(dstLat, dstLon),
		SearchDuration:     elapsed,
		Exploration:        recorder,
	}, nil
}
