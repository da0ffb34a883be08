package spatialindex

import (
	"math"

	"github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

type vertexItem struct {
	id  datastructure.Index
	lat float64
	lon float64
}

type Rtree struct {
	tr *rtree.RTreeG[vertexItem]
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[vertexItem]
	return &Rtree{
		tr: &tr,
	}
}

// Build. index every graph vertex, with each leaf having a bounding box with
// radius boundingBoxRadius (in km) so rectangle queries cover nearby vertices.
func (rt *Rtree) Build(graph *datastructure.Graph, boundingBoxRadius float64, log *zap.Logger) {
	log.Info("Building R-tree spatial index...")
	n := graph.NumberOfVertices()
	for u := 0; u < n; u++ {
		lat, lon := graph.GetVertexCoordinates(datastructure.Index(u))

		lowerLat, lowerLon := geo.GetDestinationPoint(lat, lon, 225, boundingBoxRadius)
		upperLat, upperLon := geo.GetDestinationPoint(lat, lon, 45, boundingBoxRadius)

		rt.tr.Insert([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
			vertexItem{id: datastructure.Index(u), lat: lat, lon: lon})
	}
	log.Info("R-tree spatial index built.", zap.Int("vertices", n))
}

// SearchWithinRadius search for all vertices within radius (in km) from the query point (qLat, qLon)
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []datastructure.Index {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius)

	results := make([]datastructure.Index, 0, 10)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data vertexItem) bool {
			if geo.CalculateHaversineDistance(qLat, qLon, data.lat, data.lon) <= radius {
				results = append(results, data.id)
			}
			return true
		})
	return results
}

// NearestNode snaps (qLat, qLon) to the closest graph vertex within
// maxSnapDistance (in km). found=false when no vertex is near enough.
func (rt *Rtree) NearestNode(qLat, qLon, maxSnapDistance float64) (datastructure.Index, bool) {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, maxSnapDistance)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, maxSnapDistance)

	best := datastructure.INVALID_VERTEX_ID
	bestDist := math.Inf(1)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data vertexItem) bool {
			d := geo.CalculateHaversineDistance(qLat, qLon, data.lat, data.lon)
			if d < bestDist {
				bestDist = d
				best = data.id
			}
			return true
		})

	if best == datastructure.INVALID_VERTEX_ID || bestDist > maxSnapDistance {
		return datastructure.INVALID_VERTEX_ID, false
	}
	return best, true
}
