package engine

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/engine/routing"
	"github.com/opennavx/navsim/pkg/osmparser"
	"github.com/opennavx/navsim/pkg/spatialindex"
	"github.com/opennavx/navsim/pkg/util"
)

// Region. one loaded road graph with its spatial index and routing engine,
// covering a padded bounding box.
type Region struct {
	bbox    osmparser.BoundingBox
	graph   *da.Graph
	rtree   *spatialindex.Rtree
	routing *routing.RoutingEngine
}

func NewRegion(bbox osmparser.BoundingBox, graph *da.Graph,
	rtree *spatialindex.Rtree, routing *routing.RoutingEngine) *Region {
	return &Region{
		bbox:    bbox,
		graph:   graph,
		rtree:   rtree,
		routing: routing,
	}
}

func (r *Region) BBox() osmparser.BoundingBox {
	return r.bbox
}

func (r *Region) Graph() *da.Graph {
	return r.graph
}

func (r *Region) Routing() *routing.RoutingEngine {
	return r.routing
}

// Engine loads and caches road graph regions. a region is keyed by its padded
// and rounded bounding box so nearby queries share one loaded graph, with an
// LRU bound on how many regions stay resident. building a region is expensive,
// so concurrent requests for the same key are collapsed into a single load.
type Engine struct {
	regions *lru.Cache[string, *Region]
	loads   singleflight.Group
	parser  *osmparser.OsmParser
	log     *zap.Logger
}

func New(log *zap.Logger) (*Engine, error) {
	maxRegions := viper.GetInt("engine.max_cached_regions")
	if maxRegions <= 0 {
		maxRegions = 16
	}

	regions, err := lru.New[string, *Region](maxRegions)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "engine.New: lru.New")
	}

	return &Engine{
		regions: regions,
		parser:  osmparser.NewOsmParser(),
		log:     log,
	}, nil
}

// RegionFor returns the cached region covering the bounding box, loading it
// from the graph disk cache or the OSM extract on a miss.
func (e *Engine) RegionFor(bbox osmparser.BoundingBox) (*Region, error) {
	padded := bbox.Pad(viper.GetFloat64("engine.bbox_pad_degrees"))
	key := regionKey(padded)

	if region, ok := e.regions.Get(key); ok {
		return region, nil
	}

	result, err, _ := e.loads.Do(key, func() (interface{}, error) {
		if region, ok := e.regions.Get(key); ok {
			return region, nil
		}
		region, err := e.loadRegion(key, padded)
		if err != nil {
			return nil, err
		}
		e.regions.Add(key, region)
		return region, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Region), nil
}

// RegionAround returns the region covering a square window centered on the
// coordinate, with the configured half-width in degrees.
func (e *Engine) RegionAround(lat, lon float64) (*Region, error) {
	halfWidth := viper.GetFloat64("engine.region_half_width_degrees")
	return e.RegionFor(osmparser.NewBoundingBox(
		lat-halfWidth, lon-halfWidth, lat+halfWidth, lon+halfWidth))
}

func (e *Engine) loadRegion(key string, bbox osmparser.BoundingBox) (*Region, error) {
	graph, err := e.loadGraph(key, bbox)
	if err != nil {
		return nil, err
	}

	rtree := spatialindex.NewRtree()
	rtree.Build(graph, viper.GetFloat64("engine.rtree_leaf_radius_km"), e.log)

	return NewRegion(bbox, graph, rtree, routing.NewRoutingEngine(graph, rtree, e.log)), nil
}

func (e *Engine) loadGraph(key string, bbox osmparser.BoundingBox) (*da.Graph, error) {
	cacheDir := viper.GetString("engine.graph_cache_dir")
	cacheFile := filepath.Join(cacheDir, key+".graph.bz2")

	if _, err := os.Stat(cacheFile); err == nil {
		graph, err := da.ReadGraph(cacheFile)
		if err == nil {
			e.log.Info("loaded region graph from disk cache",
				zap.String("key", key),
				zap.Int("vertices", graph.NumberOfVertices()),
				zap.Int("edges", graph.NumberOfEdges()))
			return graph, nil
		}
		e.log.Warn("stale region graph cache file, rebuilding",
			zap.String("file", cacheFile), zap.Error(err))
	}

	mapFile := viper.GetString("engine.osm_map_file")
	graph, err := e.parser.Parse(mapFile, bbox, e.log)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError,
			"engine.loadGraph: parse %s", mapFile)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err == nil {
		if err := graph.WriteGraph(cacheFile); err != nil {
			e.log.Warn("failed to write region graph cache",
				zap.String("file", cacheFile), zap.Error(err))
		}
	}

	e.log.Info("built region graph from OSM extract",
		zap.String("key", key),
		zap.Int("vertices", graph.NumberOfVertices()),
		zap.Int("edges", graph.NumberOfEdges()))
	return graph, nil
}

// regionKey rounds the bbox to 3 decimal places so jittery client windows in
// the same neighborhood map to one cache entry.
func regionKey(bbox osmparser.BoundingBox) string {
	return fmt.Sprintf("%.3f_%.3f_%.3f_%.3f",
		util.RoundFloat(bbox.MinLat, 3), util.RoundFloat(bbox.MinLon, 3),
		util.RoundFloat(bbox.MaxLat, 3), util.RoundFloat(bbox.MaxLon, 3))
}
