package osmparser

import (
	"context"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/opennavx/navsim/pkg"
	"github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"
)

var acceptedHighway = map[string]struct{}{
	"motorway": {}, "trunk": {}, "primary": {}, "secondary": {}, "tertiary": {},
	"unclassified": {}, "residential": {}, "service": {}, "living_street": {},
	"motorway_link": {}, "trunk_link": {}, "primary_link": {}, "secondary_link": {},
	"tertiary_link": {}, "road": {},
}

type OsmParser struct {
	wayNodeMap      map[int64]NodeType
	acceptedNodeMap map[int64]NodeCoord
	nodeIDMap       map[int64]datastructure.Index
	streetNameIdMap map[string]datastructure.Index
	streetNames     []string
}

func NewOsmParser() *OsmParser {
	return &OsmParser{
		wayNodeMap:      make(map[int64]NodeType),
		acceptedNodeMap: make(map[int64]NodeCoord),
		nodeIDMap:       make(map[int64]datastructure.Index),
		streetNameIdMap: make(map[string]datastructure.Index),
		streetNames:     make([]string, 0),
	}
}

// Parse builds a weighted directed road graph for the bounding box from an
// openstreetmap pbf extract. ways are split at junction nodes, every non-junction
// way node becomes edge geometry, and a two-way street yields two directed edges.
func (p *OsmParser) Parse(mapFile string, bbox BoundingBox, logger *zap.Logger) (*datastructure.Graph, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// first pass: classify way nodes so we know where ways intersect.
	scanner := osmpbf.New(context.Background(), f, 0)
	countWays := 0
	for scanner.Scan() {
		o := scanner.Object()
		if o.ObjectID().Type() != osm.TypeWay {
			continue
		}
		way := o.(*osm.Way)
		if len(way.Nodes) < 2 || !acceptOsmWay(way) {
			continue
		}
		if (countWays+1)%50000 == 0 {
			logger.Sugar().Infof("scanning openstreetmap ways: %d...", countWays+1)
		}
		countWays++

		for i, node := range way.Nodes {
			if _, ok := p.wayNodeMap[int64(node.ID)]; !ok {
				if i == 0 || i == len(way.Nodes)-1 {
					p.wayNodeMap[int64(node.ID)] = END_NODE
				} else {
					p.wayNodeMap[int64(node.ID)] = BETWEEN_NODE
				}
			} else {
				p.wayNodeMap[int64(node.ID)] = JUNCTION_NODE
			}
		}
	}
	scanner.Close()

	// second pass: node coordinates inside the bbox.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	scanner = osmpbf.New(context.Background(), f, 0)
	countNodes := 0
	for scanner.Scan() {
		o := scanner.Object()
		if o.ObjectID().Type() != osm.TypeNode {
			continue
		}
		node := o.(*osm.Node)
		if _, ok := p.wayNodeMap[int64(node.ID)]; !ok {
			continue
		}
		if !bbox.Contains(node.Lat, node.Lon) {
			continue
		}
		if (countNodes+1)%500000 == 0 {
			logger.Sugar().Infof("processing openstreetmap nodes: %d...", countNodes+1)
		}
		countNodes++
		p.acceptedNodeMap[int64(node.ID)] = NewNodeCoord(node.Lat, node.Lon)
	}
	scanner.Close()

	// third pass: split ways at junctions into directed edges.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	scanner = osmpbf.New(context.Background(), f, 0)
	defer scanner.Close()

	vertices := make([]datastructure.Vertex, 0, countNodes/4)
	edges := make([]datastructure.DirectedEdge, 0, countWays*2)

	for scanner.Scan() {
		o := scanner.Object()
		if o.ObjectID().Type() != osm.TypeWay {
			continue
		}
		way := o.(*osm.Way)
		if len(way.Nodes) < 2 || !acceptOsmWay(way) {
			continue
		}
		p.processWay(way, &vertices, &edges)
	}

	logger.Info("openstreetmap graph built",
		zap.Int("vertices", len(vertices)), zap.Int("edges", len(edges)))

	return datastructure.NewGraph(vertices, edges, p.streetNames), nil
}

func (p *OsmParser) processWay(way *osm.Way, vertices *[]datastructure.Vertex,
	edges *[]datastructure.DirectedEdge) {
	hwTag := way.Tags.Find("highway")
	hwType := pkg.GetHighwayType(hwTag)

	speed := parseMaxspeedKmh(way.Tags.Find("maxspeed"))
	if speed <= 0 {
		speed = pkg.DefaultSpeedKmh(hwType)
	}

	name := way.Tags.Find("name")
	if name == "" {
		name = way.Tags.Find("ref")
	}
	nameId := p.streetNameId(name)

	oneWay := isOneWay(way)
	reversed := way.Tags.Find("oneway") == "-1"

	// walk the way, cutting an edge at every junction node. nodes outside the
	// bbox were dropped in pass two, which also cuts the way there.
	segment := make([]geo.Coordinate, 0, 8)
	segmentOsmIds := make([]int64, 0, 8)
	for _, node := range way.Nodes {
		osmId := int64(node.ID)
		coord, ok := p.acceptedNodeMap[osmId]
		if !ok {
			p.flushSegment(segment, segmentOsmIds, speed, nameId, hwType, oneWay, reversed, vertices, edges)
			segment = segment[:0]
			segmentOsmIds = segmentOsmIds[:0]
			continue
		}

		segment = append(segment, geo.NewCoordinate(coord.GetLat(), coord.GetLon()))
		segmentOsmIds = append(segmentOsmIds, osmId)

		if p.wayNodeMap[osmId] == JUNCTION_NODE && len(segment) > 1 {
			p.flushSegment(segment, segmentOsmIds, speed, nameId, hwType, oneWay, reversed, vertices, edges)
			segment = append(segment[:0], segment[len(segment)-1])
			segmentOsmIds = append(segmentOsmIds[:0], osmId)
		}
	}
	p.flushSegment(segment, segmentOsmIds, speed, nameId, hwType, oneWay, reversed, vertices, edges)
}

// flushSegment turns one junction-to-junction node chain into directed edges.
func (p *OsmParser) flushSegment(segment []geo.Coordinate, segmentOsmIds []int64,
	speed float64, nameId datastructure.Index, hwType pkg.OsmHighwayType,
	oneWay, reversed bool, vertices *[]datastructure.Vertex, edges *[]datastructure.DirectedEdge) {
	if len(segment) < 2 {
		return
	}

	tail := p.vertexId(segmentOsmIds[0], segment[0], vertices)
	head := p.vertexId(segmentOsmIds[len(segmentOsmIds)-1], segment[len(segment)-1], vertices)
	if tail == head {
		return
	}

	dist := 0.0
	for i := 1; i < len(segment); i++ {
		dist += geo.HaversineMeter(segment[i-1], segment[i])
	}

	geometry := make([]geo.Coordinate, len(segment))
	copy(geometry, segment)

	forwardTail, forwardHead, forwardGeom := tail, head, geometry
	if reversed {
		forwardTail, forwardHead = head, tail
		forwardGeom = reverseCoords(geometry)
	}

	*edges = append(*edges, datastructure.NewDirectedEdge(
		datastructure.Index(len(*edges)), forwardTail, forwardHead, dist, speed, nameId,
		hwType, oneWay, forwardGeom))

	if !oneWay {
		*edges = append(*edges, datastructure.NewDirectedEdge(
			datastructure.Index(len(*edges)), head, tail, dist, speed, nameId,
			hwType, oneWay, reverseCoords(geometry)))
	}
}

func (p *OsmParser) vertexId(osmId int64, coord geo.Coordinate,
	vertices *[]datastructure.Vertex) datastructure.Index {
	if id, ok := p.nodeIDMap[osmId]; ok {
		return id
	}
	id := datastructure.Index(len(*vertices))
	p.nodeIDMap[osmId] = id
	*vertices = append(*vertices, *datastructure.NewVertex(coord.GetLat(), coord.GetLon(), id, osmId))
	return id
}

func (p *OsmParser) streetNameId(name string) datastructure.Index {
	if id, ok := p.streetNameIdMap[name]; ok {
		return id
	}
	id := datastructure.Index(len(p.streetNames))
	p.streetNameIdMap[name] = id
	p.streetNames = append(p.streetNames, name)
	return id
}

func acceptOsmWay(way *osm.Way) bool {
	hw := way.Tags.Find("highway")
	if hw == "" {
		return false
	}
	if _, ok := acceptedHighway[hw]; !ok {
		return false
	}
	if way.Tags.Find("access") == "no" {
		return false
	}
	if area := way.Tags.Find("area"); area == "yes" {
		return false
	}
	return true
}

func isOneWay(way *osm.Way) bool {
	switch way.Tags.Find("oneway") {
	case "yes", "-1", "1", "true":
		return true
	}
	if way.Tags.Find("junction") == "roundabout" {
		return true
	}
	return way.Tags.Find("highway") == "motorway"
}

var maxspeedRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// parseMaxspeedKmh parses osm maxspeed values like "50", "50 km/h" or "30 mph".
// returns 0 when the tag carries no usable number (e.g. "signals").
func parseMaxspeedKmh(v string) float64 {
	s := strings.ToLower(strings.TrimSpace(v))
	if s == "" {
		return 0
	}
	m := maxspeedRe.FindString(s)
	if m == "" {
		return 0
	}
	val, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	if strings.Contains(s, "mph") {
		return val * 1.60934
	}
	return val
}

func reverseCoords(coords []geo.Coordinate) []geo.Coordinate {
	out := make([]geo.Coordinate, len(coords))
	for i := range coords {
		out[i] = coords[len(coords)-1-i]
	}
	return out
}
