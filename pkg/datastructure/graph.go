package datastructure

import (
	"sort"

	"github.com/opennavx/navsim/pkg"
	"github.com/opennavx/navsim/pkg/geo"
)

type Index uint32

const (
	INVALID_VERTEX_ID Index = ^Index(0)
	INVALID_EDGE_ID   Index = ^Index(0)
)

type Vertex struct {
	lat      float64
	lon      float64
	firstOut Index // index of the first outEdge of this vertex in the flattened graph.outEdges array
	firstIn  Index // index of the first inEdge of this vertex in the flattened graph.inEdges array
	id       Index
	osmId    int64
}

func NewVertex(lat, lon float64, id Index, osmId int64) *Vertex {
	return &Vertex{
		lat:   lat,
		lon:   lon,
		id:    id,
		osmId: osmId,
	}
}

func (v *Vertex) GetID() Index {
	return v.id
}

func (v *Vertex) GetLat() float64 {
	return v.lat
}

func (v *Vertex) GetLon() float64 {
	return v.lon
}

func (v *Vertex) GetOsmId() int64 {
	return v.osmId
}

func (v *Vertex) GetFirstOut() Index {
	return v.firstOut
}

func (v *Vertex) GetFirstIn() Index {
	return v.firstIn
}

func (v *Vertex) Coordinate() geo.Coordinate {
	return geo.NewCoordinate(v.lat, v.lon)
}

// DirectedEdge. one directed road segment between two junction vertices.
// a two-way street contributes two directed edges with distinct edge ids.
type DirectedEdge struct {
	edgeId   Index
	tail     Index
	head     Index
	dist     float64 // meter
	speed    float64 // legal speed, km/h
	nameId   Index
	hwType   pkg.OsmHighwayType
	oneWay   bool
	geometry []geo.Coordinate // polyline from tail to head, endpoints included
}

func NewDirectedEdge(edgeId, tail, head Index, dist, speed float64, nameId Index,
	hwType pkg.OsmHighwayType, oneWay bool, geometry []geo.Coordinate) DirectedEdge {
	return DirectedEdge{
		edgeId:   edgeId,
		tail:     tail,
		head:     head,
		dist:     dist,
		speed:    speed,
		nameId:   nameId,
		hwType:   hwType,
		oneWay:   oneWay,
		geometry: geometry,
	}
}

func (e *DirectedEdge) GetEdgeId() Index {
	return e.edgeId
}

func (e *DirectedEdge) GetTail() Index {
	return e.tail
}

func (e *DirectedEdge) GetHead() Index {
	return e.head
}

func (e *DirectedEdge) GetDist() float64 {
	return e.dist
}

func (e *DirectedEdge) GetSpeed() float64 {
	return e.speed
}

func (e *DirectedEdge) GetNameId() Index {
	return e.nameId
}

func (e *DirectedEdge) GetHwType() pkg.OsmHighwayType {
	return e.hwType
}

func (e *DirectedEdge) IsOneWay() bool {
	return e.oneWay
}

func (e *DirectedEdge) GetGeometry() []geo.Coordinate {
	return e.geometry
}

// Graph. immutable weighted directed road graph with offset-array adjacency.
// a reroute never mutates the graph, it searches through an edge mask instead
// (see MaskedGraph).
type Graph struct {
	vertices    []Vertex
	edges       []DirectedEdge // indexed by edgeId
	outEdgeIds  []Index        // edge ids grouped by tail, vertices[u].firstOut points here
	inEdgeIds   []Index        // edge ids grouped by head, vertices[u].firstIn points here
	streetNames []string
}

// NewGraph builds the adjacency offset arrays from a flat directed edge list.
// edge ids must equal the edge's index in edges.
func NewGraph(vertices []Vertex, edges []DirectedEdge, streetNames []string) *Graph {
	g := &Graph{
		vertices:    vertices,
		edges:       edges,
		streetNames: streetNames,
	}
	g.buildAdjacency()
	return g
}

func (g *Graph) buildAdjacency() {
	n := len(g.vertices)

	g.outEdgeIds = make([]Index, len(g.edges))
	g.inEdgeIds = make([]Index, len(g.edges))
	for i := range g.edges {
		g.outEdgeIds[i] = Index(i)
		g.inEdgeIds[i] = Index(i)
	}

	sort.Slice(g.outEdgeIds, func(i, j int) bool {
		ei, ej := &g.edges[g.outEdgeIds[i]], &g.edges[g.outEdgeIds[j]]
		if ei.tail != ej.tail {
			return ei.tail < ej.tail
		}
		return ei.edgeId < ej.edgeId
	})
	sort.Slice(g.inEdgeIds, func(i, j int) bool {
		ei, ej := &g.edges[g.inEdgeIds[i]], &g.edges[g.inEdgeIds[j]]
		if ei.head != ej.head {
			return ei.head < ej.head
		}
		return ei.edgeId < ej.edgeId
	})

	outPos, inPos := 0, 0
	for v := 0; v < n; v++ {
		g.vertices[v].firstOut = Index(outPos)
		for outPos < len(g.outEdgeIds) && g.edges[g.outEdgeIds[outPos]].tail == Index(v) {
			outPos++
		}
		g.vertices[v].firstIn = Index(inPos)
		for inPos < len(g.inEdgeIds) && g.edges[g.inEdgeIds[inPos]].head == Index(v) {
			inPos++
		}
	}
}

func (g *Graph) NumberOfVertices() int {
	return len(g.vertices)
}

func (g *Graph) NumberOfEdges() int {
	return len(g.edges)
}

func (g *Graph) GetVertex(u Index) *Vertex {
	return &g.vertices[u]
}

func (g *Graph) GetVertexCoordinates(u Index) (float64, float64) {
	v := &g.vertices[u]
	return v.lat, v.lon
}

func (g *Graph) GetEdge(edgeId Index) *DirectedEdge {
	return &g.edges[edgeId]
}

func (g *Graph) GetStreetName(edgeId Index) string {
	nameId := g.edges[edgeId].nameId
	if int(nameId) >= len(g.streetNames) {
		return ""
	}
	return g.streetNames[nameId]
}

func (g *Graph) OutDegree(u Index) int {
	end := len(g.outEdgeIds)
	if int(u)+1 < len(g.vertices) {
		end = int(g.vertices[u+1].firstOut)
	}
	return end - int(g.vertices[u].firstOut)
}

// ForOutEdgesOf iterates over the outgoing edges of u in ascending edge id order.
func (g *Graph) ForOutEdgesOf(u Index, handle func(e *DirectedEdge)) {
	end := len(g.outEdgeIds)
	if int(u)+1 < len(g.vertices) {
		end = int(g.vertices[u+1].firstOut)
	}
	for pos := int(g.vertices[u].firstOut); pos < end; pos++ {
		handle(&g.edges[g.outEdgeIds[pos]])
	}
}

// ForInEdgesOf iterates over the incoming edges of u in ascending edge id order.
func (g *Graph) ForInEdgesOf(u Index, handle func(e *DirectedEdge)) {
	end := len(g.inEdgeIds)
	if int(u)+1 < len(g.vertices) {
		end = int(g.vertices[u+1].firstIn)
	}
	for pos := int(g.vertices[u].firstIn); pos < end; pos++ {
		handle(&g.edges[g.inEdgeIds[pos]])
	}
}

// FindEdge returns the cheapest directed edge from u to v, or nil.
func (g *Graph) FindEdge(u, v Index) *DirectedEdge {
	var best *DirectedEdge
	g.ForOutEdgesOf(u, func(e *DirectedEdge) {
		if e.head == v && (best == nil || e.dist < best.dist) {
			best = e
		}
	})
	return best
}

// EdgeSet. set of blocked edge ids carried by a path request.
type EdgeSet map[Index]struct{}

func NewEdgeSet() EdgeSet {
	return make(EdgeSet)
}

func (s EdgeSet) Add(edgeId Index) {
	s[edgeId] = struct{}{}
}

func (s EdgeSet) Contains(edgeId Index) bool {
	_, ok := s[edgeId]
	return ok
}

func (s EdgeSet) Clone() EdgeSet {
	cloned := make(EdgeSet, len(s))
	for e := range s {
		cloned[e] = struct{}{}
	}
	return cloned
}

// Union returns a new set with the members of both sets.
func (s EdgeSet) Union(other EdgeSet) EdgeSet {
	merged := make(EdgeSet, len(s)+len(other))
	for e := range s {
		merged[e] = struct{}{}
	}
	for e := range other {
		merged[e] = struct{}{}
	}
	return merged
}

// MaskedGraph. read-only view of a graph with a set of edges removed.
// search algorithms relax through the view so the canonical graph stays intact
// while a reroute excludes the blocked edges.
type MaskedGraph struct {
	g       *Graph
	blocked EdgeSet
}

func (g *Graph) Masked(blocked EdgeSet) *MaskedGraph {
	return &MaskedGraph{g: g, blocked: blocked}
}

func (m *MaskedGraph) NumberOfVertices() int {
	return m.g.NumberOfVertices()
}

func (m *MaskedGraph) NumberOfEdges() int {
	return m.g.NumberOfEdges()
}

func (m *MaskedGraph) GetVertexCoordinates(u Index) (float64, float64) {
	return m.g.GetVertexCoordinates(u)
}

func (m *MaskedGraph) ForOutEdgesOf(u Index, handle func(e *DirectedEdge)) {
	m.g.ForOutEdgesOf(u, func(e *DirectedEdge) {
		if m.blocked.Contains(e.edgeId) {
			return
		}
		handle(e)
	})
}

func (m *MaskedGraph) ForInEdgesOf(u Index, handle func(e *DirectedEdge)) {
	m.g.ForInEdgesOf(u, func(e *DirectedEdge) {
		if m.blocked.Contains(e.edgeId) {
			return
		}
		handle(e)
	})
}
