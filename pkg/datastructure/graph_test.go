package datastructure

import (
	"testing"

	"github.com/opennavx/navsim/pkg"
	"github.com/opennavx/navsim/pkg/geo"
)

func buildTriangleGraph() *Graph {
	vertices := []Vertex{
		*NewVertex(0.0, 0.0, 0, 100),
		*NewVertex(0.0, 0.001, 1, 101),
		*NewVertex(0.001, 0.001, 2, 102),
	}

	edge := func(id, tail, head Index, dist float64) DirectedEdge {
		tv, hv := vertices[tail], vertices[head]
		return NewDirectedEdge(id, tail, head, dist, 30, 0, pkg.RESIDENTIAL, false,
			[]geo.Coordinate{tv.Coordinate(), hv.Coordinate()})
	}

	edges := []DirectedEdge{
		edge(0, 0, 1, 111),
		edge(1, 1, 0, 111),
		edge(2, 1, 2, 111),
		edge(3, 2, 1, 111),
		edge(4, 0, 2, 157),
		edge(5, 2, 0, 157),
	}

	return NewGraph(vertices, edges, []string{"Jalan Merdeka"})
}

func TestGraphAdjacency(t *testing.T) {
	g := buildTriangleGraph()

	if g.NumberOfVertices() != 3 || g.NumberOfEdges() != 6 {
		t.Fatalf("unexpected graph size: %d vertices, %d edges",
			g.NumberOfVertices(), g.NumberOfEdges())
	}

	var outOf0 []Index
	g.ForOutEdgesOf(0, func(e *DirectedEdge) {
		if e.GetTail() != 0 {
			t.Errorf("out edge %d has tail %d, want 0", e.GetEdgeId(), e.GetTail())
		}
		outOf0 = append(outOf0, e.GetEdgeId())
	})
	if len(outOf0) != 2 || outOf0[0] != 0 || outOf0[1] != 4 {
		t.Errorf("out edges of 0 = %v, want [0 4]", outOf0)
	}

	var inTo1 []Index
	g.ForInEdgesOf(1, func(e *DirectedEdge) {
		inTo1 = append(inTo1, e.GetEdgeId())
	})
	if len(inTo1) != 2 || inTo1[0] != 0 || inTo1[1] != 3 {
		t.Errorf("in edges of 1 = %v, want [0 3]", inTo1)
	}

	if g.OutDegree(1) != 2 {
		t.Errorf("out degree of 1 = %d, want 2", g.OutDegree(1))
	}
}

func TestFindEdgeReturnsCheapest(t *testing.T) {
	g := buildTriangleGraph()

	e := g.FindEdge(0, 2)
	if e == nil {
		t.Fatal("expected edge from 0 to 2")
	}
	if e.GetEdgeId() != 4 {
		t.Errorf("FindEdge(0,2) = edge %d, want 4", e.GetEdgeId())
	}

	if g.FindEdge(2, 2) != nil {
		t.Error("expected no self edge on vertex 2")
	}
}

func TestMaskedGraphSkipsBlockedEdges(t *testing.T) {
	g := buildTriangleGraph()

	blocked := NewEdgeSet()
	blocked.Add(4)

	masked := g.Masked(blocked)

	var out []Index
	masked.ForOutEdgesOf(0, func(e *DirectedEdge) {
		out = append(out, e.GetEdgeId())
	})
	if len(out) != 1 || out[0] != 0 {
		t.Errorf("masked out edges of 0 = %v, want [0]", out)
	}

	var in []Index
	masked.ForInEdgesOf(2, func(e *DirectedEdge) {
		in = append(in, e.GetEdgeId())
	})
	if len(in) != 1 || in[0] != 2 {
		t.Errorf("masked in edges of 2 = %v, want [2]", in)
	}
}

func TestEdgeSetUnionAndClone(t *testing.T) {
	a := NewEdgeSet()
	a.Add(1)
	a.Add(2)

	b := NewEdgeSet()
	b.Add(2)
	b.Add(3)

	u := a.Union(b)
	for _, id := range []Index{1, 2, 3} {
		if !u.Contains(id) {
			t.Errorf("union misses edge %d", id)
		}
	}
	if len(u) != 3 {
		t.Errorf("union size = %d, want 3", len(u))
	}

	c := a.Clone()
	c.Add(9)
	if a.Contains(9) {
		t.Error("clone mutation leaked into the source set")
	}
}
