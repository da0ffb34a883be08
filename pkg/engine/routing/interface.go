package routing

import (
	da "github.com/opennavx/navsim/pkg/datastructure"
)

const (
	AlgorithmBaseline  = "baseline"
	AlgorithmAlternate = "alternate"
)

// SearchGraph. adjacency view a search algorithm relaxes through: either the
// canonical graph or a masked view with blocked edges removed.
type SearchGraph interface {
	NumberOfVertices() int
	NumberOfEdges() int
	GetVertexCoordinates(u da.Index) (float64, float64)
	ForOutEdgesOf(u da.Index, handle func(e *da.DirectedEdge))
	ForInEdgesOf(u da.Index, handle func(e *da.DirectedEdge))
}

// SearchAlgorithm. every implementation honors the identical contract so the
// algorithms are drop-in substitutes: same optimal cost, deterministic node
// order on ties, exploration capture never alters the returned path.
type SearchAlgorithm interface {
	// ShortestPath returns the vertex path, the edge ids between them, and the
	// path cost in meters. found=false when target is unreachable from source.
	ShortestPath(g SearchGraph, source, target da.Index,
		recorder *ExplorationRecorder) ([]da.Index, []da.Index, float64, bool)
	Label() string
}

func NewSearchAlgorithm(tag string) SearchAlgorithm {
	switch tag {
	case AlgorithmAlternate:
		return NewBidirectionalDijkstra()
	default:
		return NewDijkstra()
	}
}
