package routing

import (
	"github.com/opennavx/navsim/pkg"
	da "github.com/opennavx/navsim/pkg/datastructure"
)

// BidirectionalDijkstra. alternate search that runs a forward frontier from the
// source over out-edges and a backward frontier from the target over in-edges,
// alternating by smaller frontier minimum. terminates once the two minimums
// together exceed the best meeting cost found so far, which guarantees the
// returned path cost equals the baseline's.
type BidirectionalDijkstra struct {
	distF   []float64
	distB   []float64
	parentF []da.Index
	parentB []da.Index
	pEdgeF  []da.Index
	pEdgeB  []da.Index

	settledF []bool
	settledB []bool
	labelsF  []*da.PriorityQueueNode[da.Index]
	labelsB  []*da.PriorityQueueNode[da.Index]

	pqF *da.MinHeap[da.Index]
	pqB *da.MinHeap[da.Index]

	bestCost    float64
	meetingNode da.Index
}

func NewBidirectionalDijkstra() *BidirectionalDijkstra {
	return &BidirectionalDijkstra{
		pqF: da.NewFourAryHeap[da.Index](),
		pqB: da.NewFourAryHeap[da.Index](),
	}
}

func (bd *BidirectionalDijkstra) Label() string {
	return AlgorithmAlternate
}

func (bd *BidirectionalDijkstra) ShortestPath(g SearchGraph, source, target da.Index,
	recorder *ExplorationRecorder) ([]da.Index, []da.Index, float64, bool) {

	if source == target {
		return []da.Index{source}, []da.Index{}, 0, true
	}

	bd.preallocate(g)

	sNode := da.NewPriorityQueueNode(0, source, source)
	bd.pqF.Insert(sNode)
	bd.distF[source] = 0
	bd.labelsF[source] = sNode

	tNode := da.NewPriorityQueueNode(0, target, target)
	bd.pqB.Insert(tNode)
	bd.distB[target] = 0
	bd.labelsB[target] = tNode

	for !bd.pqF.IsEmpty() || !bd.pqB.IsEmpty() {
		if bd.pqF.GetMinrank()+bd.pqB.GetMinrank() >= bd.bestCost {
			break
		}

		if bd.pqF.GetMinrank() <= bd.pqB.GetMinrank() {
			bd.settleForward(g, recorder)
		} else {
			bd.settleBackward(g, recorder)
		}
	}

	if bd.meetingNode == da.INVALID_VERTEX_ID {
		return nil, nil, 0, false
	}

	vertexPath, edgePath := bd.reconstruct(source, target)
	return vertexPath, edgePath, bd.bestCost, true
}

func (bd *BidirectionalDijkstra) settleForward(g SearchGraph, recorder *ExplorationRecorder) {
	uItem, err := bd.pqF.ExtractMin()
	if err != nil {
		return
	}
	uId := uItem.GetItem()
	if bd.settledF[uId] {
		return
	}
	bd.settledF[uId] = true

	g.ForOutEdgesOf(uId, func(outEdge *da.DirectedEdge) {
		vId := outEdge.GetHead()

		if recorder != nil {
			uLat, uLon := g.GetVertexCoordinates(uId)
			vLat, vLon := g.GetVertexCoordinates(vId)
			recorder.RecordEdge(uLat, uLon, vLat, vLon)
		}

		newDist := bd.distF[uId] + outEdge.GetDist()
		if newDist < bd.distF[vId] {
			bd.distF[vId] = newDist
			bd.parentF[vId] = uId
			bd.pEdgeF[vId] = outEdge.GetEdgeId()

			if vLabel := bd.labelsF[vId]; vLabel != nil && vLabel.GetPos() >= 0 {
				bd.pqF.DecreaseKey(vLabel, newDist)
			} else if !bd.settledF[vId] {
				vNode := da.NewPriorityQueueNode(newDist, vId, vId)
				bd.labelsF[vId] = vNode
				bd.pqF.Insert(vNode)
			}
		}

		bd.updateBest(vId)
	})
}

func (bd *BidirectionalDijkstra) settleBackward(g SearchGraph, recorder *ExplorationRecorder) {
	uItem, err := bd.pqB.ExtractMin()
	if err != nil {
		return
	}
	uId := uItem.GetItem()
	if bd.settledB[uId] {
		return
	}
	bd.settledB[uId] = true

	g.ForInEdgesOf(uId, func(inEdge *da.DirectedEdge) {
		vId := inEdge.GetTail()

		if recorder != nil {
			uLat, uLon := g.GetVertexCoordinates(uId)
			vLat, vLon := g.GetVertexCoordinates(vId)
			recorder.RecordEdge(uLat, uLon, vLat, vLon)
		}

		newDist := bd.distB[uId] + inEdge.GetDist()
		if newDist < bd.distB[vId] {
			bd.distB[vId] = newDist
			bd.parentB[vId] = uId
			bd.pEdgeB[vId] = inEdge.GetEdgeId()

			if vLabel := bd.labelsB[vId]; vLabel != nil && vLabel.GetPos() >= 0 {
				bd.pqB.DecreaseKey(vLabel, newDist)
			} else if !bd.settledB[vId] {
				vNode := da.NewPriorityQueueNode(newDist, vId, vId)
				bd.labelsB[vId] = vNode
				bd.pqB.Insert(vNode)
			}
		}

		bd.updateBest(vId)
	})
}

func (bd *BidirectionalDijkstra) updateBest(vId da.Index) {
	if bd.distF[vId] >= pkg.INF_WEIGHT || bd.distB[vId] >= pkg.INF_WEIGHT {
		return
	}
	combined := bd.distF[vId] + bd.distB[vId]
	if combined < bd.bestCost {
		bd.bestCost = combined
		bd.meetingNode = vId
	}
}

func (bd *BidirectionalDijkstra) reconstruct(source, target da.Index) ([]da.Index, []da.Index) {
	vertexPath := make([]da.Index, 0)
	edgePath := make([]da.Index, 0)

	cur := bd.meetingNode
	for cur != source {
		vertexPath = append(vertexPath, cur)
		edgePath = append(edgePath, bd.pEdgeF[cur])
		cur = bd.parentF[cur]
	}
	vertexPath = append(vertexPath, source)
	reverseInPlace(vertexPath)
	reverseInPlace(edgePath)

	cur = bd.meetingNode
	for cur != target {
		vertexPath = append(vertexPath, bd.parentB[cur])
		edgePath = append(edgePath, bd.pEdgeB[cur])
		cur = bd.parentB[cur]
	}

	return vertexPath, edgePath
}

func (bd *BidirectionalDijkstra) preallocate(g SearchGraph) {
	n := g.NumberOfVertices()
	bd.distF = make([]float64, n)
	bd.distB = make([]float64, n)
	bd.parentF = make([]da.Index, n)
	bd.parentB = make([]da.Index, n)
	bd.pEdgeF = make([]da.Index, n)
	bd.pEdgeB = make([]da.Index, n)
	bd.settledF = make([]bool, n)
	bd.settledB = make([]bool, n)
	bd.labelsF = make([]*da.PriorityQueueNode[da.Index], n)
	bd.labelsB = make([]*da.PriorityQueueNode[da.Index], n)
	for i := 0; i < n; i++ {
		bd.distF[i] = pkg.INF_WEIGHT
		bd.distB[i] = pkg.INF_WEIGHT
		bd.parentF[i] = da.INVALID_VERTEX_ID
		bd.parentB[i] = da.INVALID_VERTEX_ID
		bd.pEdgeF[i] = da.INVALID_EDGE_ID
		bd.pEdgeB[i] = da.INVALID_EDGE_ID
	}
	bd.pqF.Clear()
	bd.pqB.Clear()
	bd.pqF.Preallocate(n)
	bd.pqB.Preallocate(n)
	bd.bestCost = pkg.INF_WEIGHT
	bd.meetingNode = da.INVALID_VERTEX_ID
}
