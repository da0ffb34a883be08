package routing

import (
	"github.com/opennavx/navsim/pkg"
	da "github.com/opennavx/navsim/pkg/datastructure"
)

// Dijkstra. baseline non-negative-weight shortest path search: a priority
// frontier keyed by tentative distance, edges relaxed on frontier pop, vertices
// settle in non-decreasing distance order. ties are broken by smaller vertex id
// so repeated runs are reproducible for benchmarking.
type Dijkstra struct {
	dist         []float64
	parentVertex []da.Index
	parentEdge   []da.Index
	settled      []bool
	labels       []*da.PriorityQueueNode[da.Index]

	pq *da.MinHeap[da.Index]

	numSettledNodes int
}

func NewDijkstra() *Dijkstra {
	return &Dijkstra{
		pq: da.NewFourAryHeap[da.Index](),
	}
}

func (us *Dijkstra) Label() string {
	return AlgorithmBaseline
}

func (us *Dijkstra) ShortestPath(g SearchGraph, source, target da.Index,
	recorder *ExplorationRecorder) ([]da.Index, []da.Index, float64, bool) {

	us.preallocate(g)

	sNode := da.NewPriorityQueueNode(0, source, source)
	us.pq.Insert(sNode)
	us.dist[source] = 0
	us.labels[source] = sNode

	for !us.pq.IsEmpty() {
		uItem, _ := us.pq.ExtractMin()
		uId := uItem.GetItem()
		if us.settled[uId] {
			continue
		}
		us.settled[uId] = true
		us.numSettledNodes++

		if uId == target {
			break
		}

		us.relaxOutEdges(g, uId, recorder)
	}

	if !us.settled[target] {
		return nil, nil, 0, false
	}

	vertexPath, edgePath := us.reconstruct(source, target)
	return vertexPath, edgePath, us.dist[target], true
}

func (us *Dijkstra) relaxOutEdges(g SearchGraph, uId da.Index, recorder *ExplorationRecorder) {
	g.ForOutEdgesOf(uId, func(outEdge *da.DirectedEdge) {
		vId := outEdge.GetHead()

		if recorder != nil {
			uLat, uLon := g.GetVertexCoordinates(uId)
			vLat, vLon := g.GetVertexCoordinates(vId)
			recorder.RecordEdge(uLat, uLon, vLat, vLon)
		}

		if us.settled[vId] {
			return
		}

		newDist := us.dist[uId] + outEdge.GetDist()
		if newDist >= us.dist[vId] {
			return
		}

		us.dist[vId] = newDist
		us.parentVertex[vId] = uId
		us.parentEdge[vId] = outEdge.GetEdgeId()

		if vLabel := us.labels[vId]; vLabel != nil && vLabel.GetPos() >= 0 {
			us.pq.DecreaseKey(vLabel, newDist)
		} else {
			vNode := da.NewPriorityQueueNode(newDist, vId, vId)
			us.labels[vId] = vNode
			us.pq.Insert(vNode)
		}
	})
}

func (us *Dijkstra) reconstruct(source, target da.Index) ([]da.Index, []da.Index) {
	vertexPath := make([]da.Index, 0)
	edgePath := make([]da.Index, 0)

	cur := target
	for cur != source {
		vertexPath = append(vertexPath, cur)
		edgePath = append(edgePath, us.parentEdge[cur])
		cur = us.parentVertex[cur]
	}
	vertexPath = append(vertexPath, source)

	reverseInPlace(vertexPath)
	reverseInPlace(edgePath)
	return vertexPath, edgePath
}

func (us *Dijkstra) preallocate(g SearchGraph) {
	n := g.NumberOfVertices()
	us.dist = make([]float64, n)
	us.parentVertex = make([]da.Index, n)
	us.parentEdge = make([]da.Index, n)
	us.settled = make([]bool, n)
	us.labels = make([]*da.PriorityQueueNode[da.Index], n)
	for i := 0; i < n; i++ {
		us.dist[i] = pkg.INF_WEIGHT
		us.parentVertex[i] = da.INVALID_VERTEX_ID
		us.parentEdge[i] = da.INVALID_EDGE_ID
	}
	us.pq.Clear()
	us.pq.Preallocate(n)
	us.numSettledNodes = 0
}

func reverseInPlace(arr []da.Index) {
	for i, j := 0, len(arr)-1; i < j; i, j = i+1, j-1 {
		arr[i], arr[j] = arr[j], arr[i]
	}
}
