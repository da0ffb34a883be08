package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/spatialindex"
	"github.com/opennavx/navsim/pkg/util"
)

func newTestEngine(t *testing.T) *RoutingEngine {
	t.Helper()

	viper.Set("routing.max_snap_distance_km", 0.35)
	viper.Set("routing.block_radius_meters", 100.0)
	viper.Set("routing.exploration_cap", 2500)

	g := buildDiamondGraph()
	rtree := spatialindex.NewRtree()
	rtree.Build(g, 0.05, zap.NewNop())

	return NewRoutingEngine(g, rtree, zap.NewNop())
}

func TestNearestNodeSnapsAndFails(t *testing.T) {
	re := newTestEngine(t)

	node, err := re.NearestNode(geo.NewCoordinate(0.0001, 0.00105))
	if err != nil {
		t.Fatalf("snap near vertex 1: %v", err)
	}
	if node != 1 {
		t.Errorf("snapped to vertex %d, want 1", node)
	}

	_, err = re.NearestNode(geo.NewCoordinate(5, 5))
	if err == nil {
		t.Fatal("expected snap failure far from the network")
	}
	if !errors.Is(err, util.ErrSnapFailed) {
		t.Errorf("error = %v, want ErrSnapFailed", err)
	}
}

func TestBlockedEdgesNearObstacle(t *testing.T) {
	re := newTestEngine(t)

	// obstacle right on vertex 1 disables every edge touching it, plus the
	// 0-2 shortcut whose segment passes through vertex 1's coordinate.
	blocked := re.BlockedEdgesNear([]geo.Coordinate{geo.NewCoordinate(0, 0.001)})

	for _, id := range []da.Index{0, 1, 2, 3, 4, 5} {
		if !blocked.Contains(id) {
			t.Errorf("edge %d not blocked", id)
		}
	}

	farAway := re.BlockedEdgesNear([]geo.Coordinate{geo.NewCoordinate(3, 3)})
	if len(farAway) != 0 {
		t.Errorf("obstacle far from the graph blocked %d edges", len(farAway))
	}
}

func TestSearchEndToEnd(t *testing.T) {
	re := newTestEngine(t)

	result, err := re.Search(context.Background(), PathRequest{
		Origin:      geo.NewCoordinate(0, 0),
		Destination: geo.NewCoordinate(0, 0.002),
		Algorithm:   AlgorithmBaseline,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.DistanceMeters != 20 {
		t.Errorf("distance = %v, want 20", result.DistanceMeters)
	}
	if len(result.EdgePath) != 2 {
		t.Errorf("edge path = %v, want two edges", result.EdgePath)
	}
}

func TestSearchUnreachableWithBlockedEdges(t *testing.T) {
	re := newTestEngine(t)

	blocked := da.NewEdgeSet()
	blocked.Add(0)
	blocked.Add(4)

	_, err := re.Search(context.Background(), PathRequest{
		Origin:       geo.NewCoordinate(0, 0),
		Destination:  geo.NewCoordinate(0, 0.002),
		Algorithm:    AlgorithmBaseline,
		BlockedEdges: blocked,
	})
	if err == nil {
		t.Fatal("expected unreachable error")
	}
	if !errors.Is(err, util.ErrUnreachable) {
		t.Errorf("error = %v, want ErrUnreachable", err)
	}
}
