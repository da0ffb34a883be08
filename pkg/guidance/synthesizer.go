package guidance

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	da "github.com/opennavx/navsim/pkg/datastructure"
	"github.com/opennavx/navsim/pkg/geo"
	"github.com/opennavx/navsim/pkg/util"
)

// Synthesizer turns an edge path from the routing engine into navigable route
// metadata: the dense polyline, cumulative distance and time prefix arrays
// aligned with it point for point, and maneuver steps partitioning the
// distance domain.
type Synthesizer struct {
	graph *da.Graph
	log   *zap.Logger
}

func NewSynthesizer(graph *da.Graph, log *zap.Logger) *Synthesizer {
	return &Synthesizer{
		graph: graph,
		log:   log,
	}
}

// edgeSpan. one path edge projected onto the expanded polyline.
type edgeSpan struct {
	startIdx int
	endIdx   int
	street   string
	bearing  float64
	speedKmh float64
}

// Synthesize builds route metadata for an edge path. the scenario tag scales
// edge speeds through the configured multiplier table, nothing else.
func (s *Synthesizer) Synthesize(edgePath []da.Index, scenario, algorithm string) (*da.RouteMeta, error) {
	if len(edgePath) == 0 {
		return nil, util.WrapErrorf(util.ErrInvalidRoute, util.ErrBadParamInput,
			"guidance.Synthesize: empty edge path")
	}

	coords, spans := s.expand(edgePath)
	cumDistance := cumulativeDistance(coords)
	cumTime := cumulativeTime(cumDistance, spans, ScenarioMultiplier(scenario))
	steps := s.buildSteps(spans, cumDistance)

	meta := da.NewRouteMeta(coords, cumDistance, cumTime, steps, algorithm)
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return meta, nil
}

// expand concatenates the edge geometries into one polyline, dropping each
// edge's first point after the first edge since it repeats the previous edge's
// last point.
func (s *Synthesizer) expand(edgePath []da.Index) ([]geo.Coordinate, []edgeSpan) {
	coords := make([]geo.Coordinate, 0, len(edgePath)*4)
	spans := make([]edgeSpan, 0, len(edgePath))

	for i, edgeId := range edgePath {
		e := s.graph.GetEdge(edgeId)
		geom := e.GetGeometry()

		startIdx := len(coords)
		if i == 0 {
			coords = append(coords, geom...)
		} else {
			startIdx--
			coords = append(coords, geom[1:]...)
		}

		first, last := geom[0], geom[len(geom)-1]
		spans = append(spans, edgeSpan{
			startIdx: startIdx,
			endIdx:   len(coords) - 1,
			street:   s.graph.GetStreetName(edgeId),
			bearing:  geo.BearingTo(first.GetLat(), first.GetLon(), last.GetLat(), last.GetLon()),
			speedKmh: e.GetSpeed(),
		})
	}
	return coords, spans
}

func cumulativeDistance(coords []geo.Coordinate) []float64 {
	cum := make([]float64, len(coords))
	for i := 1; i < len(coords); i++ {
		cum[i] = cum[i-1] + geo.HaversineMeter(coords[i-1], coords[i])
	}
	return cum
}

// cumulativeTime spreads each edge's travel time over its polyline points,
// proportional to distance within the edge so time and distance advance
// together. clamped so the array never decreases.
func cumulativeTime(cumDistance []float64, spans []edgeSpan, multiplier float64) []float64 {
	cum := make([]float64, len(cumDistance))

	for _, span := range spans {
		spanDist := cumDistance[span.endIdx] - cumDistance[span.startIdx]

		speedMps := span.speedKmh * multiplier / 3.6
		spanTime := 0.0
		if speedMps > 0 {
			spanTime = spanDist / speedMps
		}

		base := cum[span.startIdx]
		for i := span.startIdx + 1; i <= span.endIdx; i++ {
			if spanDist > 0 {
				cum[i] = base + spanTime*(cumDistance[i]-cumDistance[span.startIdx])/spanDist
			} else {
				cum[i] = base
			}
			if cum[i] < cum[i-1] {
				cum[i] = cum[i-1]
			}
		}
	}
	return cum
}

// ScenarioMultiplier looks up the speed multiplier for a dispatch scenario
// tag. unknown tags fall back to 1.0.
func ScenarioMultiplier(scenario string) float64 {
	if scenario == "" {
		return 1.0
	}
	m := viper.GetFloat64("guidance.scenario_multipliers." + strings.ToLower(scenario))
	if m <= 0 {
		return 1.0
	}
	return m
}

// buildSteps groups consecutive spans into maneuver steps. a new step starts
// when the street name changes or the bearing delta between consecutive edges
// reaches the turn threshold. tiny steps get merged into the previous step on
// the same street, and the step boundaries partition [0, totalDistance]
// exactly since both sides read the same prefix-array entry.
func (s *Synthesizer) buildSteps(spans []edgeSpan, cumDistance []float64) []da.NavStep {
	turnThreshold := viper.GetFloat64("guidance.turn_threshold_degrees")
	minStepLen := viper.GetFloat64("guidance.min_step_length_meters")

	steps := make([]da.NavStep, 0, 8)

	groupStart := 0
	for i := 1; i <= len(spans); i++ {
		boundary := i == len(spans)
		var delta float64
		if !boundary {
			delta = geo.SignedDeltaBearing(spans[i-1].bearing, spans[i].bearing)
			abs := delta
			if abs < 0 {
				abs = -abs
			}
			boundary = spans[i].street != spans[i-1].street || abs >= turnThreshold
		}
		if !boundary {
			continue
		}

		first := spans[groupStart]
		startDist := cumDistance[first.startIdx]
		endDist := cumDistance[spans[i-1].endIdx]

		var maneuver da.Maneuver
		if groupStart == 0 {
			maneuver = da.DEPART
		} else {
			entryDelta := geo.SignedDeltaBearing(spans[groupStart-1].bearing, first.bearing)
			maneuver = ClassifyTurn(entryDelta)
		}

		steps = append(steps, da.NewNavStep(
			len(steps),
			InstructionFor(maneuver, first.street, first.bearing),
			first.street,
			startDist,
			endDist,
			maneuver,
		))
		groupStart = i
	}

	steps = mergeShortSteps(steps, minStepLen)

	total := cumDistance[len(cumDistance)-1]
	steps = append(steps, da.NewNavStep(
		len(steps),
		InstructionFor(da.ARRIVE, "", 0),
		"",
		total,
		total,
		da.ARRIVE,
	))

	for i := range steps {
		steps[i].SetId(i)
	}
	return steps
}

// mergeShortSteps folds steps shorter than minLen into the previous step when
// both sit on the same street. keeps the depart step.
func mergeShortSteps(steps []da.NavStep, minLen float64) []da.NavStep {
	if len(steps) < 2 {
		return steps
	}

	merged := steps[:1]
	for i := 1; i < len(steps); i++ {
		cur := steps[i]
		prev := &merged[len(merged)-1]
		if cur.GetEndDistance()-cur.GetStartDistance() < minLen &&
			cur.GetStreet() == prev.GetStreet() {
			prev.SetEndDistance(cur.GetEndDistance())
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}
