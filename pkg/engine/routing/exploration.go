package routing

import (
	"github.com/opennavx/navsim/pkg/util"
)

// ExplorationRecorder collects the edges a search relaxes, in visitation
// order, for rendering the explored frontier on a map. memory stays bounded:
// once the buffer hits its cap the recorder decimates it in place (keeps every
// other sample and doubles its sampling stride), so a long search yields an
// evenly thinned trace instead of an ever-growing one.
type ExplorationRecorder struct {
	segments [][4]float64
	cap      int
	stride   int
	skip     int
	total    int
}

func NewExplorationRecorder(cap int) *ExplorationRecorder {
	if cap <= 0 {
		cap = 1
	}
	return &ExplorationRecorder{
		segments: make([][4]float64, 0, cap),
		cap:      cap,
		stride:   1,
	}
}

func (er *ExplorationRecorder) RecordEdge(fromLat, fromLon, toLat, toLon float64) {
	er.total++

	if er.skip > 0 {
		er.skip--
		return
	}
	er.skip = er.stride - 1

	if len(er.segments) == er.cap {
		er.decimate()
	}

	er.segments = append(er.segments, [4]float64{
		util.RoundFloat(fromLat, 6), util.RoundFloat(fromLon, 6),
		util.RoundFloat(toLat, 6), util.RoundFloat(toLon, 6),
	})
}

// decimate halves the buffer, keeping every other sample so the retained
// trace stays evenly spread over the whole search.
func (er *ExplorationRecorder) decimate() {
	w := 0
	for i := 0; i < len(er.segments); i += 2 {
		er.segments[w] = er.segments[i]
		w++
	}
	er.segments = er.segments[:w]
	er.stride *= 2
}

// Segments returns the retained [fromLat, fromLon, toLat, toLon] samples.
func (er *ExplorationRecorder) Segments() [][4]float64 {
	return er.segments
}

// TotalRelaxed returns how many edges the search relaxed in total, including
// edges thinned out of the retained trace.
func (er *ExplorationRecorder) TotalRelaxed() int {
	return er.total
}
