package osmparser

type NodeType uint8

const (
	END_NODE NodeType = iota
	BETWEEN_NODE
	JUNCTION_NODE
)

type NodeCoord struct {
	lat float64
	lon float64
}

func NewNodeCoord(lat, lon float64) NodeCoord {
	return NodeCoord{lat, lon}
}

func (c NodeCoord) GetLat() float64 {
	return c.lat
}

func (c NodeCoord) GetLon() float64 {
	return c.lon
}

// BoundingBox. region limits in degrees.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

func NewBoundingBox(minLat, minLon, maxLat, maxLon float64) BoundingBox {
	return BoundingBox{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}

func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Pad grows the box by pad degrees on every side.
func (b BoundingBox) Pad(pad float64) BoundingBox {
	return BoundingBox{
		MinLat: b.MinLat - pad,
		MinLon: b.MinLon - pad,
		MaxLat: b.MaxLat + pad,
		MaxLon: b.MaxLon + pad,
	}
}
