package usecases

import (
	"github.com/opennavx/navsim/pkg/engine"
	"github.com/opennavx/navsim/pkg/osmparser"
)

type RegionProvider interface {
	RegionFor(bbox osmparser.BoundingBox) (*engine.Region, error)
	RegionAround(lat, lon float64) (*engine.Region, error)
}
