package pkg

type OsmHighwayType uint8

// enum for osm highway classes used for routing: https://wiki.openstreetmap.org/wiki/OSM_tags_for_routing/Telenav
const (
	MOTORWAY       OsmHighwayType = 0
	TRUNK          OsmHighwayType = 1
	PRIMARY        OsmHighwayType = 2
	SECONDARY      OsmHighwayType = 3
	TERTIARY       OsmHighwayType = 4
	RESIDENTIAL    OsmHighwayType = 5
	SERVICE        OsmHighwayType = 6
	UNCLASSIFIED   OsmHighwayType = 7
	MOTORWAY_LINK  OsmHighwayType = 8
	TRUNK_LINK     OsmHighwayType = 9
	PRIMARY_LINK   OsmHighwayType = 10
	SECONDARY_LINK OsmHighwayType = 11
	TERTIARY_LINK  OsmHighwayType = 12
	LIVING_STREET  OsmHighwayType = 13
	ROAD           OsmHighwayType = 14
	UNKNOWN        OsmHighwayType = 15
)

const (
	INF_WEIGHT float64 = 1e15
)

func GetHighwayType(roadType string) OsmHighwayType {
	switch roadType {
	case "motorway":
		return MOTORWAY
	case "trunk":
		return TRUNK
	case "primary":
		return PRIMARY
	case "secondary":
		return SECONDARY
	case "tertiary":
		return TERTIARY
	case "unclassified":
		return UNCLASSIFIED
	case "residential":
		return RESIDENTIAL
	case "service":
		return SERVICE
	case "motorway_link":
		return MOTORWAY_LINK
	case "trunk_link":
		return TRUNK_LINK
	case "primary_link":
		return PRIMARY_LINK
	case "secondary_link":
		return SECONDARY_LINK
	case "tertiary_link":
		return TERTIARY_LINK
	case "living_street":
		return LIVING_STREET
	case "road":
		return ROAD
	default:
		return UNKNOWN
	}
}

// DefaultSpeedKmh. fallback legal speed when osm doesn't provide maxspeed.
func DefaultSpeedKmh(hwType OsmHighwayType) float64 {
	switch hwType {
	case MOTORWAY:
		return 100.0
	case TRUNK:
		return 80.0
	case PRIMARY:
		return 70.0
	case SECONDARY:
		return 60.0
	case TERTIARY:
		return 55.0
	case RESIDENTIAL, LIVING_STREET:
		return 50.0
	case SERVICE:
		return 35.0
	default:
		return 50.0
	}
}
