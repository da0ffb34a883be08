package datastructure

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/opennavx/navsim/pkg"
	"github.com/opennavx/navsim/pkg/geo"
)

// WriteGraph persists the graph to a bzip2 compressed text file so a region
// bounding box only has to be parsed from osm once.
func (g *Graph) WriteGraph(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	defer bz.Close()

	w := bufio.NewWriter(bz)

	fmt.Fprintf(w, "%d %d %d\n", len(g.vertices), len(g.edges), len(g.streetNames))

	for vId := 0; vId < len(g.vertices); vId++ {
		v := &g.vertices[vId]
		latF := strconv.FormatFloat(v.lat, 'f', -1, 64)
		lonF := strconv.FormatFloat(v.lon, 'f', -1, 64)

		fmt.Fprintf(w, "%d %s %s %d\n", v.id, latF, lonF, v.osmId)
	}

	for _, name := range g.streetNames {
		fmt.Fprintf(w, "%s\n", name)
	}

	for i := range g.edges {
		e := &g.edges[i]
		distF := strconv.FormatFloat(e.dist, 'f', -1, 64)
		speedF := strconv.FormatFloat(e.speed, 'f', -1, 64)

		oneWay := 0
		if e.oneWay {
			oneWay = 1
		}
		fmt.Fprintf(w, "%d %d %d %s %s %d %d %d %d", e.edgeId, e.tail, e.head,
			distF, speedF, e.nameId, e.hwType, oneWay, len(e.geometry))
		for _, c := range e.geometry {
			gLatF := strconv.FormatFloat(c.GetLat(), 'f', -1, 64)
			gLonF := strconv.FormatFloat(c.GetLon(), 'f', -1, 64)
			fmt.Fprintf(w, " %s %s", gLatF, gLonF)
		}
		fmt.Fprintf(w, "\n")
	}

	return w.Flush()
}

// ReadGraph loads a graph previously written by WriteGraph.
func ReadGraph(filename string) (*Graph, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, &bzip2.ReaderConfig{})
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	sc := bufio.NewScanner(bz)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	if !sc.Scan() {
		return nil, fmt.Errorf("graph file %s: missing header", filename)
	}
	var numVertices, numEdges, numNames int
	if _, err := fmt.Sscanf(sc.Text(), "%d %d %d", &numVertices, &numEdges, &numNames); err != nil {
		return nil, fmt.Errorf("graph file %s: bad header: %w", filename, err)
	}

	vertices := make([]Vertex, numVertices)
	for i := 0; i < numVertices; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("graph file %s: truncated vertex section", filename)
		}
		var (
			id         Index
			lat, lon   float64
			osmId      int64
			latS, lonS string
		)
		if _, err := fmt.Sscanf(sc.Text(), "%d %s %s %d", &id, &latS, &lonS, &osmId); err != nil {
			return nil, fmt.Errorf("graph file %s: bad vertex line: %w", filename, err)
		}
		lat, _ = strconv.ParseFloat(latS, 64)
		lon, _ = strconv.ParseFloat(lonS, 64)
		vertices[i] = *NewVertex(lat, lon, id, osmId)
	}

	streetNames := make([]string, numNames)
	for i := 0; i < numNames; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("graph file %s: truncated street name section", filename)
		}
		streetNames[i] = sc.Text()
	}

	edges := make([]DirectedEdge, numEdges)
	for i := 0; i < numEdges; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("graph file %s: truncated edge section", filename)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 9 {
			return nil, fmt.Errorf("graph file %s: bad edge line %d", filename, i)
		}
		edgeId, _ := strconv.ParseUint(fields[0], 10, 32)
		tail, _ := strconv.ParseUint(fields[1], 10, 32)
		head, _ := strconv.ParseUint(fields[2], 10, 32)
		dist, _ := strconv.ParseFloat(fields[3], 64)
		speed, _ := strconv.ParseFloat(fields[4], 64)
		nameId, _ := strconv.ParseUint(fields[5], 10, 32)
		hwType, _ := strconv.ParseUint(fields[6], 10, 8)
		oneWay, _ := strconv.ParseInt(fields[7], 10, 8)
		numGeom, _ := strconv.ParseInt(fields[8], 10, 32)

		if len(fields) != 9+int(numGeom)*2 {
			return nil, fmt.Errorf("graph file %s: bad geometry on edge line %d", filename, i)
		}
		geometry := make([]geo.Coordinate, numGeom)
		for j := 0; j < int(numGeom); j++ {
			gLat, _ := strconv.ParseFloat(fields[9+j*2], 64)
			gLon, _ := strconv.ParseFloat(fields[10+j*2], 64)
			geometry[j] = geo.NewCoordinate(gLat, gLon)
		}

		edges[i] = NewDirectedEdge(Index(edgeId), Index(tail), Index(head), dist, speed,
			Index(nameId), pkg.OsmHighwayType(hwType), oneWay == 1, geometry)
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	return NewGraph(vertices, edges, streetNames), nil
}
