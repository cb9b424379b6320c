package osm

import (
	"strconv"
	"strings"

	"kuanb/road-router/graph"

	"github.com/paulmach/orb"
)

type OsmWayId int64

type OsmNodeId int64

type OsmNode struct {
	ID  OsmNodeId
	Lat float64
	Lon float64
}

type OsmWay struct {
	ID       OsmWayId
	Nodes    []OsmNodeId
	Highway  string
	Name     string
	Oneway   string // raw value of the oneway tag
	Junction string
	MaxSpeed string // raw value of the maxspeed tag
}

// direction interprets the oneway tag: 1 forward only, -1 against the node
// order only, 0 both ways. An explicit tag beats the implied oneway of
// motorways and roundabouts.
func (w *OsmWay) direction() int {
	switch w.Oneway {
	case "yes", "true", "1":
		return 1
	case "-1", "reverse":
		return -1
	case "no", "false", "0":
		return 0
	}
	if w.Highway == "motorway" || w.Junction == "roundabout" {
		return 1
	}
	return 0
}

const kmhPerMph = 1.609344

// maxSpeedKmh parses the maxspeed tag. Values such as "none", "signals" or
// country codes yield 0, which means unknown.
func (w *OsmWay) maxSpeedKmh() float64 {
	s := strings.TrimSpace(w.MaxSpeed)
	factor := 1.0
	if v, ok := strings.CutSuffix(s, "mph"); ok {
		s, factor = strings.TrimSpace(v), kmhPerMph
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v * factor
}

// Road converts the way into a road record. Nodes missing from the extract
// are dropped from the polyline.
func (w *OsmWay) Road(nodes map[OsmNodeId]*OsmNode) graph.Road {
	line := make(orb.LineString, 0, len(w.Nodes))
	for _, nid := range w.Nodes {
		if n, ok := nodes[nid]; ok {
			line = append(line, orb.Point{n.Lon, n.Lat})
		}
	}

	dir := w.direction()
	if dir < 0 {
		line.Reverse()
	}
	return graph.Road{
		ID:          graph.RoadID(w.ID),
		Name:        w.Name,
		Type:        w.Highway,
		Polyline:    line,
		OneWay:      dir != 0,
		MaxSpeedKmh: w.maxSpeedKmh(),
	}
}
