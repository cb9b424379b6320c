package osm

import (
	"testing"

	"kuanb/road-router/graph"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestWayDirection(t *testing.T) {
	cases := []struct {
		highway, oneway, junction string
		want                      int
	}{
		{"residential", "", "", 0},
		{"residential", "no", "", 0},
		{"residential", "yes", "", 1},
		{"primary", "true", "", 1},
		{"primary", "1", "", 1},
		{"secondary", "-1", "", -1},
		{"secondary", "reverse", "", -1},
		{"motorway", "", "", 1},
		{"motorway", "-1", "", -1},
		{"motorway", "no", "", 0},
		{"motorway", "false", "", 0},
		{"motorway", "0", "", 0},
		{"tertiary", "", "roundabout", 1},
		{"tertiary", "no", "roundabout", 0},
		{"tertiary", "", "circular", 0},
	}
	for _, c := range cases {
		w := &OsmWay{Highway: c.highway, Oneway: c.oneway, Junction: c.junction}
		assert.Equal(t, c.want, w.direction(),
			"highway=%s oneway=%s junction=%s", c.highway, c.oneway, c.junction)
	}
}

func TestWayMaxSpeed(t *testing.T) {
	cases := map[string]float64{
		"":         0,
		"50":       50,
		" 60 ":     60,
		"30 mph":   30 * kmhPerMph,
		"20mph":    20 * kmhPerMph,
		"none":     0,
		"signals":  0,
		"RU:urban": 0,
		"-5":       0,
	}
	for tag, want := range cases {
		w := &OsmWay{MaxSpeed: tag}
		assert.InDelta(t, want, w.maxSpeedKmh(), 1e-9, "maxspeed=%q", tag)
	}
}

func TestWayRoad(t *testing.T) {
	nodes := map[OsmNodeId]*OsmNode{
		1: {ID: 1, Lon: 95.65, Lat: 16.73},
		2: {ID: 2, Lon: 95.66, Lat: 16.74},
		3: {ID: 3, Lon: 95.67, Lat: 16.75},
	}

	w := &OsmWay{ID: 77, Nodes: []OsmNodeId{1, 2, 3}, Highway: "tertiary", Name: "Strand Road", MaxSpeed: "40"}
	assert.Equal(t, graph.Road{
		ID:          77,
		Name:        "Strand Road",
		Type:        "tertiary",
		Polyline:    orb.LineString{{95.65, 16.73}, {95.66, 16.74}, {95.67, 16.75}},
		MaxSpeedKmh: 40,
	}, w.Road(nodes))

	w.Oneway = "-1"
	r := w.Road(nodes)
	assert.True(t, r.OneWay)
	assert.Equal(t, orb.LineString{{95.67, 16.75}, {95.66, 16.74}, {95.65, 16.73}}, r.Polyline)
}

func TestWayRoadMissingNodes(t *testing.T) {
	nodes := map[OsmNodeId]*OsmNode{
		1: {ID: 1, Lon: 1, Lat: 1},
		3: {ID: 3, Lon: 3, Lat: 3},
	}
	w := &OsmWay{ID: 5, Nodes: []OsmNodeId{1, 2, 3, 4}, Highway: "service"}
	assert.Equal(t, orb.LineString{{1, 1}, {3, 3}}, w.Road(nodes).Polyline)
}
