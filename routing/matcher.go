package routing

import (
	"kuanb/road-router/graph"

	"github.com/paulmach/orb"
)

const (
	DefaultMatchRadius = 500.0 // meters, snapping to the nearest drivable node
	DefaultCloseRadius = 50.0  // meters, labelling a known place
)

// Match is a coordinate resolved to a graph node.
type Match struct {
	Node     graph.NodeID
	Point    orb.Point // canonical node coordinate
	Distance float64   // meters from the query coordinate
}

// Matcher resolves coordinates to the nearest graph node within a radius.
type Matcher struct {
	Radius      float64
	CloseRadius float64
}

// NewMatcher creates a matcher with the default radii
func NewMatcher() *Matcher {
	return &Matcher{
		Radius:      DefaultMatchRadius,
		CloseRadius: DefaultCloseRadius,
	}
}

// Nearest returns the closest node to p within radius meters. A non-positive
// radius falls back to m.Radius.
func (m *Matcher) Nearest(g *graph.Graph, p orb.Point, radius float64) (Match, bool) {
	if radius <= 0 {
		radius = m.Radius
	}
	id, d, ok := g.Nearest(p, radius)
	if !ok {
		return Match{}, false
	}
	pt, _ := g.Node(id)
	return Match{Node: id, Point: pt, Distance: d}, true
}

// Close is Nearest with the close radius.
func (m *Matcher) Close(g *graph.Graph, p orb.Point) (Match, bool) {
	return m.Nearest(g, p, m.CloseRadius)
}
