package graph

import (
	"context"

	"kuanb/road-router/geom"

	"github.com/paulmach/orb"
)

type RoadID int64

type NodeID int

// Road is one stored road centerline as delivered by a RoadSource.
type Road struct {
	ID             RoadID
	Name           string
	Type           string
	Polyline       orb.LineString
	SegmentLengths []float64 // optional, len(Polyline)-1 when present
	OneWay         bool
	MaxSpeedKmh    float64 // 0 when unknown
}

// RoadSource delivers the full set of roads a graph is built from.
type RoadSource interface {
	Roads(ctx context.Context) ([]Road, error)
}

// RoadSourceFunc adapts a function to RoadSource.
type RoadSourceFunc func(ctx context.Context) ([]Road, error)

func (f RoadSourceFunc) Roads(ctx context.Context) ([]Road, error) {
	return f(ctx)
}

type EdgeKey struct {
	From NodeID
	To   NodeID
}

// Edge is a directed arc between two nodes.
type Edge struct {
	From        NodeID
	To          NodeID
	Length      float64 // meters
	Road        RoadID
	RoadName    string
	RoadType    string
	MaxSpeedKmh float64
	Geometry    orb.LineString
}

// Graph is an immutable routing graph. It is never modified after Build
// returns it, so it may be shared by any number of readers.
type Graph struct {
	nodes  []orb.Point
	lookup map[orb.Point]NodeID
	edges  map[EdgeKey]*Edge
	out    [][]EdgeKey
	index  geom.PointIndex
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Node returns the canonical coordinate of id.
func (g *Graph) Node(id NodeID) (orb.Point, bool) {
	if id < 0 || int(id) >= len(g.nodes) {
		return orb.Point{}, false
	}
	return g.nodes[id], true
}

// NodeAt returns the node whose canonical coordinate equals p after rounding.
func (g *Graph) NodeAt(p orb.Point) (NodeID, bool) {
	id, ok := g.lookup[geom.Canonical(p)]
	return id, ok
}

// Edge returns the edge for the ordered pair (from, to).
func (g *Graph) Edge(from, to NodeID) (*Edge, bool) {
	e, ok := g.edges[EdgeKey{From: from, To: to}]
	return e, ok
}

// Outgoing calls fn for each edge leaving id, in build order. Iteration stops
// when fn returns false.
func (g *Graph) Outgoing(id NodeID, fn func(e *Edge) bool) {
	if id < 0 || int(id) >= len(g.out) {
		return
	}
	for _, k := range g.out[id] {
		if !fn(g.edges[k]) {
			return
		}
	}
}

// Nearest returns the node closest to p within radiusMeters.
func (g *Graph) Nearest(p orb.Point, radiusMeters float64) (NodeID, float64, bool) {
	if g.index == nil {
		return 0, 0, false
	}
	id, d, ok := g.index.Nearest(p, radiusMeters)
	return NodeID(id), d, ok
}

// TotalLength sums the length of every directed edge in build order.
func (g *Graph) TotalLength() float64 {
	var total float64
	for _, keys := range g.out {
		for _, k := range keys {
			total += g.edges[k].Length
		}
	}
	return total
}
