package routing

import (
	"context"
	"testing"

	"kuanb/road-router/graph"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

// Points along the equator, roughly 111m apart per 0.001 degree.
var (
	ptA = orb.Point{0, 0}
	ptB = orb.Point{0.001, 0}
	ptC = orb.Point{0.0015, 0}
	ptE = orb.Point{0.001, 0.001}
	ptD = orb.Point{0.01, 0.01} // far from everything else
)

// staticGraph publishes one graph forever.
type staticGraph struct{ g *graph.Graph }

func (s staticGraph) Current() *graph.Graph { return s.g }

func buildGraph(t *testing.T, roads ...graph.Road) *graph.Graph {
	t.Helper()
	g, _, err := graph.NewBuilder(graph.DefaultOptions(), nil).Build(roads)
	require.NoError(t, err)
	return g
}

func node(t *testing.T, g *graph.Graph, p orb.Point) graph.NodeID {
	t.Helper()
	id, ok := g.NodeAt(p)
	require.True(t, ok, "no node at %v", p)
	return id
}

func newTestRouter(g *graph.Graph) *Router {
	return NewRouter(staticGraph{g}, Options{})
}

func route(t *testing.T, r *Router, start, end orb.Point) (*Result, error) {
	t.Helper()
	return r.Route(context.Background(), Request{Start: start, End: end})
}
