package routing

import (
	"context"
	"testing"

	"kuanb/road-router/graph"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveOneWayChain(t *testing.T) {
	g := buildGraph(t,
		graph.Road{ID: 1, Polyline: orb.LineString{ptA, ptB}, SegmentLengths: []float64{100}, OneWay: true},
		graph.Road{ID: 2, Polyline: orb.LineString{ptB, ptC}, SegmentLengths: []float64{50}, OneWay: true},
	)
	a, b, c := node(t, g, ptA), node(t, g, ptB), node(t, g, ptC)

	sol, err := Solver{}.Solve(context.Background(), g, a, c)
	require.NoError(t, err)
	require.True(t, sol.Found)
	assert.Equal(t, 150.0, sol.Distance)
	assert.Equal(t, []graph.NodeID{a, b, c}, sol.Path)

	sol, err = Solver{}.Solve(context.Background(), g, c, a)
	require.NoError(t, err)
	assert.False(t, sol.Found, "one-way edges must not be traversed backwards")
}

func TestSolvePrefersShorterDetour(t *testing.T) {
	g := buildGraph(t,
		graph.Road{ID: 1, Polyline: orb.LineString{ptA, ptC}, SegmentLengths: []float64{1000}},
		graph.Road{ID: 2, Polyline: orb.LineString{ptA, ptB, ptC}, SegmentLengths: []float64{100, 50}},
	)
	a, b, c := node(t, g, ptA), node(t, g, ptB), node(t, g, ptC)

	sol, err := Solver{}.Solve(context.Background(), g, a, c)
	require.NoError(t, err)
	require.True(t, sol.Found)
	assert.Equal(t, 150.0, sol.Distance)
	assert.Equal(t, []graph.NodeID{a, b, c}, sol.Path)
}

func TestSolveSameNode(t *testing.T) {
	g := buildGraph(t, graph.Road{ID: 1, Polyline: orb.LineString{ptA, ptB}})
	a := node(t, g, ptA)

	sol, err := Solver{}.Solve(context.Background(), g, a, a)
	require.NoError(t, err)
	assert.Equal(t, Solution{Found: true, Path: []graph.NodeID{a}}, sol)
}

func TestSolveDisconnected(t *testing.T) {
	g := buildGraph(t,
		graph.Road{ID: 1, Polyline: orb.LineString{ptA, ptB}},
		graph.Road{ID: 2, Polyline: orb.LineString{ptD, {0.011, 0.01}}},
	)
	sol, err := Solver{}.Solve(context.Background(), g, node(t, g, ptA), node(t, g, ptD))
	require.NoError(t, err)
	assert.False(t, sol.Found)
	assert.Empty(t, sol.Path)
}

func TestSolveUnknownNodes(t *testing.T) {
	g := buildGraph(t, graph.Road{ID: 1, Polyline: orb.LineString{ptA, ptB}})
	sol, err := Solver{}.Solve(context.Background(), g, 0, 99)
	require.NoError(t, err)
	assert.False(t, sol.Found)
}

func TestSolveTieBreakIsStable(t *testing.T) {
	// two equal-length routes from A to C: via B and via E
	g := buildGraph(t,
		graph.Road{ID: 1, Polyline: orb.LineString{ptA, ptB, ptC}, SegmentLengths: []float64{10, 10}},
		graph.Road{ID: 2, Polyline: orb.LineString{ptA, ptE, ptC}, SegmentLengths: []float64{10, 10}},
	)
	first, err := Solver{}.Solve(context.Background(), g, node(t, g, ptA), node(t, g, ptC))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Solver{}.Solve(context.Background(), g, node(t, g, ptA), node(t, g, ptC))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, node(t, g, ptB), first.Path[1], "lower node id settles first")
}

func TestSolveHonoursCancellation(t *testing.T) {
	line := make(orb.LineString, 3000)
	for i := range line {
		line[i] = orb.Point{float64(i) * 0.0001, 0}
	}
	g := buildGraph(t, graph.Road{ID: 1, Polyline: line})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Solver{}.Solve(ctx, g, node(t, g, line[0]), node(t, g, line[len(line)-1]))
	assert.ErrorIs(t, err, ErrTimeout)
}
