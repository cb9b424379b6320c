package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"kuanb/road-router/graph"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roadsYAML = `
roads:
  - id: 1
    name: Main Street
    road_type: local
    coordinates: [[95.653, 16.73], [95.655, 16.732]]
    length_m: [1000]
    max_speed_kmh: 50
  - id: 2
    name: Market Lane
    coordinates: [[95.655, 16.732], [95.6544, 16.7314]]
    is_oneway: true
`

func TestFileRoadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roads.yaml")
	require.NoError(t, os.WriteFile(path, []byte(roadsYAML), 0o600))

	roads, err := NewFile(path).Roads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []graph.Road{
		{
			ID: 1, Name: "Main Street", Type: "local",
			Polyline:       orb.LineString{{95.653, 16.73}, {95.655, 16.732}},
			SegmentLengths: []float64{1000},
			MaxSpeedKmh:    50,
		},
		{
			ID: 2, Name: "Market Lane",
			Polyline: orb.LineString{{95.655, 16.732}, {95.6544, 16.7314}},
			OneWay:   true,
		},
	}, roads)
}

func TestParseRoadsJSON(t *testing.T) {
	roads, err := ParseRoads([]byte(`{"roads":[{"id":3,"coordinates":[[1,2],[3,4]],"length_m":[10]}]}`))
	require.NoError(t, err)
	require.Len(t, roads, 1)
	assert.Equal(t, orb.LineString{{1, 2}, {3, 4}}, roads[0].Polyline)
}

func TestParseRoadsMalformedCoordinate(t *testing.T) {
	roads, err := ParseRoads([]byte(`{"roads":[{"id":3,"coordinates":[[1,2,3],[3,4]]}]}`))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(roads[0].Polyline[0][0]))
	assert.ErrorIs(t, graph.ValidateRoad(roads[0]), graph.ErrInvalidRoad)
}

func TestFileMissing(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "nope.yaml")).Roads(context.Background())
	assert.Error(t, err)
}
