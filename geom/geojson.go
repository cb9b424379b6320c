package geom

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrNoCoordinates is returned when a GeoJSON document holds no positions.
var ErrNoCoordinates = errors.New("no coordinates found in GeoJSON")

// PointsFromGeoJSON extracts every position of a FeatureCollection's Point,
// MultiPoint and LineString geometries in document order.
func PointsFromGeoJSON(data []byte) ([]orb.Point, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}

	var points []orb.Point
	for _, feature := range fc.Features {
		switch g := feature.Geometry.(type) {
		case orb.Point:
			points = append(points, g)
		case orb.MultiPoint:
			points = append(points, g...)
		case orb.LineString:
			points = append(points, g...)
		}
	}
	if len(points) == 0 {
		return nil, ErrNoCoordinates
	}
	return points, nil
}
