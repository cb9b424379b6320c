package routing

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var segmentStroke = map[SegmentKind]string{
	KindRoadSegment: "#1E88E5",
	KindApproach:    "#9E9E9E",
	KindEgress:      "#9E9E9E",
	KindUnknown:     "#E53935",
}

// FeatureCollection renders res as GeoJSON: one LineString for the whole
// route followed by one LineString per segment.
func FeatureCollection(res *Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	route := geojson.NewFeature(res.Geometry)
	route.Properties["kind"] = "route"
	route.Properties["total_distance_m"] = res.TotalDistance
	route.Properties["estimated_time_s"] = res.EstimatedTime.Seconds()
	fc.Append(route)

	for i, s := range res.Segments {
		f := geojson.NewFeature(orb.LineString{res.Geometry[i], res.Geometry[i+1]})
		f.Properties["kind"] = string(s.Kind)
		f.Properties["length_m"] = s.Length
		f.Properties["time_s"] = s.Time.Seconds()
		f.Properties["stroke"] = segmentStroke[s.Kind]
		if s.Kind == KindRoadSegment {
			f.Properties["road_id"] = int64(s.Road)
			if s.RoadName != "" {
				f.Properties["road_name"] = s.RoadName
			}
			if s.RoadType != "" {
				f.Properties["road_type"] = s.RoadType
			}
		}
		fc.Append(f)
	}
	return fc
}
