package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// RTree wraps tidwall/rtree as a PointIndex. Points are stored as degenerate
// boxes; queries search a lon/lat box around the target and rank the hits by
// great-circle distance.
type RTree struct {
	tree *rtree.RTreeG[indexedPoint]
}

// NewRTree creates a new RTree
func NewRTree() *RTree {
	return &RTree{
		tree: &rtree.RTreeG[indexedPoint]{},
	}
}

// Insert adds a point under id
func (r *RTree) Insert(id int, p orb.Point) {
	box := [2]float64{p[0], p[1]}
	r.tree.Insert(box, box, indexedPoint{id: id, p: p})
}

// Search calls fn for every point inside the bbox
func (r *RTree) Search(minLon, minLat, maxLon, maxLat float64, fn func(id int, p orb.Point)) {
	r.tree.Search(
		[2]float64{minLon, minLat},
		[2]float64{maxLon, maxLat},
		func(min, max [2]float64, item indexedPoint) bool {
			fn(item.id, item.p)
			return true // continue searching
		},
	)
}

// Nearest returns the closest point within radiusMeters of p
func (r *RTree) Nearest(p orb.Point, radiusMeters float64) (int, float64, bool) {
	if radiusMeters < 0 || r.tree.Len() == 0 {
		return 0, 0, false
	}
	minLon, minLat, maxLon, maxLat := searchBox(p, radiusMeters)

	var t nearestTracker
	r.Search(minLon, minLat, maxLon, maxLat, func(id int, c orb.Point) {
		t.offer(indexedPoint{id: id, p: c}, Distance(p, c))
	})
	if !t.found || t.dist > radiusMeters {
		return 0, 0, false
	}
	return t.best.id, t.dist, true
}

// Len returns the number of points in the RTree
func (r *RTree) Len() int {
	return r.tree.Len()
}

// searchBox converts a radius in meters into a lon/lat box that contains every
// point within that great-circle distance of p. The longitude span uses the
// latitude farthest from the equator inside the box, so the box never
// undershoots.
func searchBox(p orb.Point, distanceMeters float64) (minLon, minLat, maxLon, maxLat float64) {
	metersPerDegree := EarthRadiusMeters * math.Pi / 180.0
	deltaLat := distanceMeters / metersPerDegree

	edgeLat := math.Min(math.Abs(p[1])+deltaLat, 90)
	cosLat := math.Cos(edgeLat * math.Pi / 180.0)
	deltaLon := 180.0
	if cosLat > 1e-9 {
		deltaLon = math.Min(distanceMeters/(metersPerDegree*cosLat), 180.0)
	}

	// pad for rounding at the box edge
	deltaLat *= 1.001
	deltaLon *= 1.001
	return p[0] - deltaLon, p[1] - deltaLat, p[0] + deltaLon, p[1] + deltaLat
}
