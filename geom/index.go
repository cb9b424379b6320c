package geom

import (
	"fmt"

	"github.com/paulmach/orb"
)

// PointIndex stores points under integer ids and answers nearest-within-radius
// queries. Ties on distance resolve to the smaller point by Less, then the
// smaller id, for every implementation.
type PointIndex interface {
	Insert(id int, p orb.Point)
	Nearest(p orb.Point, radiusMeters float64) (id int, distMeters float64, ok bool)
	Len() int
}

const (
	IndexLinear = "linear"
	IndexRTree  = "rtree"
)

// NewIndex returns an empty index of the named kind.
func NewIndex(kind string) (PointIndex, error) {
	switch kind {
	case IndexLinear, "":
		return NewLinearIndex(), nil
	case IndexRTree:
		return NewRTree(), nil
	default:
		return nil, fmt.Errorf("unknown point index %q", kind)
	}
}

type indexedPoint struct {
	id int
	p  orb.Point
}

// nearestTracker keeps the best candidate seen so far.
type nearestTracker struct {
	best  indexedPoint
	dist  float64
	found bool
}

func (t *nearestTracker) offer(c indexedPoint, d float64) {
	if !t.found || d < t.dist || (d == t.dist && before(c, t.best)) {
		t.best, t.dist, t.found = c, d, true
	}
}

func before(a, b indexedPoint) bool {
	if a.p != b.p {
		return Less(a.p, b.p)
	}
	return a.id < b.id
}

// LinearIndex scans every stored point on each query.
type LinearIndex struct {
	points []indexedPoint
}

func NewLinearIndex() *LinearIndex {
	return &LinearIndex{}
}

func (l *LinearIndex) Insert(id int, p orb.Point) {
	l.points = append(l.points, indexedPoint{id: id, p: p})
}

func (l *LinearIndex) Nearest(p orb.Point, radiusMeters float64) (int, float64, bool) {
	if radiusMeters < 0 {
		return 0, 0, false
	}
	var t nearestTracker
	for _, c := range l.points {
		t.offer(c, Distance(p, c.p))
	}
	if !t.found || t.dist > radiusMeters {
		return 0, 0, false
	}
	return t.best.id, t.dist, true
}

func (l *LinearIndex) Len() int {
	return len(l.points)
}
