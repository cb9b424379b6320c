package routing

import (
	"log/slog"
	"time"

	"kuanb/road-router/geom"
	"kuanb/road-router/graph"

	"github.com/paulmach/orb"
)

type SegmentKind string

const (
	KindRoadSegment SegmentKind = "road-segment"
	KindApproach    SegmentKind = "approach"
	KindEgress      SegmentKind = "egress"
	KindUnknown     SegmentKind = "unknown"
)

const (
	DefaultRoadSpeedKmh   = 50.0 // roads without a max speed
	DefaultAccessSpeedKmh = 5.0  // approach and egress legs
)

// Speeds converts segment lengths into travel times. Costs stay distance
// based; times are informational.
type Speeds struct {
	RoadKmh   float64
	AccessKmh float64
}

func DefaultSpeeds() Speeds {
	return Speeds{RoadKmh: DefaultRoadSpeedKmh, AccessKmh: DefaultAccessSpeedKmh}
}

// withDefaults fills non-positive speeds from DefaultSpeeds.
func (s Speeds) withDefaults() Speeds {
	if s.RoadKmh <= 0 {
		s.RoadKmh = DefaultRoadSpeedKmh
	}
	if s.AccessKmh <= 0 {
		s.AccessKmh = DefaultAccessSpeedKmh
	}
	return s
}

func travelTime(meters, kmh float64) time.Duration {
	return time.Duration(meters / (kmh / 3.6) * float64(time.Second))
}

// Segment attributes one leg of a reconstructed route. Segment i of a
// Reconstruction spans Geometry[i] to Geometry[i+1].
type Segment struct {
	Kind     SegmentKind
	Road     graph.RoadID // zero unless Kind is KindRoadSegment
	RoadName string
	RoadType string
	Length   float64 // meters
	Time     time.Duration
}

// Reconstruction is the drawable form of a solved path.
type Reconstruction struct {
	Geometry      orb.LineString
	Segments      []Segment
	TotalDistance float64
	EstimatedTime time.Duration
	Inconsistent  int // node pairs with no edge in the graph
}

// Reconstructor stitches a solved node path back to the caller's raw
// coordinates.
type Reconstructor struct {
	speeds Speeds
	logger *slog.Logger
}

// NewReconstructor returns a reconstructor timing legs at speeds. Zero speeds
// take their defaults.
func NewReconstructor(speeds Speeds, logger *slog.Logger) *Reconstructor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconstructor{speeds: speeds.withDefaults(), logger: logger}
}

// Reconstruct builds the route geometry for path. Missing edges produce
// KindUnknown segments instead of aborting.
func (r *Reconstructor) Reconstruct(g *graph.Graph, path []graph.NodeID, rawStart, rawEnd orb.Point) Reconstruction {
	rec := Reconstruction{Geometry: orb.LineString{rawStart}}
	if len(path) == 0 {
		return rec
	}

	first, _ := g.Node(path[0])
	if d := geom.Distance(rawStart, first); d > 0 {
		rec.add(Segment{Kind: KindApproach, Length: d, Time: travelTime(d, r.speeds.AccessKmh)}, first)
	}

	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		e, ok := g.Edge(from, to)
		if !ok {
			a, _ := g.Node(from)
			b, _ := g.Node(to)
			r.logger.Error("solved path references a missing edge",
				"from", from, "to", to, "error", ErrInconsistentGraphData)
			rec.Inconsistent++
			d := geom.Distance(a, b)
			rec.add(Segment{Kind: KindUnknown, Length: d, Time: travelTime(d, r.speeds.RoadKmh)}, b)
			continue
		}
		speed := e.MaxSpeedKmh
		if speed <= 0 {
			speed = r.speeds.RoadKmh
		}
		rec.add(Segment{
			Kind:     KindRoadSegment,
			Road:     e.Road,
			RoadName: e.RoadName,
			RoadType: e.RoadType,
			Length:   e.Length,
			Time:     travelTime(e.Length, speed),
		}, e.Geometry[len(e.Geometry)-1])
	}

	last, _ := g.Node(path[len(path)-1])
	if d := geom.Distance(last, rawEnd); d > 0 {
		rec.add(Segment{Kind: KindEgress, Length: d, Time: travelTime(d, r.speeds.AccessKmh)}, rawEnd)
	}
	return rec
}

func (rec *Reconstruction) add(s Segment, to orb.Point) {
	rec.Segments = append(rec.Segments, s)
	rec.Geometry = append(rec.Geometry, to)
	rec.TotalDistance += s.Length
	rec.EstimatedTime += s.Time
}
