package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"kuanb/road-router/geom"

	"github.com/paulmach/orb"
)

// ErrInvalidRoad marks a road record that cannot be turned into edges.
var ErrInvalidRoad = errors.New("invalid road")

// DuplicatePolicy decides which edge survives when two roads produce an edge
// for the same ordered node pair.
type DuplicatePolicy string

const (
	LastWins     DuplicatePolicy = "last-wins"
	FirstWins    DuplicatePolicy = "first-wins"
	ShortestWins DuplicatePolicy = "shortest-wins"
)

// ParseDuplicatePolicy maps a config value to a policy. Empty means LastWins.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case "":
		return LastWins, nil
	case LastWins, FirstWins, ShortestWins:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate edge policy %q", s)
	}
}

type Options struct {
	SnapThresholdMeters float64
	Index               string // geom.IndexLinear or geom.IndexRTree
	Duplicates          DuplicatePolicy
}

func DefaultOptions() Options {
	return Options{
		SnapThresholdMeters: 1.0,
		Index:               geom.IndexLinear,
		Duplicates:          LastWins,
	}
}

// BuildStats summarizes one build.
type BuildStats struct {
	Roads    int
	Skipped  int
	Nodes    int
	Edges    int
	Replaced int
	Duration time.Duration
}

// Builder turns road records into a Graph.
type Builder struct {
	opts   Options
	logger *slog.Logger
}

func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Duplicates == "" {
		opts.Duplicates = LastWins
	}
	return &Builder{opts: opts, logger: logger}
}

// ValidateRoad checks the structural rules a road must satisfy to be built.
func ValidateRoad(r Road) error {
	if len(r.Polyline) < 2 {
		return fmt.Errorf("%w %d: %d coordinates, need at least 2", ErrInvalidRoad, r.ID, len(r.Polyline))
	}
	if len(r.SegmentLengths) > 0 && len(r.SegmentLengths) != len(r.Polyline)-1 {
		return fmt.Errorf("%w %d: %d segment lengths for %d coordinates",
			ErrInvalidRoad, r.ID, len(r.SegmentLengths), len(r.Polyline))
	}
	if s := r.MaxSpeedKmh; s < 0 || math.IsInf(s, 0) || math.IsNaN(s) {
		return fmt.Errorf("%w %d: max speed %v km/h", ErrInvalidRoad, r.ID, s)
	}
	for i, p := range r.Polyline {
		if !geom.Valid(p) {
			return fmt.Errorf("%w %d: coordinate %d (%v) out of range", ErrInvalidRoad, r.ID, i, p)
		}
	}
	return nil
}

// Build produces a new Graph from roads. Invalid roads are logged and
// skipped; the only error is an unusable Options value.
func (b *Builder) Build(roads []Road) (*Graph, BuildStats, error) {
	start := time.Now()
	index, err := geom.NewIndex(b.opts.Index)
	if err != nil {
		return nil, BuildStats{}, err
	}

	st := &buildState{
		g: &Graph{
			lookup: make(map[orb.Point]NodeID),
			edges:  make(map[EdgeKey]*Edge),
			index:  index,
		},
		opts:   b.opts,
		logger: b.logger,
	}

	stats := BuildStats{Roads: len(roads)}
	for _, r := range roads {
		if err := ValidateRoad(r); err != nil {
			b.logger.Warn("skipping road", "road_id", r.ID, "error", err)
			stats.Skipped++
			continue
		}
		st.addRoad(r)
	}

	g := st.g
	stats.Nodes = len(g.nodes)
	stats.Edges = len(g.edges)
	stats.Replaced = st.replaced
	stats.Duration = time.Since(start)

	b.logger.Info("built road graph",
		"roads", stats.Roads, "skipped", stats.Skipped,
		"nodes", stats.Nodes, "edges", stats.Edges,
		"replaced", stats.Replaced, "duration", stats.Duration)
	if stats.Nodes == 0 {
		b.logger.Warn("road graph has no nodes; every route will fail")
	} else if stats.Edges == 0 {
		b.logger.Warn("road graph has no edges; every route between distinct nodes will fail")
	}
	return g, stats, nil
}

type buildState struct {
	g        *Graph
	opts     Options
	logger   *slog.Logger
	replaced int
}

// snap returns the node for raw, creating one when no existing node lies
// within the snap threshold.
func (s *buildState) snap(raw orb.Point) NodeID {
	p := geom.Canonical(raw)
	if id, ok := s.g.lookup[p]; ok {
		return id
	}
	if id, _, ok := s.g.index.Nearest(p, s.opts.SnapThresholdMeters); ok {
		return NodeID(id)
	}
	id := NodeID(len(s.g.nodes))
	s.g.nodes = append(s.g.nodes, p)
	s.g.out = append(s.g.out, nil)
	s.g.lookup[p] = id
	s.g.index.Insert(int(id), p)
	return id
}

func (s *buildState) addRoad(r Road) {
	ids := make([]NodeID, len(r.Polyline))
	for i, p := range r.Polyline {
		ids[i] = s.snap(p)
	}

	for i := 0; i+1 < len(ids); i++ {
		from, to := ids[i], ids[i+1]
		if from == to {
			// both ends collapsed into one node
			continue
		}
		length := segmentLength(r, i)
		a, b := s.g.nodes[from], s.g.nodes[to]

		s.addEdge(&Edge{
			From: from, To: to, Length: length,
			Road: r.ID, RoadName: r.Name, RoadType: r.Type,
			MaxSpeedKmh: r.MaxSpeedKmh,
			Geometry:    orb.LineString{a, b},
		})
		if !r.OneWay {
			s.addEdge(&Edge{
				From: to, To: from, Length: length,
				Road: r.ID, RoadName: r.Name, RoadType: r.Type,
				MaxSpeedKmh: r.MaxSpeedKmh,
				Geometry:    orb.LineString{b, a},
			})
		}
	}
}

func segmentLength(r Road, i int) float64 {
	if i < len(r.SegmentLengths) {
		if l := r.SegmentLengths[i]; l >= 0 && !math.IsInf(l, 0) && !math.IsNaN(l) {
			return l
		}
	}
	return geom.Distance(r.Polyline[i], r.Polyline[i+1])
}

func (s *buildState) addEdge(e *Edge) {
	k := EdgeKey{From: e.From, To: e.To}
	old, exists := s.g.edges[k]
	if !exists {
		s.g.edges[k] = e
		s.g.out[e.From] = append(s.g.out[e.From], k)
		return
	}

	switch s.opts.Duplicates {
	case FirstWins:
		return
	case ShortestWins:
		if e.Length >= old.Length {
			return
		}
	}
	s.logger.Debug("replacing duplicate edge",
		"from", e.From, "to", e.To, "old_road", old.Road, "new_road", e.Road)
	s.g.edges[k] = e
	s.replaced++
}
