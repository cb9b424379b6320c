package routing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"kuanb/road-router/geom"
	"kuanb/road-router/graph"

	"github.com/paulmach/orb"
)

// Snapshotter hands out the currently published graph. *graph.Store
// implements it.
type Snapshotter interface {
	Current() *graph.Graph
}

// Request asks for a route between two raw coordinates. MatchRadius overrides
// the matcher's default radius when positive.
type Request struct {
	Start       orb.Point
	End         orb.Point
	MatchRadius float64
}

// Result is a successfully routed request.
type Result struct {
	TotalDistance float64 // meters, approach + roads + egress
	EstimatedTime time.Duration
	Geometry      orb.LineString
	Segments      []Segment
	Nodes         []graph.NodeID
	Start         Match
	End           Match
}

// pathFinder is the search step of a request. Solver implements it.
type pathFinder interface {
	Solve(ctx context.Context, g *graph.Graph, start, end graph.NodeID) (Solution, error)
}

// Router runs routing requests against the published graph:
// validate coordinates, resolve nodes, solve, reconstruct.
type Router struct {
	graphs        Snapshotter
	matcher       *Matcher
	solver        pathFinder
	reconstructor *Reconstructor
	timeout       time.Duration
	logger        *slog.Logger
}

type Options struct {
	Matcher *Matcher      // nil means NewMatcher()
	Speeds  Speeds        // zero fields take DefaultSpeeds
	Timeout time.Duration // zero disables the guard
	Logger  *slog.Logger
}

func NewRouter(graphs Snapshotter, opts Options) *Router {
	if opts.Matcher == nil {
		opts.Matcher = NewMatcher()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		graphs:        graphs,
		matcher:       opts.Matcher,
		solver:        Solver{},
		reconstructor: NewReconstructor(opts.Speeds, opts.Logger),
		timeout:       opts.Timeout,
		logger:        opts.Logger,
	}
}

// Route computes the shortest road route for req. Every error it returns is a
// *Failure.
func (r *Router) Route(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := r.route(ctx, req)
	routeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		reason := ReasonOf(err)
		routeRequestsTotal.WithLabelValues(string(reason)).Inc()
		level := slog.LevelDebug
		if reason == ReasonInternal || reason == ReasonTimeout {
			level = slog.LevelError
		}
		r.logger.Log(ctx, level, "route failed",
			"start", req.Start, "end", req.End, "reason", reason, "error", err)
		return nil, err
	}
	routeRequestsTotal.WithLabelValues("ok").Inc()
	r.logger.Debug("route solved",
		"start", req.Start, "end", req.End,
		"distance_m", res.TotalDistance, "estimated_time", res.EstimatedTime,
		"segments", len(res.Segments))
	return res, nil
}

func (r *Router) route(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, fail(ReasonInvalidCoordinate, err)
	}

	// one snapshot for the whole request
	g := r.graphs.Current()

	from, ok := r.matcher.Nearest(g, req.Start, req.MatchRadius)
	if !ok {
		return nil, fail(ReasonNoNearbyNode, fmt.Errorf("%w: start %v", ErrNoNearbyNode, req.Start))
	}
	to, ok := r.matcher.Nearest(g, req.End, req.MatchRadius)
	if !ok {
		return nil, fail(ReasonNoNearbyNode, fmt.Errorf("%w: end %v", ErrNoNearbyNode, req.End))
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	sol, err := r.solver.Solve(ctx, g, from.Node, to.Node)
	if err != nil {
		return nil, fail(ReasonTimeout, err)
	}
	if !sol.Found {
		return nil, fail(ReasonNoPath, fmt.Errorf("%w: node %d to node %d", ErrNoPathFound, from.Node, to.Node))
	}

	rec := r.reconstructor.Reconstruct(g, sol.Path, req.Start, req.End)
	if rec.Inconsistent > 0 {
		return nil, fail(ReasonInternal, fmt.Errorf("%w: %d missing edges", ErrInconsistentGraphData, rec.Inconsistent))
	}

	return &Result{
		TotalDistance: rec.TotalDistance,
		EstimatedTime: rec.EstimatedTime,
		Geometry:      rec.Geometry,
		Segments:      rec.Segments,
		Nodes:         sol.Path,
		Start:         from,
		End:           to,
	}, nil
}

// NearestNode resolves p against the published graph. A zero radius uses the
// matcher's close radius.
func (r *Router) NearestNode(ctx context.Context, p orb.Point, radius float64) (Match, error) {
	if !geom.Valid(p) {
		return Match{}, fail(ReasonInvalidCoordinate, fmt.Errorf("%w: %v", ErrInvalidCoordinate, p))
	}
	if err := validateRadius(radius); err != nil {
		return Match{}, fail(ReasonInvalidCoordinate, err)
	}
	if radius == 0 {
		radius = r.matcher.CloseRadius
	}
	m, ok := r.matcher.Nearest(r.graphs.Current(), p, radius)
	if !ok {
		return Match{}, fail(ReasonNoNearbyNode, fmt.Errorf("%w: %v within %.0fm", ErrNoNearbyNode, p, radius))
	}
	return m, nil
}

func validateRequest(req Request) error {
	if !geom.Valid(req.Start) {
		return fmt.Errorf("%w: start %v", ErrInvalidCoordinate, req.Start)
	}
	if !geom.Valid(req.End) {
		return fmt.Errorf("%w: end %v", ErrInvalidCoordinate, req.End)
	}
	return validateRadius(req.MatchRadius)
}

// validateRadius accepts zero, meaning the default, or a finite positive
// radius.
func validateRadius(radius float64) error {
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		return fmt.Errorf("%w: match radius %v", ErrInvalidCoordinate, radius)
	}
	return nil
}
