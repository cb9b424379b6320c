package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Store publishes the current Graph. Readers take a snapshot with Current and
// keep using it for as long as they need; Rebuild builds a replacement off to
// the side and swaps it in with a single atomic store.
type Store struct {
	source  RoadSource
	builder *Builder
	logger  *slog.Logger

	current    atomic.Pointer[Graph]
	generation atomic.Uint64
	stats      atomic.Pointer[BuildStats]

	rebuildMu sync.Mutex
}

// NewStore returns a Store with an empty graph published. Call Rebuild to load
// the first real graph.
func NewStore(source RoadSource, builder *Builder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{source: source, builder: builder, logger: logger}
	empty, stats, _ := builder.Build(nil)
	if empty == nil {
		empty = &Graph{}
	}
	s.current.Store(empty)
	s.stats.Store(&stats)
	return s
}

// Current returns the published graph. It never returns nil.
func (s *Store) Current() *Graph {
	return s.current.Load()
}

// Generation counts successful publications since the store was created.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Stats returns the build stats of the published graph.
func (s *Store) Stats() BuildStats {
	return *s.stats.Load()
}

// Publish replaces the current graph with g.
func (s *Store) Publish(g *Graph, stats BuildStats) {
	s.current.Store(g)
	s.stats.Store(&stats)
	s.generation.Add(1)
	graphNodes.Set(float64(g.NodeCount()))
	graphEdges.Set(float64(g.EdgeCount()))
}

// Rebuild reloads every road from the source and publishes a fresh graph.
// Concurrent calls are serialized. On error the previous graph stays
// published.
func (s *Store) Rebuild(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	roads, err := s.source.Roads(ctx)
	if err != nil {
		rebuildsTotal.WithLabelValues("error").Inc()
		s.logger.Error("graph rebuild failed", "stage", "load", "error", err)
		return fmt.Errorf("load roads: %w", err)
	}

	g, stats, err := s.builder.Build(roads)
	if err != nil {
		rebuildsTotal.WithLabelValues("error").Inc()
		s.logger.Error("graph rebuild failed", "stage", "build", "error", err)
		return fmt.Errorf("build graph: %w", err)
	}
	s.Publish(g, stats)

	buildDuration.Observe(time.Since(start).Seconds())
	rebuildsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("published road graph",
		"generation", s.Generation(), "nodes", stats.Nodes, "edges", stats.Edges)
	return nil
}

// Trigger is a fire-and-forget rebuild for change hooks. Errors are logged.
func (s *Store) Trigger() {
	if err := s.Rebuild(context.Background()); err != nil {
		s.logger.Warn("triggered rebuild did not publish", "error", err)
	}
}
