package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roadrouter_graph_rebuilds_total",
		Help: "Graph rebuilds by result",
	}, []string{"result"}) // "ok" or "error"

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roadrouter_graph_nodes",
		Help: "Nodes in the published graph",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roadrouter_graph_edges",
		Help: "Directed edges in the published graph",
	})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roadrouter_graph_build_seconds",
		Help:    "Time spent loading roads and building a graph",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~30s
	})
)
