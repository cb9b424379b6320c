package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roadrouter_route_requests_total",
		Help: "Routing requests by result",
	}, []string{"result"}) // "ok" or a failure reason

	routeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roadrouter_route_duration_seconds",
		Help:    "Routing request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	})
)
