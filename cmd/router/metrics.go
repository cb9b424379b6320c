package main

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// memSnapshot holds the runtime counters compared around a graph load.
type memSnapshot struct {
	goroutines  int
	heapMB      float64
	sysMB       float64
	heapObjects uint64
	numGC       uint32
}

func readMemSnapshot() memSnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return memSnapshot{
		goroutines:  runtime.NumGoroutine(),
		heapMB:      float64(m.HeapAlloc) / 1024 / 1024,
		sysMB:       float64(m.Sys) / 1024 / 1024,
		heapObjects: m.HeapObjects,
		numGC:       m.NumGC,
	}
}

// logGraphMemory reports how much the heap grew while the first graph was
// loaded.
func logGraphMemory(logger *slog.Logger, before memSnapshot, nodes, edges int) {
	after := readMemSnapshot()
	logger.Info("graph memory",
		"nodes", nodes, "edges", edges,
		"heap_mb", after.heapMB, "heap_growth_mb", after.heapMB-before.heapMB,
		"sys_mb", after.sysMB, "heap_objects", after.heapObjects,
		"goroutines", after.goroutines, "gc_cycles", after.numGC-before.numGC)
}

// writeMetrics dumps every metric family of g in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
