package routing

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"kuanb/road-router/graph"
)

// cancelCheckInterval is how many settled nodes pass between context checks.
const cancelCheckInterval = 1024

// Solution is the outcome of a shortest path search. Found is false when the
// end node cannot be reached from the start node.
type Solution struct {
	Found    bool
	Distance float64
	Path     []graph.NodeID // start to end
}

// Solver computes least-distance paths with Dijkstra's algorithm.
type Solver struct{}

// Solve searches g from start to end. The returned error is non-nil only when
// ctx ends before the search does.
func (Solver) Solve(ctx context.Context, g *graph.Graph, start, end graph.NodeID) (Solution, error) {
	n := g.NodeCount()
	if start < 0 || int(start) >= n || end < 0 || int(end) >= n {
		return Solution{}, nil
	}
	if start == end {
		return Solution{Found: true, Path: []graph.NodeID{start}}, nil
	}

	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	pred := make([]graph.NodeID, n)
	for i := range pred {
		pred[i] = -1
	}
	visited := make([]bool, n)

	dist[start] = 0
	pq := &priorityQueue{}
	heap.Push(pq, &pqItem{node: start, priority: 0})

	settled := 0
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		current := item.node
		if visited[current] {
			continue
		}
		visited[current] = true
		if current == end {
			break
		}

		settled++
		if settled%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Solution{}, fmt.Errorf("%w after %d nodes: %v", ErrTimeout, settled, err)
			}
		}

		g.Outgoing(current, func(e *graph.Edge) bool {
			next := e.To
			if visited[next] {
				return true
			}
			if tentative := dist[current] + e.Length; tentative < dist[next] {
				dist[next] = tentative
				pred[next] = current
				heap.Push(pq, &pqItem{node: next, priority: tentative})
			}
			return true
		})
	}

	if pred[end] == -1 {
		return Solution{}, nil
	}
	return Solution{
		Found:    true,
		Distance: dist[end],
		Path:     reconstructPath(pred, end),
	}, nil
}

// reconstructPath follows predecessors back from end and returns the path in
// start to end order.
func reconstructPath(pred []graph.NodeID, end graph.NodeID) []graph.NodeID {
	var path []graph.NodeID
	for current := end; current != -1; current = pred[current] {
		path = append(path, current)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type pqItem struct {
	node     graph.NodeID
	priority float64
}

// priorityQueue pops the lowest distance first and the lowest node id among
// equal distances, matching a linear scan over nodes in id order.
type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].node < pq[j].node
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*pqItem)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}
