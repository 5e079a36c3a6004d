package simplify

import (
	"container/heap"

	"gonum.org/v1/gonum/spatial/r3"
)

// edge is an undirected vertex pair with a < b.
type edge struct {
	a, b int
}

func newEdge(u, v int) edge {
	if u > v {
		u, v = v, u
	}
	return edge{u, v}
}

type edgeEntry struct {
	cost float64
	edge edge
}

// edgeQueue is a min-heap of edges ordered by cost, then by vertex indices.
type edgeQueue []edgeEntry

func (q edgeQueue) Len() int { return len(q) }

func (q edgeQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	if q[i].edge.a != q[j].edge.a {
		return q[i].edge.a < q[j].edge.a
	}
	return q[i].edge.b < q[j].edge.b
}

func (q edgeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *edgeQueue) Push(x any) {
	*q = append(*q, x.(edgeEntry))
}

func (q *edgeQueue) Pop() any {
	old := *q
	x := old[len(old)-1]
	*q = old[:len(old)-1]
	return x
}

func (q *edgeQueue) push(cost float64, e edge) {
	heap.Push(q, edgeEntry{cost: cost, edge: e})
}

func (q *edgeQueue) pop() edgeEntry {
	return heap.Pop(q).(edgeEntry)
}

func edgeCost(vertices []r3.Vec, e edge) float64 {
	return r3.Norm(r3.Sub(vertices[e.a], vertices[e.b]))
}
