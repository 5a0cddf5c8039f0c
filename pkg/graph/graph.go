// Package graph provides the immutable graph store used by the sampling
// engine: compressed sparse row adjacency in both the forward and the
// transposed orientation, with a locality-friendly remapping between
// external vertex identifiers and dense internal indices.
package graph

import (
	"fmt"
	"sort"
)

// Direction selects an adjacency orientation.
type Direction int

const (
	// Forward follows edges as given in the input (influence flows along them).
	Forward Direction = iota
	// Backward follows the transposed edges (used for reverse-reachable sampling).
	Backward
)

// Edge is one weighted directed edge in external ID space.
type Edge struct {
	From   int64
	To     int64
	Weight float32
}

// csr is one adjacency orientation in compressed sparse row form.
// Neighbors of v live in targets[offsets[v]:offsets[v+1]].
type csr struct {
	offsets []int64
	targets []int32
	weights []float32
}

// Graph is immutable after construction and safe for concurrent readers.
// Internal vertex indices are dense in [0, n), assigned in descending total
// degree order so hot vertices cluster at the front of every array.
type Graph struct {
	numNodes int
	numEdges int64

	fwd csr
	bwd csr

	toExternal []int64
	toInternal map[int64]int32
}

// NewFromEdges builds a graph from an already-parsed edge list.
func NewFromEdges(edges []Edge) (*Graph, error) {
	degree := make(map[int64]int64, len(edges))
	for _, e := range edges {
		if e.Weight <= 0 || e.Weight > 1 {
			return nil, fmt.Errorf("graph: edge %d->%d has weight %v outside (0,1]", e.From, e.To, e.Weight)
		}
		degree[e.From]++
		degree[e.To]++
	}

	ids := make([]int64, 0, len(degree))
	for id := range degree {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if degree[ids[i]] != degree[ids[j]] {
			return degree[ids[i]] > degree[ids[j]]
		}
		return ids[i] < ids[j]
	})

	g := &Graph{
		numNodes:   len(ids),
		numEdges:   int64(len(edges)),
		toExternal: ids,
		toInternal: make(map[int64]int32, len(ids)),
	}
	for i, id := range ids {
		g.toInternal[id] = int32(i)
	}

	g.fwd = buildCSR(g.numNodes, len(edges), func(i int) (int32, int32, float32) {
		e := edges[i]
		return g.toInternal[e.From], g.toInternal[e.To], e.Weight
	})
	g.bwd = buildCSR(g.numNodes, len(edges), func(i int) (int32, int32, float32) {
		e := edges[i]
		return g.toInternal[e.To], g.toInternal[e.From], e.Weight
	})
	return g, nil
}

// buildCSR packs edges keyed by at(i) = (row, col, weight) with counting sort.
func buildCSR(n, m int, at func(int) (int32, int32, float32)) csr {
	c := csr{
		offsets: make([]int64, n+1),
		targets: make([]int32, m),
		weights: make([]float32, m),
	}
	for i := 0; i < m; i++ {
		row, _, _ := at(i)
		c.offsets[row+1]++
	}
	for v := 0; v < n; v++ {
		c.offsets[v+1] += c.offsets[v]
	}
	next := make([]int64, n)
	copy(next, c.offsets[:n])
	for i := 0; i < m; i++ {
		row, col, w := at(i)
		p := next[row]
		next[row]++
		c.targets[p] = col
		c.weights[p] = w
	}
	return c
}

// transpose flips a CSR orientation: same edge multiset with endpoints
// swapped and weights preserved.
func transpose(c csr, n int) csr {
	t := csr{
		offsets: make([]int64, n+1),
		targets: make([]int32, len(c.targets)),
		weights: make([]float32, len(c.weights)),
	}
	for _, dst := range c.targets {
		t.offsets[dst+1]++
	}
	for v := 0; v < n; v++ {
		t.offsets[v+1] += t.offsets[v]
	}
	next := make([]int64, n)
	copy(next, t.offsets[:n])
	for src := 0; src < n; src++ {
		for i := c.offsets[src]; i < c.offsets[src+1]; i++ {
			dst := c.targets[i]
			p := next[dst]
			next[dst]++
			t.targets[p] = int32(src)
			t.weights[p] = c.weights[i]
		}
	}
	return t
}

// NumNodes reports the vertex count.
func (g *Graph) NumNodes() int { return g.numNodes }

// NumEdges reports the directed edge count.
func (g *Graph) NumEdges() int64 { return g.numEdges }

// EdgeView is a restartable, zero-allocation view over one vertex's
// (neighbor, weight) pairs. It remains valid for the life of the graph.
type EdgeView struct {
	targets []int32
	weights []float32
}

// Len reports the number of pairs in the view.
func (e EdgeView) Len() int { return len(e.targets) }

// At returns pair i.
func (e EdgeView) At(i int) (int32, float32) { return e.targets[i], e.weights[i] }

// Neighbors returns the (neighbor, weight) pairs of v in the given
// orientation.
func (g *Graph) Neighbors(v int32, dir Direction) EdgeView {
	c := &g.fwd
	if dir == Backward {
		c = &g.bwd
	}
	lo, hi := c.offsets[v], c.offsets[v+1]
	return EdgeView{targets: c.targets[lo:hi], weights: c.weights[lo:hi]}
}

// BackwardCSR exposes the raw transposed adjacency arrays for device
// residency: neighbors of v live in targets[offsets[v]:offsets[v+1]].
// Callers must treat the slices as read-only.
func (g *Graph) BackwardCSR() (offsets []int64, targets []int32, weights []float32) {
	return g.bwd.offsets, g.bwd.targets, g.bwd.weights
}

// ConvertIDs batch-converts internal indices back to external identifiers.
func (g *Graph) ConvertIDs(internal []int32) []int64 {
	out := make([]int64, len(internal))
	for i, v := range internal {
		out[i] = g.toExternal[v]
	}
	return out
}

// InternalID resolves an external identifier; ok is false if the vertex is
// not part of the graph.
func (g *Graph) InternalID(external int64) (int32, bool) {
	v, ok := g.toInternal[external]
	return v, ok
}
