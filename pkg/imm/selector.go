// Package imm implements the sampling-and-optimization engine for
// influence maximization: greedy max-coverage seed selection over a
// collection of reverse-reachable sets, adaptive estimation of the sample
// count Theta meeting the (epsilon, delta)-approximation guarantee, and
// the orchestration tying them to an execution strategy.
package imm

import (
	"container/heap"

	"github.com/sbknight/ripples/pkg/sampling"
)

// Seed is one selected vertex with its marginal coverage gain, the number
// of previously uncovered RR sets it covered at selection time.
type Seed struct {
	Vertex int32  `json:"vertex"`
	Gain   uint32 `json:"gain"`
}

// Select greedily picks up to k vertices maximizing covered-set count.
// Ties break toward the lowest vertex index, so identical collections
// always yield identical seed sequences. Selection stops early once every
// set is covered. The second result is the total number of covered sets,
// which equals the sum of the per-seed gains.
//
// A lazy max-heap keyed by the remaining tally avoids rescanning all
// vertices per step: coverage tallies only decrease, so a popped entry is
// either current or gets pushed back with its corrected value.
func Select(coll *sampling.Collection, k int) ([]Seed, uint64) {
	sets := coll.Sets()
	if k <= 0 || len(sets) == 0 {
		return nil, 0
	}

	tally := coll.TallySnapshot()
	occur := make([][]int32, coll.NumNodes())
	for s, set := range sets {
		for _, v := range set {
			occur[v] = append(occur[v], int32(s))
		}
	}

	h := make(candidateHeap, 0, coll.NumNodes())
	for v, c := range tally {
		if c > 0 {
			h = append(h, candidate{vertex: int32(v), gain: c})
		}
	}
	heap.Init(&h)

	covered := make([]bool, len(sets))
	seeds := make([]Seed, 0, k)
	var total uint64

	for len(seeds) < k && h.Len() > 0 {
		top := heap.Pop(&h).(candidate)
		if top.gain != tally[top.vertex] {
			top.gain = tally[top.vertex]
			if top.gain > 0 {
				heap.Push(&h, top)
			}
			continue
		}
		if top.gain == 0 {
			break // every remaining set is covered
		}
		for _, s := range occur[top.vertex] {
			if covered[s] {
				continue
			}
			covered[s] = true
			for _, u := range sets[s] {
				if u != top.vertex {
					tally[u]--
				}
			}
		}
		tally[top.vertex] = 0
		seeds = append(seeds, Seed{Vertex: top.vertex, Gain: top.gain})
		total += uint64(top.gain)
	}
	return seeds, total
}

// CoverageFraction is the covered share of the collection; scaled by the
// vertex count it is the unbiased spread estimator.
func CoverageFraction(covered uint64, collectionSize int) float64 {
	if collectionSize == 0 {
		return 0
	}
	return float64(covered) / float64(collectionSize)
}

type candidate struct {
	vertex int32
	gain   uint32
}

type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].gain != h[j].gain {
		return h[i].gain > h[j].gain
	}
	return h[i].vertex < h[j].vertex
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
