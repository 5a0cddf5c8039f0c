// Package diffusion implements the stochastic diffusion models used for
// reverse-reachable sampling: Independent Cascade and Linear Threshold.
// Each simulation explores the backward orientation of the graph from a
// root, so the resulting set holds the vertices that could have activated
// the root under one random realization.
package diffusion

import (
	"fmt"
	"strings"

	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/rng"
)

// Model produces one reverse-reachable set per call. Implementations are
// deterministic given the stream state, which is what makes strong-scaling
// runs comparable across thread counts.
type Model interface {
	Name() string
	// Simulate returns the set of vertices backward-reachable from root
	// under one realization. The returned slice is freshly allocated; the
	// scratch buffers are reused across calls on the same worker.
	Simulate(g *graph.Graph, root int32, rs *rng.Stream, sc *Scratch) []int32
}

// ParseModel resolves a model selector ("IC" or "LT").
func ParseModel(name string) (Model, error) {
	switch strings.ToUpper(name) {
	case "IC":
		return IndependentCascade{}, nil
	case "LT":
		return LinearThreshold{}, nil
	default:
		return nil, fmt.Errorf("diffusion: unknown model %q (want IC or LT)", name)
	}
}

// Scratch holds per-worker simulation state. Visited markers are epoch
// stamped so a new simulation starts with one increment instead of a
// clear over all n vertices.
type Scratch struct {
	epoch     uint32
	visited   []uint32 // epoch when vertex joined the set
	seen      []uint32 // epoch when vertex first drew its threshold (LT)
	threshold []float64
	incoming  []float64
	frontier  []int32
}

// NewScratch sizes scratch buffers for an n-vertex graph.
func NewScratch(n int) *Scratch {
	return &Scratch{
		visited:   make([]uint32, n),
		seen:      make([]uint32, n),
		threshold: make([]float64, n),
		incoming:  make([]float64, n),
		frontier:  make([]int32, 0, 64),
	}
}

func (sc *Scratch) begin() {
	sc.epoch++
	if sc.epoch == 0 { // wrapped: stamps from the previous cycle are stale
		for i := range sc.visited {
			sc.visited[i] = 0
			sc.seen[i] = 0
		}
		sc.epoch = 1
	}
	sc.frontier = sc.frontier[:0]
}

func (sc *Scratch) visit(v int32) {
	sc.visited[v] = sc.epoch
	sc.frontier = append(sc.frontier, v)
}

func (sc *Scratch) isVisited(v int32) bool { return sc.visited[v] == sc.epoch }

// result copies the frontier, which by the end of a simulation holds every
// visited vertex exactly once.
func (sc *Scratch) result() []int32 {
	out := make([]int32, len(sc.frontier))
	copy(out, sc.frontier)
	return out
}
