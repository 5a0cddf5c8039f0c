package diffusion

import (
	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/rng"
)

// IndependentCascade fires each backward edge independently with
// probability equal to its weight, one draw per edge per expansion.
type IndependentCascade struct{}

// Name implements Model.
func (IndependentCascade) Name() string { return "IC" }

// Simulate runs a breadth-first expansion over backward edges from root.
// An isolated root yields the singleton set {root}.
func (IndependentCascade) Simulate(g *graph.Graph, root int32, rs *rng.Stream, sc *Scratch) []int32 {
	sc.begin()
	sc.visit(root)

	for head := 0; head < len(sc.frontier); head++ {
		v := sc.frontier[head]
		view := g.Neighbors(v, graph.Backward)
		for i := 0; i < view.Len(); i++ {
			u, w := view.At(i)
			// Draw before the visited check so every edge consumes exactly
			// one value from the stream.
			fired := rs.Float64() <= float64(w)
			if fired && !sc.isVisited(u) {
				sc.visit(u)
			}
		}
	}
	return sc.result()
}
