package diffusion

import (
	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/rng"
)

// LinearThreshold activates a vertex once the cumulative weight of its
// edges into already-active vertices reaches a private random threshold,
// drawn once in [0,1) the first time the vertex is reached.
type LinearThreshold struct{}

// Name implements Model.
func (LinearThreshold) Name() string { return "LT" }

// Simulate expands outward from root over backward edges. When an active
// vertex v is expanded, each in-neighbor u accumulates the weight of its
// edge u->v; u activates once its accumulated weight meets its threshold.
// Each edge contributes at most once because each active vertex is expanded
// exactly once.
func (LinearThreshold) Simulate(g *graph.Graph, root int32, rs *rng.Stream, sc *Scratch) []int32 {
	sc.begin()
	sc.visit(root)

	for head := 0; head < len(sc.frontier); head++ {
		v := sc.frontier[head]
		view := g.Neighbors(v, graph.Backward)
		for i := 0; i < view.Len(); i++ {
			u, w := view.At(i)
			if sc.isVisited(u) {
				continue
			}
			if sc.seen[u] != sc.epoch {
				sc.seen[u] = sc.epoch
				sc.threshold[u] = rs.Float64()
				sc.incoming[u] = 0
			}
			sc.incoming[u] += float64(w)
			if sc.incoming[u] >= sc.threshold[u] {
				sc.visit(u)
			}
		}
	}
	return sc.result()
}
