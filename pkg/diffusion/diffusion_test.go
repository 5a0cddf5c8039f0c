package diffusion

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/rng"
)

// chain builds A -> B -> C with both weights 1.0 and returns the graph plus
// the internal index of each external vertex.
func chain(t *testing.T) (*graph.Graph, map[int64]int32) {
	t.Helper()
	g, err := graph.NewFromEdges([]graph.Edge{
		{From: 'A', To: 'B', Weight: 1.0},
		{From: 'B', To: 'C', Weight: 1.0},
	})
	require.NoError(t, err)
	idx := make(map[int64]int32)
	for _, id := range []int64{'A', 'B', 'C'} {
		v, ok := g.InternalID(id)
		require.True(t, ok)
		idx[id] = v
	}
	return g, idx
}

func sorted(s []int32) []int32 {
	out := append([]int32(nil), s...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestParseModel(t *testing.T) {
	ic, err := ParseModel("IC")
	require.NoError(t, err)
	assert.Equal(t, "IC", ic.Name())

	lt, err := ParseModel("lt")
	require.NoError(t, err)
	assert.Equal(t, "LT", lt.Name())

	_, err = ParseModel("SIR")
	assert.Error(t, err)
}

func TestCascadeChainAlwaysFullSet(t *testing.T) {
	g, idx := chain(t)
	sc := NewScratch(g.NumNodes())
	rs := rng.New(1)
	want := sorted([]int32{idx['A'], idx['B'], idx['C']})
	for i := 0; i < 100; i++ {
		set := IndependentCascade{}.Simulate(g, idx['C'], rs, sc)
		require.Equal(t, want, sorted(set), "weight-1.0 chain must always reach everything")
	}
}

func TestCascadeIsolatedRoot(t *testing.T) {
	g, err := graph.NewFromEdges([]graph.Edge{{From: 1, To: 2, Weight: 0.5}})
	require.NoError(t, err)
	root, _ := g.InternalID(1) // vertex 1 has no predecessors
	sc := NewScratch(g.NumNodes())
	set := IndependentCascade{}.Simulate(g, root, rng.New(3), sc)
	assert.Equal(t, []int32{root}, set)
}

func TestThresholdIsolatedRoot(t *testing.T) {
	g, err := graph.NewFromEdges([]graph.Edge{{From: 1, To: 2, Weight: 0.5}})
	require.NoError(t, err)
	root, _ := g.InternalID(1)
	sc := NewScratch(g.NumNodes())
	set := LinearThreshold{}.Simulate(g, root, rng.New(3), sc)
	assert.Equal(t, []int32{root}, set)
}

func TestSimulateDeterministicGivenStream(t *testing.T) {
	g, idx := chain(t)
	for _, m := range []Model{IndependentCascade{}, LinearThreshold{}} {
		t.Run(m.Name(), func(t *testing.T) {
			a := NewScratch(g.NumNodes())
			b := NewScratch(g.NumNodes())
			ra, rb := rng.New(77), rng.New(77)
			for i := 0; i < 50; i++ {
				sa := m.Simulate(g, idx['C'], ra, a)
				sb := m.Simulate(g, idx['C'], rb, b)
				require.Equal(t, sa, sb)
			}
		})
	}
}

func TestResultContainsRootOnce(t *testing.T) {
	g, err := graph.NewFromEdges([]graph.Edge{
		{From: 1, To: 2, Weight: 0.3},
		{From: 2, To: 3, Weight: 0.7},
		{From: 3, To: 1, Weight: 0.4},
		{From: 1, To: 3, Weight: 0.9},
	})
	require.NoError(t, err)
	for _, m := range []Model{IndependentCascade{}, LinearThreshold{}} {
		t.Run(m.Name(), func(t *testing.T) {
			sc := NewScratch(g.NumNodes())
			rs := rng.New(5)
			for root := int32(0); root < int32(g.NumNodes()); root++ {
				for i := 0; i < 25; i++ {
					set := m.Simulate(g, root, rs, sc)
					seen := make(map[int32]int)
					for _, v := range set {
						seen[v]++
					}
					assert.Equal(t, 1, seen[root], "root must appear exactly once")
					for v, c := range seen {
						assert.Equalf(t, 1, c, "vertex %d duplicated in RR set", v)
					}
				}
			}
		})
	}
}

func TestThresholdSaturatedInWeight(t *testing.T) {
	// The single predecessor of 3 carries weight 1.0, so it always meets
	// its threshold: draws land in [0,1) and never reach 1.0 exactly.
	g, err := graph.NewFromEdges([]graph.Edge{
		{From: 1, To: 3, Weight: 1.0},
	})
	require.NoError(t, err)
	root, _ := g.InternalID(3)
	sc := NewScratch(g.NumNodes())
	rs := rng.New(11)
	for i := 0; i < 200; i++ {
		set := LinearThreshold{}.Simulate(g, root, rs, sc)
		assert.Len(t, set, 2)
	}
}
