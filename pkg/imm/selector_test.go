package imm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbknight/ripples/pkg/rng"
	"github.com/sbknight/ripples/pkg/sampling"
)

func collectionOf(n int, sets ...[]int32) *sampling.Collection {
	c := sampling.NewCollection(n)
	c.AddBatch(sets)
	return c
}

// randomCollection draws count random subsets of [0, n).
func randomCollection(t *testing.T, n, count int, seed uint64) *sampling.Collection {
	t.Helper()
	rs := rng.New(seed)
	c := sampling.NewCollection(n)
	for i := 0; i < count; i++ {
		size := 1 + int(rs.Int32N(int32(n)))
		seen := make(map[int32]bool, size)
		set := make([]int32, 0, size)
		for len(set) < size {
			v := rs.Int32N(int32(n))
			if !seen[v] {
				seen[v] = true
				set = append(set, v)
			}
		}
		c.Add(set)
	}
	return c
}

func TestGainsSumEqualsCoveredCount(t *testing.T) {
	c := randomCollection(t, 20, 300, 4)
	for _, k := range []int{1, 3, 10, 20} {
		seeds, covered := Select(c, k)
		var sum uint64
		for _, s := range seeds {
			sum += uint64(s.Gain)
		}
		assert.Equalf(t, covered, sum, "k=%d: marginal gains must not double count", k)
	}
}

func TestSelectDeterminism(t *testing.T) {
	c := randomCollection(t, 15, 200, 9)
	first, firstCovered := Select(c, 5)
	for i := 0; i < 10; i++ {
		seeds, covered := Select(c, 5)
		require.Equal(t, first, seeds)
		require.Equal(t, firstCovered, covered)
	}
}

func TestSelectTieBreaksLowestIndex(t *testing.T) {
	// Vertices 1 and 3 both cover two sets; 1 must win.
	c := collectionOf(5, []int32{1, 3}, []int32{3, 1}, []int32{0})
	seeds, _ := Select(c, 1)
	require.Len(t, seeds, 1)
	assert.Equal(t, int32(1), seeds[0].Vertex)
	assert.Equal(t, uint32(2), seeds[0].Gain)
}

func TestSelectNoDoubleCounting(t *testing.T) {
	// Vertex 0 covers both sets; the second seed only gains the set the
	// first left uncovered.
	c := collectionOf(4, []int32{0, 1}, []int32{0, 2}, []int32{3})
	seeds, covered := Select(c, 2)
	require.Len(t, seeds, 2)
	assert.Equal(t, Seed{Vertex: 0, Gain: 2}, seeds[0])
	assert.Equal(t, Seed{Vertex: 3, Gain: 1}, seeds[1])
	assert.Equal(t, uint64(3), covered)
}

func TestCoverageFractionBoundsAndMonotonicity(t *testing.T) {
	c := randomCollection(t, 12, 150, 2)
	prev := 0.0
	for k := 0; k <= 12; k++ {
		_, covered := Select(c, k)
		f := CoverageFraction(covered, c.Count())
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, 1.0)
		assert.GreaterOrEqualf(t, f, prev, "coverage must be non-decreasing in k (k=%d)", k)
		prev = f
	}
}

func TestSelectKZero(t *testing.T) {
	c := collectionOf(3, []int32{0, 1})
	seeds, covered := Select(c, 0)
	assert.Empty(t, seeds)
	assert.Zero(t, covered)
	assert.Equal(t, 0.0, CoverageFraction(covered, c.Count()))
}

func TestSelectStopsWhenEverythingCovered(t *testing.T) {
	c := collectionOf(4, []int32{0}, []int32{0, 1})
	seeds, covered := Select(c, 4)
	require.Len(t, seeds, 1, "no uncovered set remains after the first seed")
	assert.Equal(t, uint64(2), covered)
}

func TestSelectEmptyCollection(t *testing.T) {
	seeds, covered := Select(sampling.NewCollection(5), 3)
	assert.Empty(t, seeds)
	assert.Zero(t, covered)
}
