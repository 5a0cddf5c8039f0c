package imm

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbknight/ripples/pkg/diffusion"
	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/rng"
	"github.com/sbknight/ripples/pkg/sampling"
)

// chainABC is A -> B -> C with both weights 1.0: under IC every RR set
// contains A, so A is always the single best seed.
func chainABC(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.NewFromEdges([]graph.Edge{
		{From: 'A', To: 'B', Weight: 1.0},
		{From: 'B', To: 'C', Weight: 1.0},
	})
	require.NoError(t, err)
	return g
}

func TestIMMChainPicksSourceWithFullCoverage(t *testing.T) {
	g := chainABC(t)
	strat := sampling.NewSequential(rng.New(0))
	seeds, rec, err := IMM(g, 1, 0.5, DefaultOptions(), diffusion.IndependentCascade{}, strat, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, seeds, 1)

	ext := g.ConvertIDs([]int32{seeds[0].Vertex})
	assert.Equal(t, int64('A'), ext[0])
	assert.Equal(t, uint64(rec.Theta), uint64(seeds[0].Gain), "A covers every RR set")
	assert.Equal(t, 1, rec.NumThreads)
	assert.Positive(t, rec.Theta)
}

func TestIMMRecordShape(t *testing.T) {
	g := chainABC(t)
	strat := sampling.NewParallel(rng.New(3), 2)
	_, rec, err := IMM(g, 1, 0.5, DefaultOptions(), diffusion.LinearThreshold{}, strat, zerolog.Nop())
	require.NoError(t, err)

	assert.NotEmpty(t, rec.RunID)
	assert.Equal(t, 2, rec.NumThreads)
	require.NotEmpty(t, rec.ThetaPrimeDeltas)
	assert.Len(t, rec.ThetaEstimationGenerateRRR, len(rec.ThetaPrimeDeltas))
	assert.Len(t, rec.ThetaEstimationMostInfluential, len(rec.ThetaPrimeDeltas))

	for i := 1; i < len(rec.ThetaPrimeDeltas); i++ {
		assert.GreaterOrEqual(t, rec.ThetaPrimeDeltas[i], rec.ThetaPrimeDeltas[i-1],
			"attempted sample sizes must be non-decreasing")
	}
	assert.GreaterOrEqual(t, rec.Theta, rec.ThetaPrimeDeltas[len(rec.ThetaPrimeDeltas)-1],
		"final Theta must dominate the last accepted sample size")
}

func TestIMMKZero(t *testing.T) {
	g := chainABC(t)
	strat := sampling.NewSequential(rng.New(0))
	seeds, rec, err := IMM(g, 0, 0.5, DefaultOptions(), diffusion.IndependentCascade{}, strat, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, seeds)
	assert.Zero(t, rec.Theta)
}

func TestIMMRejectsBadInput(t *testing.T) {
	g := chainABC(t)
	strat := sampling.NewSequential(rng.New(0))
	m := diffusion.IndependentCascade{}
	var ce *sampling.ConfigurationError

	_, _, err := IMM(g, -1, 0.5, DefaultOptions(), m, strat, zerolog.Nop())
	require.ErrorAs(t, err, &ce)

	_, _, err = IMM(g, 99, 0.5, DefaultOptions(), m, strat, zerolog.Nop())
	require.ErrorAs(t, err, &ce)

	_, _, err = IMM(g, 1, 0, DefaultOptions(), m, strat, zerolog.Nop())
	require.ErrorAs(t, err, &ce)

	_, _, err = IMM(nil, 1, 0.5, DefaultOptions(), m, strat, zerolog.Nop())
	require.ErrorAs(t, err, &ce)
}

func TestEstimatorRecordsEveryRound(t *testing.T) {
	// Larger vertex count forces several estimation rounds.
	var edges []graph.Edge
	for i := int64(0); i < 64; i++ {
		edges = append(edges, graph.Edge{From: i, To: (i + 1) % 64, Weight: 0.05})
	}
	g, err := graph.NewFromEdges(edges)
	require.NoError(t, err)

	rec := NewExecutionRecord()
	coll := sampling.NewCollection(g.NumNodes())
	strat := sampling.NewSequential(rng.New(1))
	theta, err := estimateTheta(g, 2, 0.5, DefaultOptions().normalized(),
		diffusion.IndependentCascade{}, strat, coll, rec, zerolog.Nop())
	require.NoError(t, err)
	require.NotEmpty(t, rec.ThetaPrimeDeltas)
	assert.GreaterOrEqual(t, theta, rec.ThetaPrimeDeltas[len(rec.ThetaPrimeDeltas)-1])
	assert.Equal(t, len(rec.ThetaPrimeDeltas), len(rec.ThetaEstimationGenerateRRR))
}

func TestIMMStreamingStrategy(t *testing.T) {
	g := chainABC(t)
	strat, err := sampling.NewStreaming(rng.New(5), sampling.StreamingConfig{
		Workers: 2, GPUWorkers: 1, BatchSize: 16,
	}, diffusion.IndependentCascade{}, nil, zerolog.Nop())
	require.NoError(t, err)
	defer strat.Close()

	seeds, _, err := IMM(g, 1, 0.5, DefaultOptions(), diffusion.IndependentCascade{}, strat, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, int64('A'), g.ConvertIDs([]int32{seeds[0].Vertex})[0])
}
