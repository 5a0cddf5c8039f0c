package imm

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sbknight/ripples/pkg/diffusion"
	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/sampling"
)

// IMM runs the full influence-maximization pipeline: estimate Theta, fill
// a fresh collection of Theta RR sets, and select k seeds by greedy max
// coverage. The returned seeds are internal vertex indices; callers remap
// through graph.ConvertIDs before reporting. With probability at least
// 1 - n^-L the seeds' expected spread is within (1 - 1/e - eps) of optimal.
//
// The input configuration is validated eagerly: nothing is sampled unless
// the whole run can proceed.
func IMM(g *graph.Graph, k int, eps float64, opts Options, m diffusion.Model,
	strat sampling.Strategy, logger zerolog.Logger) ([]Seed, *ExecutionRecord, error) {

	rec := NewExecutionRecord()
	start := time.Now()

	if g == nil || g.NumNodes() < 2 {
		return nil, nil, &sampling.ConfigurationError{Param: "graph",
			Reason: "need at least two vertices"}
	}
	if k < 0 || k > g.NumNodes() {
		return nil, nil, &sampling.ConfigurationError{Param: "k",
			Reason: fmt.Sprintf("must be in [0, %d], got %d", g.NumNodes(), k)}
	}
	if eps <= 0 {
		return nil, nil, &sampling.ConfigurationError{Param: "epsilon",
			Reason: fmt.Sprintf("must be positive, got %v", eps)}
	}
	opts = opts.normalized()
	rec.NumThreads = strat.Workers()

	if k == 0 {
		rec.Total = DurationMS(time.Since(start))
		return nil, rec, nil
	}

	coll := sampling.NewCollection(g.NumNodes())
	theta, err := estimateTheta(g, k, eps, opts, m, strat, coll, rec, logger)
	if err != nil {
		return nil, nil, err
	}
	rec.Theta = theta

	// Production-scale pass: the estimation samples are discarded and a
	// full collection of Theta sets is regenerated.
	coll.Reset()
	t := time.Now()
	if err := strat.Generate(g, m, int(theta), coll); err != nil {
		return nil, nil, err
	}
	rec.GenerateRRRSets = DurationMS(time.Since(t))

	t = time.Now()
	seeds, covered := Select(coll, k)
	rec.FindMostInfluentialSet = DurationMS(time.Since(t))
	rec.Total = DurationMS(time.Since(start))

	fraction := CoverageFraction(covered, coll.Count())
	logger.Info().
		Str("model", m.Name()).
		Str("strategy", strat.Name()).
		Int("seeds", len(seeds)).
		Float64("estimated_spread", fraction*float64(g.NumNodes())).
		Int64("total_ms", rec.Total.Milliseconds()).
		Msg("influence maximization done")
	return seeds, rec, nil
}
