package imm

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/sbknight/ripples/pkg/diffusion"
	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/sampling"
)

// Options carries the estimator tunables. The sample count meeting the
// guarantee depends on graph and model variance, so the schedule bounds
// and formula constants are configuration rather than literals.
type Options struct {
	// L sets the failure probability: delta = n^-L.
	L float64
	// EpsPrimeFactor derives the estimation-phase epsilon' = factor * eps.
	EpsPrimeFactor float64
	// RoundLimit caps the estimation rounds; 0 selects floor(log2 n) - 1,
	// floored at one round.
	RoundLimit int
}

// DefaultOptions matches the published analysis: L = 1, epsilon' =
// sqrt(2) * epsilon.
func DefaultOptions() Options {
	return Options{L: 1, EpsPrimeFactor: math.Sqrt2}
}

func (o Options) normalized() Options {
	if o.L == 0 {
		o.L = 1
	}
	if o.EpsPrimeFactor == 0 {
		o.EpsPrimeFactor = math.Sqrt2
	}
	return o
}

// estimateTheta runs the adaptive sample-complexity schedule: geometrically
// increasing sample counts, each followed by a greedy selection whose
// coverage fraction feeds a martingale-style stopping condition. The
// accepted spread lower bound then yields the final Theta in closed form.
// The collection keeps its estimation samples so later rounds only top up.
func estimateTheta(g *graph.Graph, k int, eps float64, opts Options, m diffusion.Model,
	strat sampling.Strategy, coll *sampling.Collection, rec *ExecutionRecord,
	logger zerolog.Logger) (uint64, error) {

	start := time.Now()
	n := float64(g.NumNodes())
	logBinom := combin.LogGeneralizedBinomial(n, float64(k))
	epsPrime := opts.EpsPrimeFactor * eps

	// lambda' from the estimation bound; theta_i = lambda' / (n / 2^i).
	lambdaPrime := (2 + 2*epsPrime/3) * (logBinom + opts.L*math.Log(n) + math.Log(math.Log2(n))) * n /
		(epsPrime * epsPrime)

	rounds := opts.RoundLimit
	if rounds <= 0 {
		rounds = int(math.Floor(math.Log2(n))) - 1
		if rounds < 1 {
			rounds = 1
		}
	}

	lowerBound := 1.0
	var lastTried uint64
	for i := 1; i <= rounds; i++ {
		x := n / math.Exp2(float64(i))
		thetaI := uint64(math.Ceil(lambdaPrime / x))
		rec.ThetaPrimeDeltas = append(rec.ThetaPrimeDeltas, thetaI)
		lastTried = thetaI

		var genDur time.Duration
		if need := int(thetaI) - coll.Count(); need > 0 {
			t := time.Now()
			if err := strat.Generate(g, m, need, coll); err != nil {
				return 0, err
			}
			genDur = time.Since(t)
		}
		rec.ThetaEstimationGenerateRRR = append(rec.ThetaEstimationGenerateRRR, DurationMS(genDur))

		t := time.Now()
		_, covered := Select(coll, k)
		rec.ThetaEstimationMostInfluential = append(rec.ThetaEstimationMostInfluential, DurationMS(time.Since(t)))

		fraction := CoverageFraction(covered, coll.Count())
		logger.Debug().
			Int("round", i).
			Uint64("theta_prime", thetaI).
			Float64("coverage_fraction", fraction).
			Msg("estimation round")

		if n*fraction >= (1+epsPrime)*x {
			lowerBound = n * fraction / (1 + epsPrime)
			break
		}
	}

	alpha := math.Sqrt(opts.L*math.Log(n) + math.Log(2))
	beta := math.Sqrt((1 - 1/math.E) * (logBinom + opts.L*math.Log(n) + math.Log(2)))
	lambdaStar := 2 * n * (((1-1/math.E)*alpha + beta) * ((1-1/math.E)*alpha + beta)) / (eps * eps)

	theta := uint64(math.Ceil(lambdaStar / lowerBound))
	if theta < lastTried {
		theta = lastTried
	}
	rec.ThetaEstimationTotal = DurationMS(time.Since(start))
	logger.Info().
		Uint64("theta", theta).
		Float64("spread_lower_bound", lowerBound).
		Msg("theta estimation done")
	return theta, nil
}
