// Command imm finds a seed set maximizing expected influence spread over a
// directed network, with a (1 - 1/e - eps) approximation guarantee. It
// mirrors the classic tool interface: an edge-list input, a diffusion
// model, a budget k, and a JSON experiment log output.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sbknight/ripples/pkg/diffusion"
	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/imm"
	"github.com/sbknight/ripples/pkg/rng"
	"github.com/sbknight/ripples/pkg/sampling"
)

// experiment is one run's entry in the JSON log. The record's fields are
// promoted alongside the configuration echo.
type experiment struct {
	Algorithm      string  `json:"Algorithm"`
	DiffusionModel string  `json:"DiffusionModel"`
	Epsilon        float64 `json:"Epsilon"`
	K              int     `json:"K"`
	L              int     `json:"L"`
	*imm.ExecutionRecord
	Seeds []int64 `json:"Seeds"`
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	cfg := imm.NewConfig()
	var configFile string

	cmd := &cobra.Command{
		Use:           "imm",
		Short:         "Influence maximization via reverse-reachable sampling",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := cfg.LoadFromFile(configFile); err != nil {
					return err
				}
			}
			bindFlags(cmd, cfg)
			return run(cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringP("input-graph", "i", "", "input file with the edge list")
	fl.Bool("reload-binary", false, "reload a graph from a binary dump")
	fl.BoolP("undirected", "u", false, "the input graph is undirected")
	fl.BoolP("weighted", "w", false, "the input graph is weighted")
	fl.IntP("seed-set-size", "k", 0, "the size of the seed set")
	fl.StringP("diffusion-model", "d", "", "the diffusion model to use (IC|LT)")
	fl.Float64P("epsilon", "e", 0.1, "the approximation factor")
	fl.BoolP("parallel", "p", false, "run the shared-memory parallel engine")
	fl.Bool("streaming", false, "offload sampling to streaming device workers")
	fl.Int("workers", 0, "total worker count (0 = hardware concurrency)")
	fl.Int("streaming-gpu-workers", 0, "streaming device worker count")
	fl.Int("batch-size", 0, "samples transferred per device launch")
	fl.Int("device-threads", 0, "LT device work items per thread")
	fl.Int("block-density", 0, "LT device work items per block")
	fl.Int("warp-density", 0, "LT device work items per warp")
	fl.Bool("strong-scaling", false, "re-run the parallel engine from max workers down to one")
	fl.Uint64("rng-seed", 0, "master random seed")
	fl.StringP("output", "o", "output.json", "the experiment log file")
	fl.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	fl.StringVar(&configFile, "config", "", "optional configuration file")

	cmd.MarkFlagRequired("input-graph")
	cmd.MarkFlagRequired("seed-set-size")
	cmd.MarkFlagRequired("diffusion-model")
	return cmd
}

// bindFlags copies every flag the user set into the configuration, so the
// precedence is flags over config file over defaults.
func bindFlags(cmd *cobra.Command, cfg *imm.Config) {
	set := map[string]string{
		"input-graph":           "input.path",
		"reload-binary":         "input.reload_binary",
		"undirected":            "input.undirected",
		"weighted":              "input.weighted",
		"seed-set-size":         "algorithm.k",
		"diffusion-model":       "algorithm.diffusion_model",
		"epsilon":               "algorithm.epsilon",
		"rng-seed":              "algorithm.seed",
		"parallel":              "execution.parallel",
		"streaming":             "execution.streaming",
		"workers":               "execution.workers",
		"streaming-gpu-workers": "execution.gpu_workers",
		"batch-size":            "execution.batch_size",
		"device-threads":        "execution.device_threads",
		"block-density":         "execution.block_density",
		"warp-density":          "execution.warp_density",
		"strong-scaling":        "execution.strong_scaling",
		"output":                "output.file",
		"log-level":             "logging.level",
	}
	for flag, key := range set {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			cfg.Set(key, f.Value.String())
		}
	}
}

func run(cfg *imm.Config) error {
	logger := newLogger(cfg.LogLevel())

	// Everything that can be rejected is rejected before any sampling and
	// before the output file is touched.
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}

	// The master seed splits into a weight stream and a generation stream,
	// so unweighted inputs and sampling never share draws.
	base := rng.New(cfg.Seed())
	weightStream := base.Split(0, 2)
	genStream := base.Split(1, 2)

	strat, err := cfg.Strategy(genStream, logger)
	if err != nil {
		logger.Error().Err(err).Msg("invalid execution configuration")
		return err
	}

	logger.Info().Str("path", cfg.InputPath()).Msg("loading graph")
	g, err := loadGraph(cfg, weightStream)
	if err != nil {
		logger.Error().Err(err).Msg("graph load failed")
		return err
	}
	logger.Info().
		Int("nodes", g.NumNodes()).
		Int64("edges", g.NumEdges()).
		Msg("loading done")

	if cfg.StrongScaling() {
		return strongScalingSweep(cfg, g, model, genStream, logger)
	}

	exp, err := runOnce(cfg, g, model, strat, logger)
	if err != nil {
		return err
	}
	if closer, ok := strat.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	return writeLog(cfg.OutputFile(), []*experiment{exp})
}

func loadGraph(cfg *imm.Config, weights *rng.Stream) (*graph.Graph, error) {
	if cfg.ReloadBinary() {
		return graph.LoadBinary(cfg.InputPath())
	}
	return graph.Load(cfg.InputPath(), graph.LoadOptions{
		Weighted:   cfg.Weighted(),
		Undirected: cfg.Undirected(),
		Weights:    weights,
	})
}

func runOnce(cfg *imm.Config, g *graph.Graph, model diffusion.Model,
	strat sampling.Strategy, logger zerolog.Logger) (*experiment, error) {

	start := time.Now()
	seeds, rec, err := imm.IMM(g, cfg.K(), cfg.Epsilon(), cfg.Options(), model, strat, logger)
	if err != nil {
		return nil, err
	}
	rec.Total = imm.DurationMS(time.Since(start))

	internal := make([]int32, len(seeds))
	for i, s := range seeds {
		internal[i] = s.Vertex
	}
	return &experiment{
		Algorithm:       "IMM",
		DiffusionModel:  model.Name(),
		Epsilon:         cfg.Epsilon(),
		K:               cfg.K(),
		L:               1,
		ExecutionRecord: rec,
		Seeds:           g.ConvertIDs(internal),
	}, nil
}

// strongScalingSweep re-runs the same estimation from the maximum worker
// count down to one, rewriting the log after every run so partial sweeps
// remain inspectable.
func strongScalingSweep(cfg *imm.Config, g *graph.Graph, model diffusion.Model,
	genStream *rng.Stream, logger zerolog.Logger) error {

	maxWorkers := cfg.Workers()
	var log []*experiment
	for workers := maxWorkers; workers >= 1; workers-- {
		var strat sampling.Strategy
		if workers == 1 {
			strat = sampling.NewSequential(genStream)
		} else {
			strat = sampling.NewParallel(genStream, workers)
		}
		exp, err := runOnce(cfg, g, model, strat, logger)
		if err != nil {
			return err
		}
		logger.Info().
			Int("workers", workers).
			Int("max_workers", maxWorkers).
			Int64("total_ms", exp.Total.Milliseconds()).
			Msg("strong scaling step")
		log = append(log, exp)
		if err := writeLog(cfg.OutputFile(), log); err != nil {
			return err
		}
	}
	return nil
}

func writeLog(path string, log []*experiment) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("encode experiment log: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
