package imm

import (
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sbknight/ripples/pkg/diffusion"
	"github.com/sbknight/ripples/pkg/rng"
	"github.com/sbknight/ripples/pkg/sampling"
)

// Config manages tool configuration using Viper. It is constructed once,
// optionally overlaid from a file and command-line flags, and passed
// explicitly into the engine; the core keeps no global state.
type Config struct {
	v *viper.Viper
}

// NewConfig creates a configuration with defaults.
func NewConfig() *Config {
	v := viper.New()

	// Algorithm parameters
	v.SetDefault("algorithm.k", 10)
	v.SetDefault("algorithm.epsilon", 0.1)
	v.SetDefault("algorithm.diffusion_model", "IC")
	v.SetDefault("algorithm.seed", uint64(0))

	// Estimator parameters
	v.SetDefault("estimator.l", 1.0)
	v.SetDefault("estimator.eps_prime_factor", math.Sqrt2)
	v.SetDefault("estimator.round_limit", 0)

	// Execution parameters
	v.SetDefault("execution.parallel", false)
	v.SetDefault("execution.workers", runtime.NumCPU())
	v.SetDefault("execution.streaming", false)
	v.SetDefault("execution.gpu_workers", 0)
	v.SetDefault("execution.batch_size", 256)
	v.SetDefault("execution.device_threads", 0)
	v.SetDefault("execution.block_density", 0)
	v.SetDefault("execution.warp_density", 0)
	v.SetDefault("execution.strong_scaling", false)

	// Input parameters
	v.SetDefault("input.path", "")
	v.SetDefault("input.weighted", false)
	v.SetDefault("input.undirected", false)
	v.SetDefault("input.reload_binary", false)

	// Output and logging
	v.SetDefault("output.file", "output.json")
	v.SetDefault("logging.level", "info")

	return &Config{v: v}
}

// LoadFromFile overlays configuration from a file.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Set overrides a single key, typically from a command-line flag.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// Getters for algorithm parameters
func (c *Config) K() int                 { return c.v.GetInt("algorithm.k") }
func (c *Config) Epsilon() float64       { return c.v.GetFloat64("algorithm.epsilon") }
func (c *Config) DiffusionModel() string { return c.v.GetString("algorithm.diffusion_model") }
func (c *Config) Seed() uint64           { return c.v.GetUint64("algorithm.seed") }

// Getters for execution parameters
func (c *Config) Parallel() bool     { return c.v.GetBool("execution.parallel") }
func (c *Config) Workers() int       { return c.v.GetInt("execution.workers") }
func (c *Config) Streaming() bool    { return c.v.GetBool("execution.streaming") }
func (c *Config) GPUWorkers() int    { return c.v.GetInt("execution.gpu_workers") }
func (c *Config) BatchSize() int     { return c.v.GetInt("execution.batch_size") }
func (c *Config) StrongScaling() bool { return c.v.GetBool("execution.strong_scaling") }

// Getters for input and output
func (c *Config) InputPath() string  { return c.v.GetString("input.path") }
func (c *Config) Weighted() bool     { return c.v.GetBool("input.weighted") }
func (c *Config) Undirected() bool   { return c.v.GetBool("input.undirected") }
func (c *Config) ReloadBinary() bool { return c.v.GetBool("input.reload_binary") }
func (c *Config) OutputFile() string { return c.v.GetString("output.file") }
func (c *Config) LogLevel() string   { return c.v.GetString("logging.level") }

// Tuning assembles the device work-item granularity.
func (c *Config) Tuning() sampling.Tuning {
	return sampling.Tuning{
		Threads:      c.v.GetInt("execution.device_threads"),
		BlockDensity: c.v.GetInt("execution.block_density"),
		WarpDensity:  c.v.GetInt("execution.warp_density"),
	}
}

// Options assembles the estimator tunables.
func (c *Config) Options() Options {
	return Options{
		L:              c.v.GetFloat64("estimator.l"),
		EpsPrimeFactor: c.v.GetFloat64("estimator.eps_prime_factor"),
		RoundLimit:     c.v.GetInt("estimator.round_limit"),
	}
}

// Model resolves the configured diffusion model.
func (c *Config) Model() (diffusion.Model, error) {
	return diffusion.ParseModel(c.DiffusionModel())
}

// Validate performs the eager scalar checks. Strategy construction covers
// the worker and device relations; both happen before any sampling.
func (c *Config) Validate() error {
	if c.K() <= 0 {
		return &sampling.ConfigurationError{Param: "k",
			Reason: fmt.Sprintf("must be a positive integer, got %d", c.K())}
	}
	if c.Epsilon() <= 0 {
		return &sampling.ConfigurationError{Param: "epsilon",
			Reason: fmt.Sprintf("must be positive, got %v", c.Epsilon())}
	}
	if _, err := c.Model(); err != nil {
		return &sampling.ConfigurationError{Param: "diffusion-model", Reason: err.Error()}
	}
	if c.Streaming() && c.Parallel() {
		return &sampling.ConfigurationError{Param: "execution",
			Reason: "parallel and streaming modes are mutually exclusive"}
	}
	return nil
}

// Strategy builds the configured execution strategy. All worker and device
// configuration problems surface here, before any sampling begins.
func (c *Config) Strategy(master *rng.Stream, logger zerolog.Logger) (sampling.Strategy, error) {
	m, err := c.Model()
	if err != nil {
		return nil, &sampling.ConfigurationError{Param: "diffusion-model", Reason: err.Error()}
	}
	switch {
	case c.Streaming():
		return sampling.NewStreaming(master, sampling.StreamingConfig{
			Workers:    c.Workers(),
			GPUWorkers: c.GPUWorkers(),
			BatchSize:  c.BatchSize(),
			Tuning:     c.Tuning(),
		}, m, nil, logger)
	case c.Parallel():
		return sampling.NewParallel(master, c.Workers()), nil
	default:
		return sampling.NewSequential(master), nil
	}
}
