package sampling

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sbknight/ripples/pkg/diffusion"
	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/rng"
)

// Tuning holds the device work-item granularity used by the
// linear-threshold kernel. Independent cascade ignores it.
type Tuning struct {
	Threads      int
	BlockDensity int
	WarpDensity  int
}

func (t Tuning) set() bool { return t.Threads != 0 || t.BlockDensity != 0 || t.WarpDensity != 0 }

// batchCap is the largest batch the tuning admits per launch.
func (t Tuning) batchCap() int { return t.Threads * t.BlockDensity * t.WarpDensity }

// StreamingConfig sizes the device-offloaded strategy.
type StreamingConfig struct {
	// Workers is the total worker count; the first GPUWorkers of them are
	// device workers, the rest run the host simulator concurrently.
	Workers    int
	GPUWorkers int
	// BatchSize caps how many (root, seed) pairs transfer per launch.
	BatchSize int
	// Tuning is required for LT and rejected-with-warning for IC.
	Tuning Tuning
}

const defaultBatchSize = 256

// Streaming offloads sampling to a bounded pool of streaming device
// workers, optionally overlapped with host workers. The graph becomes
// device-resident on the first Generate call and stays resident across
// rounds. All configuration problems surface from NewStreaming, before any
// sampling begins.
type Streaming struct {
	cfg       StreamingConfig
	kernel    Kernel
	streams   []*rng.Stream
	scratch   []*diffusion.Scratch
	devices   []Device
	newDevice func() Device
	logger    zerolog.Logger
}

// NewStreaming validates cfg against the chosen model and builds the
// strategy. newDevice may be nil, which selects the host-resident device.
func NewStreaming(master *rng.Stream, cfg StreamingConfig, m diffusion.Model,
	newDevice func() Device, logger zerolog.Logger) (*Streaming, error) {

	if cfg.Workers <= 0 {
		return nil, &ConfigurationError{Param: "workers",
			Reason: fmt.Sprintf("must be positive, got %d", cfg.Workers)}
	}
	if cfg.GPUWorkers <= 0 || cfg.GPUWorkers > cfg.Workers {
		return nil, &ConfigurationError{Param: "gpu-workers",
			Reason: fmt.Sprintf("must satisfy 0 < gpu-workers <= workers, got %d of %d",
				cfg.GPUWorkers, cfg.Workers)}
	}
	kernel, err := KernelFor(m)
	if err != nil {
		return nil, &ConfigurationError{Param: "diffusion-model", Reason: err.Error()}
	}
	switch kernel {
	case KernelLT:
		if cfg.Tuning.Threads <= 0 || cfg.Tuning.BlockDensity <= 0 || cfg.Tuning.WarpDensity <= 0 {
			return nil, &ConfigurationError{Param: "device-tuning",
				Reason: "LT requires positive thread, block, and warp granularity"}
		}
	case KernelIC:
		if cfg.Tuning.set() {
			logger.Warn().Msg("IC ignores user-provided device tuning parameters")
			cfg.Tuning = Tuning{}
		}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	s := &Streaming{
		cfg:       cfg,
		kernel:    kernel,
		streams:   make([]*rng.Stream, cfg.Workers),
		scratch:   make([]*diffusion.Scratch, cfg.Workers),
		newDevice: newDevice,
		logger:    logger,
	}
	if s.newDevice == nil {
		s.newDevice = func() Device { return NewHostDevice() }
	}
	for i := 0; i < cfg.Workers; i++ {
		s.streams[i] = master.Split(uint64(i), uint64(cfg.Workers))
	}
	return s, nil
}

// Name implements Strategy.
func (s *Streaming) Name() string { return "streaming" }

// Workers implements Strategy.
func (s *Streaming) Workers() int { return s.cfg.Workers }

// Generate implements Strategy.
func (s *Streaming) Generate(g *graph.Graph, m diffusion.Model, count int, coll *Collection) error {
	if s.devices == nil {
		if err := s.initDevices(g); err != nil {
			return err
		}
	}

	n := int32(g.NumNodes())
	batch := s.cfg.BatchSize
	if s.kernel == KernelLT && s.cfg.Tuning.batchCap() < batch {
		batch = s.cfg.Tuning.batchCap()
	}

	buffers := make([][][]int32, s.cfg.Workers)
	var eg errgroup.Group
	for i := 0; i < s.cfg.Workers; i++ {
		i := i
		quota := share(count, s.cfg.Workers, i)
		if quota == 0 {
			continue
		}
		if i < s.cfg.GPUWorkers {
			eg.Go(func() error { return s.deviceWorker(i, quota, batch, n, &buffers[i]) })
		} else {
			eg.Go(func() error { return s.hostWorker(i, quota, g, m, &buffers[i]) })
		}
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	for i := 0; i < s.cfg.Workers; i++ {
		if len(buffers[i]) > 0 {
			coll.AddBatch(buffers[i])
		}
	}
	return nil
}

func (s *Streaming) initDevices(g *graph.Graph) error {
	devices := make([]Device, s.cfg.GPUWorkers)
	for i := range devices {
		devices[i] = s.newDevice()
		if err := devices[i].Init(g); err != nil {
			for _, d := range devices[:i] {
				d.Close()
			}
			if _, ok := err.(*DeviceError); ok {
				return err
			}
			return &DeviceError{Op: "init", Err: err}
		}
	}
	s.devices = devices
	s.logger.Debug().Int("devices", len(devices)).Msg("graph resident on streaming devices")
	return nil
}

// deviceWorker streams batches of (root, seed) pairs to its device.
func (s *Streaming) deviceWorker(i, quota, batch int, n int32, out *[][]int32) error {
	st := s.streams[i]
	dev := s.devices[i]
	buf := make([][]int32, 0, quota)
	roots := make([]int32, 0, batch)
	seeds := make([]uint64, 0, batch)
	for done := 0; done < quota; {
		size := batch
		if rest := quota - done; rest < size {
			size = rest
		}
		roots = roots[:0]
		seeds = seeds[:0]
		for j := 0; j < size; j++ {
			roots = append(roots, st.Int32N(n))
			seeds = append(seeds, st.Uint64())
		}
		sets, err := dev.Launch(s.kernel, roots, seeds)
		if err != nil {
			return err
		}
		buf = append(buf, sets...)
		done += size
	}
	*out = buf
	return nil
}

// hostWorker runs the host simulator, overlapping with device launches.
func (s *Streaming) hostWorker(i, quota int, g *graph.Graph, m diffusion.Model, out *[][]int32) error {
	if s.scratch[i] == nil {
		s.scratch[i] = diffusion.NewScratch(g.NumNodes())
	}
	st := s.streams[i]
	n := int32(g.NumNodes())
	buf := make([][]int32, 0, quota)
	for j := 0; j < quota; j++ {
		root := st.Int32N(n)
		buf = append(buf, m.Simulate(g, root, st, s.scratch[i]))
	}
	*out = buf
	return nil
}

// Close releases the device-resident graph copies.
func (s *Streaming) Close() error {
	var first error
	for _, d := range s.devices {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.devices = nil
	return first
}
