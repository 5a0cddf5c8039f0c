package sampling

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sbknight/ripples/pkg/diffusion"
	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/rng"
)

// Strategy drives many simulator invocations and appends the resulting RR
// sets to a collection. Strategies own their random substreams: they are
// derived from the master stream at construction and advance across calls,
// so repeated rounds keep drawing fresh samples deterministically.
type Strategy interface {
	Name() string
	// Workers reports the degree of parallelism, recorded for diagnostics.
	Workers() int
	// Generate appends exactly count RR sets to coll.
	Generate(g *graph.Graph, m diffusion.Model, count int, coll *Collection) error
}

// Sequential generates one sample at a time on a single stream. It is the
// correctness baseline: a single-worker pool produces the identical
// collection.
type Sequential struct {
	stream  *rng.Stream
	scratch *diffusion.Scratch
}

// NewSequential derives the strategy's stream as substream 0 of 1, the
// same derivation a one-worker pool uses.
func NewSequential(master *rng.Stream) *Sequential {
	return &Sequential{stream: master.Split(0, 1)}
}

// Name implements Strategy.
func (s *Sequential) Name() string { return "sequential" }

// Workers implements Strategy.
func (s *Sequential) Workers() int { return 1 }

// Generate implements Strategy.
func (s *Sequential) Generate(g *graph.Graph, m diffusion.Model, count int, coll *Collection) error {
	if s.scratch == nil {
		s.scratch = diffusion.NewScratch(g.NumNodes())
	}
	n := int32(g.NumNodes())
	buf := make([][]int32, 0, count)
	for i := 0; i < count; i++ {
		root := s.stream.Int32N(n)
		buf = append(buf, m.Simulate(g, root, s.stream, s.scratch))
	}
	coll.AddBatch(buf)
	return nil
}

// Parallel partitions each request across a fixed worker pool. Worker i
// owns substream i of w, split from the master at construction; workers
// buffer locally and merge into the collection once per batch, so there is
// no per-sample locking. Merges happen in worker order, which makes the
// collection contents deterministic for a fixed worker count.
type Parallel struct {
	workers int
	streams []*rng.Stream
	scratch []*diffusion.Scratch
}

// NewParallel builds a pool of the given size; workers <= 0 selects the
// hardware concurrency.
func NewParallel(master *rng.Stream, workers int) *Parallel {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Parallel{
		workers: workers,
		streams: make([]*rng.Stream, workers),
		scratch: make([]*diffusion.Scratch, workers),
	}
	for i := 0; i < workers; i++ {
		p.streams[i] = master.Split(uint64(i), uint64(workers))
	}
	return p
}

// Name implements Strategy.
func (p *Parallel) Name() string { return "parallel" }

// Workers implements Strategy.
func (p *Parallel) Workers() int { return p.workers }

// Generate implements Strategy.
func (p *Parallel) Generate(g *graph.Graph, m diffusion.Model, count int, coll *Collection) error {
	n := int32(g.NumNodes())
	buffers := make([][][]int32, p.workers)

	var eg errgroup.Group
	for i := 0; i < p.workers; i++ {
		i := i
		quota := share(count, p.workers, i)
		if quota == 0 {
			continue
		}
		eg.Go(func() error {
			if p.scratch[i] == nil {
				p.scratch[i] = diffusion.NewScratch(g.NumNodes())
			}
			st := p.streams[i]
			buf := make([][]int32, 0, quota)
			for j := 0; j < quota; j++ {
				root := st.Int32N(n)
				buf = append(buf, m.Simulate(g, root, st, p.scratch[i]))
			}
			buffers[i] = buf
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	for i := 0; i < p.workers; i++ {
		if len(buffers[i]) > 0 {
			coll.AddBatch(buffers[i])
		}
	}
	return nil
}

// share is worker i's slice of count samples over w workers.
func share(count, w, i int) int {
	q := count / w
	if i < count%w {
		q++
	}
	return q
}
