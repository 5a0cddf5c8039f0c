package sampling

import (
	"errors"
	"fmt"

	"github.com/sbknight/ripples/pkg/diffusion"
	"github.com/sbknight/ripples/pkg/graph"
	"github.com/sbknight/ripples/pkg/rng"
)

// Kernel identifies the device kernel for a diffusion model.
type Kernel int

const (
	// KernelIC is the independent-cascade device kernel.
	KernelIC Kernel = iota
	// KernelLT is the linear-threshold device kernel.
	KernelLT
)

// KernelFor maps a diffusion model to its device kernel.
func KernelFor(m diffusion.Model) (Kernel, error) {
	switch m.Name() {
	case "IC":
		return KernelIC, nil
	case "LT":
		return KernelLT, nil
	default:
		return 0, fmt.Errorf("sampling: no device kernel for model %q", m.Name())
	}
}

// Device is a streaming sampling device. A device holds a resident copy of
// the graph after Init; Launch runs one kernel batch over transferred
// (root, seed) pairs. Init and Launch failures are fatal to the run.
type Device interface {
	Init(g *graph.Graph) error
	Launch(k Kernel, roots []int32, seeds []uint64) ([][]int32, error)
	Close() error
}

// HostDevice executes kernels on the host over a private copy of the
// backward CSR arrays. The residency, transfer, and batching paths are the
// same ones a real accelerator backend would use; only the kernels run on
// the CPU. Each device instance is owned by a single streaming worker.
type HostDevice struct {
	n       int
	offsets []int64
	targets []int32
	weights []float32

	epoch     uint32
	visited   []uint32
	seen      []uint32
	threshold []float64
	incoming  []float64
	frontier  []int32
}

// NewHostDevice creates an uninitialized host device.
func NewHostDevice() *HostDevice { return &HostDevice{} }

// Init copies the backward adjacency into device-resident buffers.
func (d *HostDevice) Init(g *graph.Graph) error {
	if g == nil || g.NumNodes() == 0 {
		return &DeviceError{Op: "init", Err: errors.New("empty graph")}
	}
	off, tgt, w := g.BackwardCSR()
	d.n = g.NumNodes()
	d.offsets = append([]int64(nil), off...)
	d.targets = append([]int32(nil), tgt...)
	d.weights = append([]float32(nil), w...)
	d.visited = make([]uint32, d.n)
	d.seen = make([]uint32, d.n)
	d.threshold = make([]float64, d.n)
	d.incoming = make([]float64, d.n)
	return nil
}

// Launch runs one kernel over a transferred batch of (root, seed) pairs
// and returns one RR set per pair.
func (d *HostDevice) Launch(k Kernel, roots []int32, seeds []uint64) ([][]int32, error) {
	if d.offsets == nil {
		return nil, &DeviceError{Op: "launch", Err: errors.New("device not initialized")}
	}
	if len(roots) != len(seeds) {
		return nil, &DeviceError{Op: "launch",
			Err: fmt.Errorf("batch shape mismatch: %d roots, %d seeds", len(roots), len(seeds))}
	}
	out := make([][]int32, len(roots))
	for i := range roots {
		rs := rng.New(seeds[i])
		switch k {
		case KernelIC:
			out[i] = d.icKernel(roots[i], rs)
		case KernelLT:
			out[i] = d.ltKernel(roots[i], rs)
		default:
			return nil, &DeviceError{Op: "launch", Err: fmt.Errorf("unknown kernel %d", k)}
		}
	}
	return out, nil
}

// Close releases the resident buffers.
func (d *HostDevice) Close() error {
	d.offsets, d.targets, d.weights = nil, nil, nil
	return nil
}

func (d *HostDevice) begin(root int32) {
	d.epoch++
	if d.epoch == 0 {
		for i := range d.visited {
			d.visited[i] = 0
			d.seen[i] = 0
		}
		d.epoch = 1
	}
	d.frontier = d.frontier[:0]
	d.visited[root] = d.epoch
	d.frontier = append(d.frontier, root)
}

func (d *HostDevice) icKernel(root int32, rs *rng.Stream) []int32 {
	d.begin(root)
	for head := 0; head < len(d.frontier); head++ {
		v := d.frontier[head]
		for i := d.offsets[v]; i < d.offsets[v+1]; i++ {
			u := d.targets[i]
			fired := rs.Float64() <= float64(d.weights[i])
			if fired && d.visited[u] != d.epoch {
				d.visited[u] = d.epoch
				d.frontier = append(d.frontier, u)
			}
		}
	}
	return append([]int32(nil), d.frontier...)
}

func (d *HostDevice) ltKernel(root int32, rs *rng.Stream) []int32 {
	d.begin(root)
	for head := 0; head < len(d.frontier); head++ {
		v := d.frontier[head]
		for i := d.offsets[v]; i < d.offsets[v+1]; i++ {
			u := d.targets[i]
			if d.visited[u] == d.epoch {
				continue
			}
			if d.seen[u] != d.epoch {
				d.seen[u] = d.epoch
				d.threshold[u] = rs.Float64()
				d.incoming[u] = 0
			}
			d.incoming[u] += float64(d.weights[i])
			if d.incoming[u] >= d.threshold[u] {
				d.visited[u] = d.epoch
				d.frontier = append(d.frontier, u)
			}
		}
	}
	return append([]int32(nil), d.frontier...)
}
