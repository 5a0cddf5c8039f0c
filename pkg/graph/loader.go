package graph

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sbknight/ripples/pkg/rng"
)

// LoadError reports malformed graph input. It is fatal: the tool exits
// rather than working with a partially loaded graph.
type LoadError struct {
	Path   string
	Line   int
	Reason string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("graph: %s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("graph: %s: %s", e.Path, e.Reason)
}

// LoadOptions describes the edge-list input format.
type LoadOptions struct {
	// Weighted inputs carry a third column with weights in (0,1].
	// Unweighted inputs get a weight drawn per edge from Weights.
	Weighted bool
	// Undirected inputs have every edge mirrored.
	Undirected bool
	// Weights supplies random weights for unweighted inputs. Required when
	// Weighted is false, ignored otherwise.
	Weights *rng.Stream
}

// Load parses a whitespace-separated edge list. Lines starting with '#' or
// '%' are comments.
func Load(path string, opts LoadOptions) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: err.Error()}
	}
	defer f.Close()
	return parseEdgeList(f, path, opts)
}

func parseEdgeList(r io.Reader, path string, opts LoadOptions) (*Graph, error) {
	if !opts.Weighted && opts.Weights == nil {
		return nil, &LoadError{Path: path, Reason: "unweighted input requires a weight stream"}
	}

	want := 2
	if opts.Weighted {
		want = 3
	}

	var edges []Edge
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' || text[0] == '%' {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != want {
			return nil, &LoadError{Path: path, Line: line,
				Reason: fmt.Sprintf("expected %d columns, found %d (weighted=%v)", want, len(fields), opts.Weighted)}
		}
		from, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, &LoadError{Path: path, Line: line, Reason: "bad source vertex: " + fields[0]}
		}
		to, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, &LoadError{Path: path, Line: line, Reason: "bad destination vertex: " + fields[1]}
		}
		var w float32
		if opts.Weighted {
			w64, err := strconv.ParseFloat(fields[2], 32)
			if err != nil || w64 <= 0 || w64 > 1 {
				return nil, &LoadError{Path: path, Line: line, Reason: "edge weight must be in (0,1]: " + fields[2]}
			}
			w = float32(w64)
		} else {
			w = randomWeight(opts.Weights)
		}
		edges = append(edges, Edge{From: from, To: to, Weight: w})
		if opts.Undirected {
			mw := w
			if !opts.Weighted {
				mw = randomWeight(opts.Weights)
			}
			edges = append(edges, Edge{From: to, To: from, Weight: mw})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &LoadError{Path: path, Reason: err.Error()}
	}
	if len(edges) == 0 {
		return nil, &LoadError{Path: path, Reason: "no edges found"}
	}

	g, err := NewFromEdges(edges)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: err.Error()}
	}
	return g, nil
}

// randomWeight draws a weight in (0,1].
func randomWeight(s *rng.Stream) float32 {
	return float32(1 - s.Float64())
}

const (
	binaryMagic   = uint32(0x52504c42) // "RPLB"
	binaryVersion = uint32(1)
)

// SaveBinary writes the graph as a fixed-width little-endian dump so large
// inputs reload without re-parsing.
func (g *Graph) SaveBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("graph: save binary: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, v := range []any{
		binaryMagic, binaryVersion,
		int64(g.numNodes), g.numEdges,
		g.fwd.offsets, g.fwd.targets, g.fwd.weights,
		g.toExternal,
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			f.Close()
			return fmt.Errorf("graph: save binary: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("graph: save binary: %w", err)
	}
	return f.Close()
}

// LoadBinary reloads a dump written by SaveBinary. The backward orientation
// is rebuilt as the exact transpose of the stored forward arrays.
func LoadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: err.Error()}
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var magic, version uint32
	var n, m int64
	for _, v := range []any{&magic, &version, &n, &m} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, &LoadError{Path: path, Reason: "truncated header"}
		}
	}
	if magic != binaryMagic {
		return nil, &LoadError{Path: path, Reason: "not a binary graph dump"}
	}
	if version != binaryVersion {
		return nil, &LoadError{Path: path, Reason: fmt.Sprintf("unsupported dump version %d", version)}
	}
	if n < 0 || m < 0 {
		return nil, &LoadError{Path: path, Reason: "corrupt header counts"}
	}

	g := &Graph{
		numNodes: int(n),
		numEdges: m,
		fwd: csr{
			offsets: make([]int64, n+1),
			targets: make([]int32, m),
			weights: make([]float32, m),
		},
		toExternal: make([]int64, n),
	}
	for _, v := range []any{g.fwd.offsets, g.fwd.targets, g.fwd.weights, g.toExternal} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, &LoadError{Path: path, Reason: "truncated dump body"}
		}
	}

	g.toInternal = make(map[int64]int32, n)
	for i, id := range g.toExternal {
		g.toInternal[id] = int32(i)
	}
	g.bwd = transpose(g.fwd, g.numNodes)
	return g, nil
}
