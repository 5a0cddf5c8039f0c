// Package sampling holds the reverse-reachable set machinery: the
// append-only sample collection with its coverage tally, and the
// interchangeable execution strategies (sequential, worker pool,
// streaming/device-offloaded) that fill it.
package sampling

import "sync"

// Collection is an append-only store of RR sets with an incrementally
// maintained per-vertex coverage tally: tally[v] counts the stored sets
// containing v. Sets are exclusively owned by the collection once added.
// Mutation happens only at coarse batch-merge points, so the mutex is
// essentially uncontended.
type Collection struct {
	mu    sync.Mutex
	sets  [][]int32
	tally []uint32
}

// NewCollection creates an empty collection over n vertices.
func NewCollection(n int) *Collection {
	return &Collection{tally: make([]uint32, n)}
}

// Add appends one set, incrementing each member's tally exactly once.
// Members must be distinct, which the simulators guarantee.
func (c *Collection) Add(set []int32) {
	c.mu.Lock()
	c.appendLocked(set)
	c.mu.Unlock()
}

// AddBatch appends a batch of sets under a single lock acquisition.
func (c *Collection) AddBatch(batch [][]int32) {
	c.mu.Lock()
	for _, set := range batch {
		c.appendLocked(set)
	}
	c.mu.Unlock()
}

func (c *Collection) appendLocked(set []int32) {
	c.sets = append(c.sets, set)
	for _, v := range set {
		c.tally[v]++
	}
}

// Count reports the number of stored sets.
func (c *Collection) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sets)
}

// NumNodes reports the vertex-space size the tally is defined over.
func (c *Collection) NumNodes() int { return len(c.tally) }

// Sets returns the stored sets. The result must be treated as read-only
// and is only safe to use once generation has finished.
func (c *Collection) Sets() [][]int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

// Tally reports how many stored sets contain v.
func (c *Collection) Tally(v int32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tally[v]
}

// TallySnapshot copies the tally so a selector can decrement its own copy.
func (c *Collection) TallySnapshot() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint32, len(c.tally))
	copy(out, c.tally)
	return out
}

// Reset drops all sets and zeroes the tally, keeping capacity for reuse
// between the estimation rounds and the production-scale run.
func (c *Collection) Reset() {
	c.mu.Lock()
	c.sets = c.sets[:0]
	for i := range c.tally {
		c.tally[i] = 0
	}
	c.mu.Unlock()
}
