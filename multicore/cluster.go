package multicore

import (
	"context"
	"fmt"
	"sync"
)

// An Entry is what a secondary core runs once enabled. pir identifies the
// core.
type Entry func(ctx context.Context, pir uint64)

// A Cluster owns a fixed number of cores. Core 0 is the caller and is always
// running; the others start when enabled.
type Cluster struct {
	mu      sync.Mutex
	numCPUs int
	entry   Entry
	running uint64
	wg      sync.WaitGroup
}

// NewCluster creates a cluster of numCPUs cores whose secondaries run entry.
func NewCluster(numCPUs int, entry Entry) *Cluster {
	if numCPUs <= 0 || numCPUs > 64 {
		panic(fmt.Sprintf("cannot build a cluster of %d cores", numCPUs))
	}

	return &Cluster{
		numCPUs: numCPUs,
		entry:   entry,
		running: 1,
	}
}

// NumCPUs returns the number of cores.
func (c *Cluster) NumCPUs() int {
	return c.numCPUs
}

// Enable starts every core in mask that is not running yet. Bits past the
// last core are ignored.
func (c *Cluster) Enable(ctx context.Context, mask uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for pir := 1; pir < c.numCPUs; pir++ {
		bit := uint64(1) << pir
		if mask&bit == 0 || c.running&bit != 0 {
			continue
		}

		c.running |= bit
		c.wg.Add(1)

		go func(pir uint64) {
			defer c.wg.Done()
			c.entry(ctx, pir)
		}(uint64(pir))
	}
}

// Running returns the mask of cores that have been enabled.
func (c *Cluster) Running() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// Wait blocks until every enabled secondary core has returned.
func (c *Cluster) Wait() {
	c.wg.Wait()
}
