package tlb

import (
	"github.com/sarchlab/radixmmu/sim"
)

// A Builder can build TLBs
type Builder struct {
	numSets int
	numWays int
}

// MakeBuilder returns a Builder. The default geometry is 64 sets of 2 ways,
// which is what the data-side TLB of the modeled core has.
func MakeBuilder() Builder {
	return Builder{
		numSets: 64,
		numWays: 2,
	}
}

// WithNumSets sets the number of sets in a TLB. Use 1 for fully associated
// TLBs.
func (b Builder) WithNumSets(n int) Builder {
	b.numSets = n
	return b
}

// WithNumWays sets the number of ways in a TLB.
func (b Builder) WithNumWays(n int) Builder {
	b.numWays = n
	return b
}

// Build creates a new TLB
func (b Builder) Build(name string) *Comp {
	if b.numSets <= 0 || b.numWays <= 0 {
		panic("a TLB needs at least one set and one way")
	}

	tlb := &Comp{
		NamedBase: sim.MakeNamedBase(name),
		numSets:   b.numSets,
		numWays:   b.numWays,
	}
	tlb.reset()

	return tlb
}
