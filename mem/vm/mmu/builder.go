package mmu

import (
	"github.com/sarchlab/radixmmu/mem/vm/tlb"
	"github.com/sarchlab/radixmmu/sim"
)

// A Builder can build a Core
type Builder struct {
	memory PhysicalMemory
	tlb    TLB
	regs   *Registers
	pir    uint64
}

// MakeBuilder creates a new builder
func MakeBuilder() Builder {
	return Builder{}
}

// WithMemory sets the physical memory that the core accesses.
func (b Builder) WithMemory(m PhysicalMemory) Builder {
	b.memory = m
	return b
}

// WithTLB sets the TLB that caches translations. If not set, a TLB with the
// default geometry is created.
func (b Builder) WithTLB(t TLB) Builder {
	b.tlb = t
	return b
}

// WithRegisters sets the register file. If not set, a fresh one is created.
func (b Builder) WithRegisters(r *Registers) Builder {
	b.regs = r
	return b
}

// WithPIR sets the processor identification of the core.
func (b Builder) WithPIR(pir uint64) Builder {
	b.pir = pir
	return b
}

// Build returns a newly created Core
func (b Builder) Build(name string) *Core {
	if b.memory == nil {
		panic("a core needs physical memory")
	}

	c := &Core{
		NamedBase: sim.MakeNamedBase(name),
		memory:    b.memory,
		tlb:       b.tlb,
		regs:      b.regs,
	}

	if c.regs == nil {
		c.regs = NewRegisters()
	}

	if c.tlb == nil {
		c.tlb = tlb.MakeBuilder().Build(sim.BuildName(name, "TLB"))
	}

	c.regs.Set(SPRPIR, b.pir)
	c.walker = NewWalker(b.memory, c.regs)

	return c
}
