package mmutest

import (
	"github.com/sarchlab/radixmmu/console"
	"github.com/sarchlab/radixmmu/datarecording"
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/mmu"
	"github.com/sarchlab/radixmmu/sim"
)

// A Builder can build test runners.
type Builder struct {
	probe        Probe
	pageTable    PageTable
	memory       vm.Memory
	spr          mmu.SPRFile
	console      *console.Console
	invalidator  Invalidator
	flushOnSetup bool
	recorder     datarecording.DataRecorder
	tests        []Test
}

// MakeBuilder creates a builder that runs the Catalog.
func MakeBuilder() Builder {
	return Builder{
		tests: Catalog(),
	}
}

// WithProbe sets the hardware the tests access memory through.
func (b Builder) WithProbe(p Probe) Builder {
	b.probe = p
	return b
}

// WithPageTable sets the manager the tests map pages with.
func (b Builder) WithPageTable(pt PageTable) Builder {
	b.pageTable = pt
	return b
}

// WithMemory sets the physical memory the tests prepare frames in.
func (b Builder) WithMemory(m vm.Memory) Builder {
	b.memory = m
	return b
}

// WithSPR sets the register file the diagnostics are read from.
func (b Builder) WithSPR(spr mmu.SPRFile) Builder {
	b.spr = spr
	return b
}

// WithConsole sets where results are printed.
func (b Builder) WithConsole(c *console.Console) Builder {
	b.console = c
	return b
}

// WithInvalidator sets the TLB that is flushed during setup when
// WithFlushOnSetup is on.
func (b Builder) WithInvalidator(i Invalidator) Builder {
	b.invalidator = i
	return b
}

// WithFlushOnSetup makes every setup drop all cached translations after the
// teardown. It is off by default, so a test sees exactly what the previous
// test's unmaps left in the TLB.
func (b Builder) WithFlushOnSetup(flush bool) Builder {
	b.flushOnSetup = flush
	return b
}

// WithRecorder records every result into ResultTableName.
func (b Builder) WithRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// WithTests replaces the tests to run.
func (b Builder) WithTests(tests ...Test) Builder {
	b.tests = tests
	return b
}

// Build creates a runner.
func (b Builder) Build(name string) *Runner {
	if b.probe == nil || b.pageTable == nil || b.memory == nil ||
		b.spr == nil || b.console == nil {
		panic("a test runner needs a probe, a page table, memory, " +
			"an SPR file and a console")
	}

	if b.flushOnSetup && b.invalidator == nil {
		panic("flushing on setup needs an invalidator")
	}

	r := &Runner{
		NamedBase: sim.MakeNamedBase(name),
		env: Env{
			Probe:     b.probe,
			PageTable: b.pageTable,
			Memory:    b.memory,
			SPR:       b.spr,
		},
		console:      b.console,
		invalidator:  b.invalidator,
		flushOnSetup: b.flushOnSetup,
		recorder:     b.recorder,
		tests:        b.tests,
	}

	if r.recorder != nil {
		r.recorder.CreateTable(ResultTableName, ResultEntry{})
	}

	return r
}
