// Package mmutest runs directed fault-injection tests against the page-table
// manager and the translation hardware, and reports each outcome with the
// diagnostic registers the hardware left behind.
package mmutest

import (
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/mmu"
)

// Probe attempts accesses through translation. A failed attempt is an
// expected outcome, never an error; its cause is left in the diagnostic
// registers.
type Probe interface {
	// AttemptRead loads the doubleword at v. On a fault it returns poison.
	AttemptRead(v vm.VAddr, poison uint64) (uint64, bool)

	// AttemptWrite stores value at v.
	AttemptWrite(v vm.VAddr, value uint64) bool

	// AttemptExecute runs the code at entry with the given MSR.
	AttemptExecute(testID int, entry vm.VAddr, msr uint64) bool
}

// PageTable installs and removes translations.
type PageTable interface {
	Map(v vm.VAddr, p vm.PAddr, flags vm.Flags) error
	Unmap(v vm.VAddr) error
	UnmapAll() error
}

// Env is what a test body works with.
type Env struct {
	Probe     Probe
	PageTable PageTable
	Memory    vm.Memory
	SPR       mmu.SPRFile
}

// PokePhys writes a data doubleword straight to physical memory.
func (e *Env) PokePhys(p vm.PAddr, value uint64) error {
	return e.Memory.WriteUint64(uint64(p), value, vm.DataOrder)
}

// PeekPhys reads a data doubleword straight from physical memory.
func (e *Env) PeekPhys(p vm.PAddr) (uint64, error) {
	return e.Memory.ReadUint64(uint64(p), vm.DataOrder)
}
