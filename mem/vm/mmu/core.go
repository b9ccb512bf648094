// Package mmu models the translation hardware of one core: its registers, a
// radix table walker, and the load, store, block-zero and fetch paths that
// translate through a TLB and report faults.
package mmu

import (
	"strconv"

	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/sim"
	"github.com/sarchlab/radixmmu/tracing"
)

// PhysicalMemory is the memory behind the translation.
type PhysicalMemory interface {
	vm.Memory
	Read(address uint64, length uint64) ([]byte, error)
	ZeroBlock(address uint64) error
}

// A TLB caches translations.
type TLB interface {
	Lookup(pid vm.PID, v vm.VAddr) (vm.PTE, bool)
	Insert(pid vm.PID, v vm.VAddr, pte vm.PTE)
}

type accessKind int

const (
	accessLoad accessKind = iota
	accessStore
	accessFetch
)

var accessNames = [...]string{"load", "store", "fetch"}

func (k accessKind) String() string {
	return accessNames[k]
}

// Hook positions of a core.
var (
	HookPosDataFault  = &sim.HookPos{Name: "MMU Data Fault"}
	HookPosInstrFault = &sim.HookPos{Name: "MMU Instruction Fault"}
)

// blockSize is the span that a block-zero clears.
const blockSize = 64

// instructionSize is the number of bytes a fetch reads.
const instructionSize = 4

// Core runs accesses of one processor through translation. Data accesses
// that cannot complete set DAR and DSISR. Fetches that cannot complete set
// SRR0 and SRR1.
type Core struct {
	sim.NamedBase
	sim.HookableBase

	regs   *Registers
	memory PhysicalMemory
	tlb    TLB
	walker Walker
}

// Registers returns the register file of the core.
func (c *Core) Registers() *Registers {
	return c.regs
}

// AttemptRead loads the doubleword at v. On a fault it returns poison and
// false, with DAR holding v exactly.
func (c *Core) AttemptRead(v vm.VAddr, poison uint64) (uint64, bool) {
	taskID := c.startTask(accessLoad, v)
	defer tracing.EndTask(taskID, c)

	p, ok := c.translateData(taskID, v, v, vm.WordSize, accessLoad)
	if !ok {
		return poison, false
	}

	value, err := c.memory.ReadUint64(uint64(p), vm.DataOrder)
	if err != nil {
		c.raiseDataFault(taskID, v, FaultNone, accessLoad)
		return poison, false
	}

	return value, true
}

// AttemptWrite stores value as a doubleword at v and tells if the store
// completed.
func (c *Core) AttemptWrite(v vm.VAddr, value uint64) bool {
	taskID := c.startTask(accessStore, v)
	defer tracing.EndTask(taskID, c)

	p, ok := c.translateData(taskID, v, v, vm.WordSize, accessStore)
	if !ok {
		return false
	}

	err := c.memory.WriteUint64(uint64(p), value, vm.DataOrder)
	if err != nil {
		c.raiseDataFault(taskID, v, FaultNone, accessStore)
		return false
	}

	return true
}

// AttemptBlockZero clears the 64-byte block that holds v. It is checked like
// a store.
func (c *Core) AttemptBlockZero(v vm.VAddr) bool {
	taskID := c.startTask(accessStore, v)
	defer tracing.EndTask(taskID, c)

	block := v &^ (blockSize - 1)

	p, ok := c.translateData(taskID, v, block, blockSize, accessStore)
	if !ok {
		return false
	}

	if err := c.memory.ZeroBlock(uint64(p)); err != nil {
		c.raiseDataFault(taskID, v, FaultNone, accessStore)
		return false
	}

	return true
}

// AttemptExecute transfers control to entry with the given MSR, passing
// testID in the first argument register. The code at entry returns at once,
// so the attempt succeeds when the first instruction can be fetched. The MSR
// of the core is restored afterwards.
func (c *Core) AttemptExecute(testID int, entry vm.VAddr, msr uint64) bool {
	taskID := c.startTask(accessFetch, entry)
	defer tracing.EndTask(taskID, c)

	saved := c.regs.MSR()
	c.regs.SetMSR(msr)

	defer c.regs.SetMSR(saved)

	tracing.AddTaskStep(taskID, c, "test-"+strconv.Itoa(testID))

	p, fault, noExec := c.translate(taskID, entry, accessFetch, msr&MSRIR != 0)
	if fault == FaultNone {
		_, err := c.memory.Read(uint64(p), instructionSize)
		if err == nil {
			return true
		}

		fault = FaultBadTree
	}

	c.regs.Set(SPRSRR0, uint64(entry))
	c.regs.Set(SPRSRR1, msr&srr1MSRMask|fault.SRR1(noExec))
	tracing.AddTaskStep(taskID, c, "fault")
	c.hook(HookPosInstrFault, entry, fault)

	return false
}

func (c *Core) startTask(kind accessKind, v vm.VAddr) string {
	id := sim.GetIDGenerator().Generate()
	tracing.StartTask(id, "", c, "translation", kind.String(), v)

	return id
}

// translateData translates the size bytes at base for an access to ea. A
// fault reports ea, which lies within those bytes.
func (c *Core) translateData(
	taskID string,
	ea, base vm.VAddr,
	size uint64,
	kind accessKind,
) (vm.PAddr, bool) {
	if base.PageOffset()+size > vm.PageSize {
		tracing.AddTaskStep(taskID, c, "alignment")
		c.raiseDataFault(taskID, ea, FaultNone, kind)

		return 0, false
	}

	p, fault, _ := c.translate(taskID, base, kind, c.regs.MSR()&MSRDR != 0)
	if fault != FaultNone {
		c.raiseDataFault(taskID, ea, fault, kind)
		return 0, false
	}

	return p, true
}

func (c *Core) raiseDataFault(
	taskID string,
	v vm.VAddr,
	fault Fault,
	kind accessKind,
) {
	c.regs.Set(SPRDAR, uint64(v))
	c.regs.Set(SPRDSISR, fault.DSISR(kind == accessStore))
	tracing.AddTaskStep(taskID, c, "fault")
	c.hook(HookPosDataFault, v, fault)
}

// translate returns the physical address of v. The third result tells if a
// protection fault came from a missing execute permission.
func (c *Core) translate(
	taskID string,
	v vm.VAddr,
	kind accessKind,
	relocate bool,
) (vm.PAddr, Fault, bool) {
	if !relocate {
		return vm.PAddr(v), FaultNone, false
	}

	pid := vm.PID(c.regs.Get(SPRPID))

	pte, hit := c.tlb.Lookup(pid, v)
	if hit {
		tracing.AddTaskStep(taskID, c, "tlb-hit")
	} else {
		tracing.AddTaskStep(taskID, c, "tlb-miss")

		var fault Fault

		pte, fault = c.walker.Walk(v)
		if fault == FaultNone && !pte.Valid {
			fault = FaultNoTranslation
		}

		if fault != FaultNone {
			return 0, fault, false
		}

		c.tlb.Insert(pid, v, pte)
	}

	if fault, noExec := c.checkAccess(pte.Flags, kind); fault != FaultNone {
		return 0, fault, noExec
	}

	return pte.Translate(v), FaultNone, false
}

func (c *Core) checkAccess(flags vm.Flags, kind accessKind) (Fault, bool) {
	msr := c.regs.MSR()

	if flags.Has(vm.PermPrivileged) && msr&MSRPR != 0 {
		return FaultProtection, false
	}

	switch kind {
	case accessLoad:
		if !flags.Has(vm.PermRead) {
			return FaultProtection, false
		}
	case accessStore:
		if !flags.Has(vm.PermWrite) {
			return FaultProtection, false
		}
	case accessFetch:
		if !flags.Has(vm.PermExecute) {
			return FaultProtection, true
		}
	}

	if !flags.Has(vm.StatusReferenced) {
		return FaultRCUpdate, false
	}

	if kind == accessStore && !flags.Has(vm.StatusChanged) {
		return FaultRCUpdate, false
	}

	return FaultNone, false
}

func (c *Core) hook(pos *sim.HookPos, v vm.VAddr, fault Fault) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   v,
		Detail: fault,
	})
}
