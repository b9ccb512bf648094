package mmutest

import (
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/mmu"
)

// Catalog returns the data-access tests in the order they run.
func Catalog() []Test {
	return []Test{
		{Number: 1, Name: "unmapped access", Body: unmappedAccess},
		{Number: 2, Name: "read miss then hit", Body: readMissThenHit},
		{Number: 3, Name: "unmap then re-fault", Body: unmapThenRefault},
		{Number: 4, Name: "write through aliases", Body: writeThroughAliases},
	}
}

const (
	poison    = uint64(0xdeadbeefd00d)
	altPoison = uint64(0xdeadbeefd0d0)
)

// A read from a page that was never mapped faults, leaves the poison in
// place, and reports the exact address.
func unmappedAccess(env *Env) (int, error) {
	const v = vm.VAddr(0x123000)

	val, ok := env.Probe.AttemptRead(v, poison)
	if ok {
		return 1, nil
	}

	if val != poison {
		return 2, nil
	}

	if env.SPR.Get(mmu.SPRDAR) != uint64(v) ||
		env.SPR.Get(mmu.SPRDSISR) != uint64(mmu.FaultNoTranslation) {
		return 3, nil
	}

	return 0, nil
}

// Two aliases of one frame fall into one TLB set. Both must be served, and
// the first must still hit after the second is filled.
func readMissThenHit(env *Env) (int, error) {
	const (
		frame = vm.PAddr(0x8000)
		a     = vm.VAddr(0x124000)
		b     = vm.VAddr(0x1124000)
		word  = 33
		value = uint64(0xbadc0ffee)
	)

	if err := env.PageTable.Map(a, frame, vm.DefaultDataFlags); err != nil {
		return 0, err
	}

	if err := env.PokePhys(frame.Word(word), value); err != nil {
		return 0, err
	}

	val, ok := env.Probe.AttemptRead(a.Word(word), poison)
	if !ok {
		return 1, nil
	}

	if val != value {
		return 2, nil
	}

	if err := env.PageTable.Map(b, frame, vm.DefaultDataFlags); err != nil {
		return 0, err
	}

	val, ok = env.Probe.AttemptRead(b.Word(word), poison)
	if !ok {
		return 3, nil
	}

	if val != value {
		return 4, nil
	}

	val, ok = env.Probe.AttemptRead(a.Word(word), poison)
	if !ok {
		return 5, nil
	}

	if val != value {
		return 6, nil
	}

	return 0, nil
}

// After an unmap the cached translation must be gone, so the same word
// faults again with its exact address.
func unmapThenRefault(env *Env) (int, error) {
	const (
		frame = vm.PAddr(0x9000)
		a     = vm.VAddr(0x14a000)
		word  = 45
		value = uint64(0xfee1800d4ea)
	)

	if err := env.PageTable.Map(a, frame, vm.DefaultDataFlags); err != nil {
		return 0, err
	}

	if err := env.PokePhys(frame.Word(word), value); err != nil {
		return 0, err
	}

	val, ok := env.Probe.AttemptRead(a.Word(word), altPoison)
	if !ok {
		return 1, nil
	}

	if val != value {
		return 2, nil
	}

	if err := env.PageTable.Unmap(a); err != nil {
		return 0, err
	}

	val, ok = env.Probe.AttemptRead(a.Word(word), altPoison)
	if ok {
		return 3, nil
	}

	if val != altPoison {
		return 4, nil
	}

	if env.SPR.Get(mmu.SPRDAR) != uint64(a.Word(word)) ||
		env.SPR.Get(mmu.SPRDSISR) != uint64(mmu.FaultNoTranslation) {
		return 5, nil
	}

	return 0, nil
}

// Stores through either alias land in the shared frame, and a load through
// the first alias sees the store made through the second.
func writeThroughAliases(env *Env) (int, error) {
	const (
		frame  = vm.PAddr(0xa000)
		a      = vm.VAddr(0x10b000)
		b      = vm.VAddr(0x110b000)
		word   = 27
		first  = uint64(0xe44badc0ffee)
		second = uint64(0x6e11ae)
	)

	if err := env.PageTable.Map(a, frame, vm.DefaultDataFlags); err != nil {
		return 0, err
	}

	if err := env.PokePhys(frame.Word(word), 0xf00f00f00f00); err != nil {
		return 0, err
	}

	if !env.Probe.AttemptWrite(a.Word(word), first) {
		return 1, nil
	}

	if got, err := env.PeekPhys(frame.Word(word)); err != nil {
		return 0, err
	} else if got != first {
		return 2, nil
	}

	if err := env.PageTable.Map(b, frame, vm.DefaultDataFlags); err != nil {
		return 0, err
	}

	if !env.Probe.AttemptWrite(b.Word(word), second) {
		return 3, nil
	}

	if got, err := env.PeekPhys(frame.Word(word)); err != nil {
		return 0, err
	} else if got != second {
		return 4, nil
	}

	val, ok := env.Probe.AttemptRead(a.Word(word), poison)
	if !ok {
		return 5, nil
	}

	if val != second {
		return 6, nil
	}

	return 0, nil
}
