package mmu

import (
	"errors"

	"github.com/sarchlab/radixmmu/mem/vm"
)

const ptcrBaseMask = uint64(0x0ffffffffffff000)

// smallest and largest number of index bits a table level may use
const (
	minLevelBits = 5
	maxLevelBits = 16
)

// A Walker translates addresses by reading the radix tree from memory. It
// holds no cached state; every walk starts again from PTCR.
type Walker struct {
	entries vm.EntryAccessor
	spr     SPRFile
}

// NewWalker creates a walker that reads table entries from m and the tree
// root from spr.
func NewWalker(m vm.Memory, spr SPRFile) Walker {
	return Walker{
		entries: vm.NewEntryAccessor(m),
		spr:     spr,
	}
}

// Walk returns the leaf entry that maps v for the current PID. The returned
// entry is only meaningful when the fault is FaultNone. For a leaf above the
// last level, the frame already includes the page bits taken from v.
func (w Walker) Walk(v vm.VAddr) (vm.PTE, Fault) {
	partTable := vm.PAddr(w.spr.Get(SPRPTCR) & ptcrBaseMask)

	part, err := w.entries.LoadPartitionEntry(partTable, 0)
	if err != nil {
		return vm.PTE{}, FaultBadTree
	}

	pid := vm.PID(w.spr.Get(SPRPID))

	root, err := w.entries.LoadRootDescriptor(part.ProcessTable, pid)
	if err != nil {
		return vm.PTE{}, FaultBadTree
	}

	if root.IsZero() {
		return vm.PTE{}, FaultNoTranslation
	}

	if uint64(v) >= root.AddressSpaceSize() {
		return vm.PTE{}, FaultNoTranslation
	}

	return w.walkFrom(v, root)
}

func (w Walker) walkFrom(v vm.VAddr, root vm.RootDescriptor) (vm.PTE, Fault) {
	shift := int(root.RTS) + 31
	table := root.Directory
	bits := int(root.RPDS)

	for {
		if bits < minLevelBits || bits > maxLevelBits ||
			shift-bits < vm.Log2PageSize {
			return vm.PTE{}, FaultBadTree
		}

		shift -= bits
		index := int((uint64(v) >> shift) & (uint64(1)<<bits - 1))

		dir, err := w.entries.LoadDirEntry(table, index)
		if errors.Is(err, vm.ErrUnexpectedLeaf) {
			return w.leaf(v, table, index, shift)
		}

		if err != nil {
			return vm.PTE{}, FaultBadTree
		}

		if !dir.Valid {
			return vm.PTE{}, FaultNoTranslation
		}

		table = dir.Table
		bits = int(dir.SizeClass)
	}
}

func (w Walker) leaf(
	v vm.VAddr,
	table vm.PAddr,
	index int,
	shift int,
) (vm.PTE, Fault) {
	pte, err := w.entries.LoadPTE(table, index)
	if err != nil {
		return vm.PTE{}, FaultBadTree
	}

	if shift > vm.Log2PageSize {
		span := uint64(1)<<shift - 1
		pte.Frame = vm.PAddr(uint64(pte.Frame)&^span |
			uint64(v)&span&^(vm.PageSize-1))
	}

	return pte, FaultNone
}
