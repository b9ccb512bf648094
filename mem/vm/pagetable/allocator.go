package pagetable

import (
	"fmt"

	"github.com/sarchlab/radixmmu/mem/vm"
)

// An Allocator hands out memory for leaf tables.
type Allocator interface {
	// Alloc returns the address of a fresh leaf table. The content of the
	// table is undefined.
	Alloc() (vm.PAddr, error)

	// Allocated returns the number of tables handed out.
	Allocated() int
}

// BumpAllocator carves leaf tables out of a region in address order. Tables
// are never returned.
type BumpAllocator struct {
	next, limit vm.PAddr
	allocated   int
}

// NewBumpAllocator creates an allocator over [start, limit).
func NewBumpAllocator(start, limit vm.PAddr) *BumpAllocator {
	return &BumpAllocator{next: start, limit: limit}
}

// Alloc returns the next table.
func (a *BumpAllocator) Alloc() (vm.PAddr, error) {
	if a.next+vm.LeafTableSize > a.limit {
		return 0, fmt.Errorf("%w: next table at %s, limit %s",
			ErrOutOfTableMemory, a.next, a.limit)
	}

	table := a.next
	a.next += vm.LeafTableSize
	a.allocated++

	return table, nil
}

// Allocated returns the number of tables handed out.
func (a *BumpAllocator) Allocated() int {
	return a.allocated
}

// Next returns where the next table would be placed.
func (a *BumpAllocator) Next() vm.PAddr {
	return a.next
}
