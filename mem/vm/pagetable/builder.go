package pagetable

import (
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/mmu"
	"github.com/sarchlab/radixmmu/sim"
)

// A Builder can build page-table managers.
type Builder struct {
	storage          Storage
	spr              mmu.SPRFile
	invalidator      Invalidator
	layout           vm.Layout
	pid              vm.PID
	registryCapacity int
	allocator        Allocator
}

// MakeBuilder creates a builder with the default layout, PID 1, and room for
// DefaultRegistryCapacity live mappings.
func MakeBuilder() Builder {
	return Builder{
		layout:           vm.DefaultLayout(),
		pid:              1,
		registryCapacity: DefaultRegistryCapacity,
	}
}

// WithStorage sets the memory that holds the tables.
func (b Builder) WithStorage(s Storage) Builder {
	b.storage = s
	return b
}

// WithSPR sets the register file that PTCR and PID are written to.
func (b Builder) WithSPR(spr mmu.SPRFile) Builder {
	b.spr = spr
	return b
}

// WithInvalidator sets the TLB that is invalidated on changes.
func (b Builder) WithInvalidator(i Invalidator) Builder {
	b.invalidator = i
	return b
}

// WithLayout sets where the tables are placed.
func (b Builder) WithLayout(l vm.Layout) Builder {
	b.layout = l
	return b
}

// WithPID sets the process to map pages for.
func (b Builder) WithPID(pid vm.PID) Builder {
	b.pid = pid
	return b
}

// WithRegistryCapacity sets how many pages can be mapped between two
// UnmapAll calls.
func (b Builder) WithRegistryCapacity(n int) Builder {
	b.registryCapacity = n
	return b
}

// WithAllocator sets where leaf tables come from. If not set, a
// BumpAllocator over the free memory of the layout is used.
func (b Builder) WithAllocator(a Allocator) Builder {
	b.allocator = a
	return b
}

// Build creates a new Manager. The manager must be initialized with Init
// before use.
func (b Builder) Build(name string) *Manager {
	if b.storage == nil || b.spr == nil || b.invalidator == nil {
		panic("a page table needs storage, an SPR file and an invalidator")
	}

	if err := b.layout.Validate(); err != nil {
		panic(err)
	}

	if uint64(b.pid)*16+16 > vm.ProcessTableSize {
		panic("pid does not fit in the process table")
	}

	allocator := b.allocator
	if allocator == nil {
		allocator = NewBumpAllocator(
			b.layout.FreeMemory, b.layout.FreeMemoryLimit)
	}

	return &Manager{
		NamedBase:   sim.MakeNamedBase(name),
		storage:     b.storage,
		entries:     vm.NewEntryAccessor(b.storage),
		spr:         b.spr,
		invalidator: b.invalidator,
		layout:      b.layout,
		pid:         b.pid,
		allocator:   allocator,
		registry:    NewRegistry(b.registryCapacity),
	}
}
