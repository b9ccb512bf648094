// Package pagetable builds and maintains the two-level radix tree that the
// translation hardware walks.
package pagetable

import (
	"fmt"
	"sync"

	"github.com/sarchlab/radixmmu/mem"
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/mmu"
	"github.com/sarchlab/radixmmu/sim"
	"github.com/sarchlab/radixmmu/tracing"
)

// Storage is the physical memory that holds the tables.
type Storage interface {
	vm.Memory
	mem.BlockZeroer
}

// An Invalidator drops cached translations.
type Invalidator interface {
	InvalidateAll()
	InvalidatePage(v vm.VAddr)
}

// Manager installs and removes translations for one process. Changes to the
// tree are serialized; Lookup and Mappings may run alongside them.
type Manager struct {
	sim.NamedBase
	sim.HookableBase

	lock sync.RWMutex

	storage     Storage
	entries     vm.EntryAccessor
	spr         mmu.SPRFile
	invalidator Invalidator
	layout      vm.Layout
	pid         vm.PID
	allocator   Allocator
	registry    *Registry

	initialized bool
}

// PID returns the process the manager maps pages for.
func (m *Manager) PID() vm.PID {
	return m.pid
}

// Layout returns the physical placement of the tables.
func (m *Manager) Layout() vm.Layout {
	return m.layout
}

// Initialized tells if Init has completed.
func (m *Manager) Initialized() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.initialized
}

// Init lays out an empty tree, points the hardware at it, and drops every
// cached translation. Init may be called again to start over; leaf tables
// allocated before are not reclaimed.
func (m *Manager) Init() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	taskID := m.startTask("init", "tree")
	defer tracing.EndTask(taskID, m)

	l := m.layout

	err := m.entries.StorePartitionEntry(l.PartitionTable, 0,
		vm.PartitionEntry{ProcessTable: l.ProcessTable})
	if err != nil {
		return fmt.Errorf("writing partition table: %w", err)
	}

	err = mem.ZeroFill(m.storage, uint64(l.ProcessTable), vm.ProcessTableSize)
	if err != nil {
		return fmt.Errorf("clearing process table: %w", err)
	}

	m.spr.Set(mmu.SPRPTCR, uint64(l.PartitionTable))
	m.spr.Set(mmu.SPRPID, uint64(m.pid))

	err = mem.ZeroFill(m.storage, uint64(l.Directory), vm.DirectorySize)
	if err != nil {
		return fmt.Errorf("clearing directory: %w", err)
	}

	err = m.entries.StoreRootDescriptor(l.ProcessTable, m.pid,
		vm.NewRootDescriptor(l.Directory))
	if err != nil {
		return fmt.Errorf("writing root descriptor: %w", err)
	}

	m.invalidator.InvalidateAll()

	m.registry.Clear()
	m.initialized = true

	return nil
}

// Map makes v translate to p with the given flags. The page that holds v
// must not be mapped already.
func (m *Manager) Map(v vm.VAddr, p vm.PAddr, flags vm.Flags) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}

	if !vm.InAddressSpace(v) {
		return fmt.Errorf("%w: %s", ErrOutOfRange, v)
	}

	if err := m.registry.CanAdd(v); err != nil {
		return err
	}

	taskID := m.startTask("map", v.PageBase().String())
	defer tracing.EndTask(taskID, m)

	dirIndex, leafIndex := vm.SplitIndex(v)

	table, err := m.leafTableFor(taskID, dirIndex)
	if err != nil {
		return err
	}

	err = m.entries.StorePTE(table, leafIndex, vm.NewPTE(p, flags))
	if err != nil {
		return fmt.Errorf("writing leaf entry of %s: %w", v, err)
	}

	return m.registry.Add(v)
}

func (m *Manager) leafTableFor(taskID string, dirIndex int) (vm.PAddr, error) {
	dir, err := m.entries.LoadDirEntry(m.layout.Directory, dirIndex)
	if err != nil {
		return 0, fmt.Errorf("reading directory slot %d: %w", dirIndex, err)
	}

	if dir.Valid {
		return dir.Table, nil
	}

	table, err := m.allocator.Alloc()
	if err != nil {
		return 0, err
	}

	tracing.AddTaskStep(taskID, m, "alloc-leaf-table")

	err = mem.ZeroFill(m.storage, uint64(table), vm.LeafTableSize)
	if err != nil {
		return 0, fmt.Errorf("clearing leaf table at %s: %w", table, err)
	}

	err = m.entries.StoreDirEntry(m.layout.Directory, dirIndex,
		vm.NewDirEntry(table))
	if err != nil {
		return 0, fmt.Errorf("writing directory slot %d: %w", dirIndex, err)
	}

	return table, nil
}

// Unmap removes the translation of the page that holds v and drops that
// page, and only that page, from the TLB. Unmapping a page whose directory
// slot is empty does nothing.
func (m *Manager) Unmap(v vm.VAddr) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}

	return m.unmap(v)
}

func (m *Manager) unmap(v vm.VAddr) error {
	taskID := m.startTask("unmap", v.PageBase().String())
	defer tracing.EndTask(taskID, m)

	m.registry.Remove(v)

	if !vm.InAddressSpace(v) {
		return nil
	}

	dirIndex, leafIndex := vm.SplitIndex(v)

	dir, err := m.entries.LoadDirEntry(m.layout.Directory, dirIndex)
	if err != nil {
		return fmt.Errorf("reading directory slot %d: %w", dirIndex, err)
	}

	if !dir.Valid {
		tracing.AddTaskStep(taskID, m, "no-table")
		return nil
	}

	err = m.entries.StorePTE(dir.Table, leafIndex, vm.PTE{})
	if err != nil {
		return fmt.Errorf("clearing leaf entry of %s: %w", v, err)
	}

	m.invalidator.InvalidatePage(v)

	return nil
}

// UnmapAll removes every page mapped since the last UnmapAll.
func (m *Manager) UnmapAll() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}

	taskID := m.startTask("unmap_all", "registry")
	defer tracing.EndTask(taskID, m)

	for _, v := range m.registry.Pages() {
		if err := m.unmap(v); err != nil {
			return err
		}
	}

	m.registry.Clear()

	return nil
}

// Lookup walks the tree in software and returns the leaf entry of v.
func (m *Manager) Lookup(v vm.VAddr) (vm.PTE, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if !m.initialized || !vm.InAddressSpace(v) {
		return vm.PTE{}, false
	}

	dirIndex, leafIndex := vm.SplitIndex(v)

	dir, err := m.entries.LoadDirEntry(m.layout.Directory, dirIndex)
	if err != nil || !dir.Valid {
		return vm.PTE{}, false
	}

	pte, err := m.entries.LoadPTE(dir.Table, leafIndex)
	if err != nil || !pte.Valid {
		return vm.PTE{}, false
	}

	return pte, true
}

// Mappings returns the live pages in mapping order.
func (m *Manager) Mappings() []vm.VAddr {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.registry.Pages()
}

// TablesAllocated returns the number of leaf tables ever allocated.
func (m *Manager) TablesAllocated() int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.allocator.Allocated()
}

func (m *Manager) startTask(what, detail string) string {
	id := sim.GetIDGenerator().Generate()
	tracing.StartTask(id, "", m, "pagetable", what, detail)

	return id
}
