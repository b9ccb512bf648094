package pagetable

import (
	"fmt"

	"github.com/sarchlab/radixmmu/mem/vm"
)

// DefaultRegistryCapacity is the number of live mappings a manager can track
// unless configured otherwise.
const DefaultRegistryCapacity = 4

// A Registry remembers the pages mapped since the last UnmapAll, in mapping
// order.
type Registry struct {
	capacity int
	pages    []vm.VAddr
}

// NewRegistry creates an empty registry.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		panic("registry capacity must be positive")
	}

	return &Registry{
		capacity: capacity,
		pages:    make([]vm.VAddr, 0, capacity),
	}
}

// Cap returns how many pages the registry can hold.
func (r *Registry) Cap() int {
	return r.capacity
}

// Len returns how many pages the registry holds.
func (r *Registry) Len() int {
	return len(r.pages)
}

// Contains tells if the page holding v is registered.
func (r *Registry) Contains(v vm.VAddr) bool {
	return r.indexOf(v) >= 0
}

func (r *Registry) indexOf(v vm.VAddr) int {
	page := v.PageBase()
	for i, p := range r.pages {
		if p == page {
			return i
		}
	}

	return -1
}

// CanAdd returns the error Add would return, without adding.
func (r *Registry) CanAdd(v vm.VAddr) error {
	if r.Contains(v) {
		return fmt.Errorf("%w: %s", ErrAlreadyMapped, v.PageBase())
	}

	if len(r.pages) >= r.capacity {
		return fmt.Errorf("%w: %d pages", ErrRegistryFull, r.capacity)
	}

	return nil
}

// Add registers the page holding v.
func (r *Registry) Add(v vm.VAddr) error {
	if err := r.CanAdd(v); err != nil {
		return err
	}

	r.pages = append(r.pages, v.PageBase())

	return nil
}

// Remove forgets the page holding v. It tells if the page was registered.
func (r *Registry) Remove(v vm.VAddr) bool {
	i := r.indexOf(v)
	if i < 0 {
		return false
	}

	r.pages = append(r.pages[:i], r.pages[i+1:]...)

	return true
}

// Pages returns the registered pages in mapping order.
func (r *Registry) Pages() []vm.VAddr {
	return append([]vm.VAddr(nil), r.pages...)
}

// Clear forgets all pages.
func (r *Registry) Clear() {
	r.pages = r.pages[:0]
}
