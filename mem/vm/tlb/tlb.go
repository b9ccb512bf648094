// Package tlb provides a set-associative translation cache.
package tlb

import (
	"sync"

	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/tlb/internal"
	"github.com/sarchlab/radixmmu/sim"
)

// Hook positions of the TLB. The item is the effective address involved.
var (
	HookPosHit        = &sim.HookPos{Name: "TLBHit"}
	HookPosMiss       = &sim.HookPos{Name: "TLBMiss"}
	HookPosFill       = &sim.HookPos{Name: "TLBFill"}
	HookPosEvict      = &sim.HookPos{Name: "TLBEvict"}
	HookPosInvalidate = &sim.HookPos{Name: "TLBInvalidate"}
)

// Stats counts what the TLB has done.
type Stats struct {
	Hits                uint64 `json:"hits"`
	Misses              uint64 `json:"misses"`
	Fills               uint64 `json:"fills"`
	Evictions           uint64 `json:"evictions"`
	PageInvalidations   uint64 `json:"page_invalidations"`
	GlobalInvalidations uint64 `json:"global_invalidations"`
}

// EntryInfo describes one resident translation.
type EntryInfo struct {
	Set   int      `json:"set"`
	Way   int      `json:"way"`
	PID   vm.PID   `json:"pid"`
	VAddr vm.VAddr `json:"vaddr"`
	PTE   string   `json:"pte"`
}

// Comp is a cache(TLB) that maintains some page information.
//
// Every method holds the lock for its whole duration. An invalidation is
// therefore complete, and visible to every later lookup from any goroutine,
// by the time it returns.
type Comp struct {
	sim.NamedBase
	sim.HookableBase
	sync.Mutex

	numSets int
	numWays int

	Sets []internal.Set

	stats Stats
}

func (c *Comp) reset() {
	c.Sets = make([]internal.Set, c.numSets)
	for i := 0; i < c.numSets; i++ {
		c.Sets[i] = internal.NewSet(c.numWays)
	}
}

// NumSets returns the number of sets.
func (c *Comp) NumSets() int {
	return c.numSets
}

// NumWays returns the number of ways per set.
func (c *Comp) NumWays() int {
	return c.numWays
}

// SetID returns the set that v maps to.
func (c *Comp) SetID(v vm.VAddr) int {
	return int(v.PageNumber() % uint64(c.numSets))
}

// Lookup searches for the translation of v in process pid.
func (c *Comp) Lookup(pid vm.PID, v vm.VAddr) (vm.PTE, bool) {
	c.Lock()
	defer c.Unlock()

	setID := c.SetID(v)
	set := c.Sets[setID]

	wayID, entry, found := set.Lookup(pid, v.PageNumber())
	if !found {
		c.stats.Misses++
		c.hook(HookPosMiss, v, nil)

		return vm.PTE{}, false
	}

	set.Visit(wayID)
	c.stats.Hits++
	c.hook(HookPosHit, v, entry.PTE)

	return entry.PTE, true
}

// Insert caches the translation of v, evicting a way if the set is full.
func (c *Comp) Insert(pid vm.PID, v vm.VAddr, pte vm.PTE) {
	c.Lock()
	defer c.Unlock()

	set := c.Sets[c.SetID(v)]
	epn := v.PageNumber()

	wayID, _, found := set.Lookup(pid, epn)
	if !found {
		var ok bool

		wayID, ok = set.Evict()
		if !ok {
			panic("failed to evict")
		}

		victim := set.Entries()[wayID]
		if victim.Valid {
			c.stats.Evictions++
			c.hook(HookPosEvict,
				vm.VAddr(victim.EPN<<vm.Log2PageSize), victim.PTE)
		}
	}

	set.Update(wayID, internal.Entry{
		Valid: true,
		PID:   pid,
		EPN:   epn,
		PTE:   pte,
	})
	set.Visit(wayID)

	c.stats.Fills++
	c.hook(HookPosFill, v, pte)
}

// InvalidatePage removes the translation of the page that holds v, for every
// process.
func (c *Comp) InvalidatePage(v vm.VAddr) {
	c.Lock()
	defer c.Unlock()

	set := c.Sets[c.SetID(v)]
	epn := v.PageNumber()

	for wayID, e := range set.Entries() {
		if e.Valid && e.EPN == epn {
			set.Invalidate(wayID)
		}
	}

	c.stats.PageInvalidations++
	c.hook(HookPosInvalidate, v.PageBase(), "page")
}

// InvalidateAll removes every translation.
func (c *Comp) InvalidateAll() {
	c.Lock()
	defer c.Unlock()

	for _, set := range c.Sets {
		for wayID, e := range set.Entries() {
			if e.Valid {
				set.Invalidate(wayID)
			}
		}
	}

	c.stats.GlobalInvalidations++
	c.hook(HookPosInvalidate, vm.VAddr(0), "all")
}

// Resident tells if the translation of v is cached. It does not count as an
// access.
func (c *Comp) Resident(pid vm.PID, v vm.VAddr) bool {
	c.Lock()
	defer c.Unlock()

	_, _, found := c.Sets[c.SetID(v)].Lookup(pid, v.PageNumber())

	return found
}

// Stats returns a copy of the counters.
func (c *Comp) Stats() Stats {
	c.Lock()
	defer c.Unlock()

	return c.stats
}

// Snapshot lists all resident translations.
func (c *Comp) Snapshot() []EntryInfo {
	c.Lock()
	defer c.Unlock()

	var infos []EntryInfo

	for setID, set := range c.Sets {
		for wayID, e := range set.Entries() {
			if !e.Valid {
				continue
			}

			infos = append(infos, EntryInfo{
				Set:   setID,
				Way:   wayID,
				PID:   e.PID,
				VAddr: vm.VAddr(e.EPN << vm.Log2PageSize),
				PTE:   e.PTE.String(),
			})
		}
	}

	return infos
}

func (c *Comp) hook(pos *sim.HookPos, v vm.VAddr, detail interface{}) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   v,
		Detail: detail,
	})
}
