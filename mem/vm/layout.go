package vm

import (
	"errors"
	"fmt"
)

// Sizes of the fixed regions.
const (
	PartitionTableSize = 4096
	ProcessTableSize   = 4096
)

// ErrBadLayout is returned when a layout cannot hold the translation tree.
var ErrBadLayout = errors.New("invalid physical layout")

// Layout is the physical placement of the translation tree. The three
// top-level tables never move after initialization. Leaf tables are carved
// from [FreeMemory, FreeMemoryLimit).
type Layout struct {
	Directory       PAddr
	ProcessTable    PAddr
	PartitionTable  PAddr
	FreeMemory      PAddr
	FreeMemoryLimit PAddr
}

// DefaultLayout returns the layout the firmware and linker agree on.
func DefaultLayout() Layout {
	return Layout{
		Directory:       0x10000,
		ProcessTable:    0x12000,
		PartitionTable:  0x13000,
		FreeMemory:      0x14000,
		FreeMemoryLimit: 0x100000,
	}
}

type region struct {
	name       string
	start, end PAddr
}

// Validate checks that every table is aligned to its own size and that no
// two regions overlap.
func (l Layout) Validate() error {
	regions := []region{
		{"directory", l.Directory, l.Directory + DirectorySize},
		{"process table", l.ProcessTable, l.ProcessTable + ProcessTableSize},
		{"partition table", l.PartitionTable,
			l.PartitionTable + PartitionTableSize},
		{"free memory", l.FreeMemory, l.FreeMemoryLimit},
	}

	for _, r := range regions {
		size := r.end - r.start
		if r.end <= r.start {
			return fmt.Errorf("%w: %s is empty", ErrBadLayout, r.name)
		}

		if r.name != "free memory" && r.start%size != 0 {
			return fmt.Errorf("%w: %s at %s is not aligned to %d",
				ErrBadLayout, r.name, r.start, size)
		}
	}

	if l.FreeMemory%LeafTableSize != 0 {
		return fmt.Errorf("%w: free memory at %s is not page aligned",
			ErrBadLayout, l.FreeMemory)
	}

	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			a, b := regions[i], regions[j]
			if a.start < b.end && b.start < a.end {
				return fmt.Errorf("%w: %s overlaps %s",
					ErrBadLayout, a.name, b.name)
			}
		}
	}

	return nil
}
