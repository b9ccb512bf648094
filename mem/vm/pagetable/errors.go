package pagetable

import "errors"

// Errors returned by the manager. They report misuse of the manager, not
// translation faults.
var (
	ErrNotInitialized   = errors.New("page table is not initialized")
	ErrOutOfRange       = errors.New("address is outside the translated window")
	ErrAlreadyMapped    = errors.New("address is already mapped")
	ErrRegistryFull     = errors.New("mapping registry is full")
	ErrOutOfTableMemory = errors.New("no memory left for leaf tables")
)
