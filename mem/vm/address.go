// Package vm provides the address types, table entry formats, and the fixed
// physical layout of the two-level radix translation tree.
package vm

import "fmt"

// Log2PageSize is the log2 of the translation granule.
const Log2PageSize = 12

// PageSize is the size of a page in bytes.
const PageSize = 1 << Log2PageSize

// WordSize is the size of a doubleword, the unit the tests access.
const WordSize = 8

// PID stands for Process ID.
type PID uint32

// VAddr is an effective (virtual) address.
type VAddr uint64

// PAddr is a real (physical) address.
type PAddr uint64

// PageBase returns the address of the page that contains v.
func (v VAddr) PageBase() VAddr {
	return v &^ (PageSize - 1)
}

// PageOffset returns the offset of v inside its page.
func (v VAddr) PageOffset() uint64 {
	return uint64(v) & (PageSize - 1)
}

// PageNumber returns the effective page number of v.
func (v VAddr) PageNumber() uint64 {
	return uint64(v) >> Log2PageSize
}

// Word returns the address of the i-th doubleword after v.
func (v VAddr) Word(i uint64) VAddr {
	return v + VAddr(i*WordSize)
}

func (v VAddr) String() string {
	return fmt.Sprintf("0x%x", uint64(v))
}

// PageBase returns the address of the frame that contains p.
func (p PAddr) PageBase() PAddr {
	return p &^ (PageSize - 1)
}

// Word returns the address of the i-th doubleword after p.
func (p PAddr) Word(i uint64) PAddr {
	return p + PAddr(i*WordSize)
}

func (p PAddr) String() string {
	return fmt.Sprintf("0x%x", uint64(p))
}
