package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// EntryOrder is the byte order the hardware walker reads table entries in.
// It does not depend on the order data is accessed with.
var EntryOrder binary.ByteOrder = binary.BigEndian

// DataOrder is the byte order ordinary loads and stores use.
var DataOrder binary.ByteOrder = binary.LittleEndian

const (
	entryValid = uint64(1) << 63
	entryLeaf  = uint64(1) << 62

	leafFrameMask = uint64(0x00fffffffffff000)
	nextLevelMask = uint64(0x00ffffffffffff00)
	sizeFieldMask = uint64(0x1f)

	rootBaseMask = uint64(0x0fffffffffffff00)
	rtsHighShift = 61
	rtsHighMask  = uint64(0x3) << rtsHighShift
	rtsLowShift  = 5
	rtsLowMask   = uint64(0x7) << rtsLowShift
)

// ErrNotLeaf is returned when a valid entry at the leaf level does not carry
// the leaf bit.
var ErrNotLeaf = errors.New("entry is not a leaf")

// ErrUnexpectedLeaf is returned when a directory entry carries the leaf bit.
// Large pages are not supported.
var ErrUnexpectedLeaf = errors.New("directory entry is a leaf")

// A PTE is a leaf entry. It maps one page to one frame.
type PTE struct {
	Valid bool
	Frame PAddr
	Flags Flags
}

// NewPTE creates a valid leaf entry for the frame that holds p.
func NewPTE(p PAddr, flags Flags) PTE {
	return PTE{
		Valid: true,
		Frame: PAddr(uint64(p) & leafFrameMask),
		Flags: flags & flagsMask,
	}
}

// Encode packs the entry into its wire format. An invalid entry encodes to
// zero.
func (e PTE) Encode() uint64 {
	if !e.Valid {
		return 0
	}

	return entryValid | entryLeaf |
		(uint64(e.Frame) & leafFrameMask) |
		uint64(e.Flags&flagsMask)
}

// Translate returns the physical address of v through this entry.
func (e PTE) Translate(v VAddr) PAddr {
	return e.Frame | PAddr(v.PageOffset())
}

func (e PTE) String() string {
	if !e.Valid {
		return "absent"
	}

	return fmt.Sprintf("%s %s", e.Frame, e.Flags)
}

// DecodePTE unpacks a leaf entry.
func DecodePTE(raw uint64) (PTE, error) {
	if raw&entryValid == 0 {
		return PTE{}, nil
	}

	if raw&entryLeaf == 0 {
		return PTE{}, fmt.Errorf("%w: 0x%016x", ErrNotLeaf, raw)
	}

	return PTE{
		Valid: true,
		Frame: PAddr(raw & leafFrameMask),
		Flags: Flags(raw) & flagsMask,
	}, nil
}

// A DirEntry references one child leaf table.
type DirEntry struct {
	Valid bool
	Table PAddr

	// SizeClass is the log2 of the number of entries in the child table.
	SizeClass uint8
}

// NewDirEntry creates a valid directory entry that owns the given leaf table.
func NewDirEntry(table PAddr) DirEntry {
	return DirEntry{
		Valid:     true,
		Table:     table,
		SizeClass: LeafIndexBits,
	}
}

// Encode packs the entry into its wire format.
func (e DirEntry) Encode() uint64 {
	if !e.Valid {
		return 0
	}

	return entryValid |
		(uint64(e.Table) & nextLevelMask) |
		(uint64(e.SizeClass) & sizeFieldMask)
}

// DecodeDirEntry unpacks a directory entry.
func DecodeDirEntry(raw uint64) (DirEntry, error) {
	if raw&entryValid == 0 {
		return DirEntry{}, nil
	}

	if raw&entryLeaf != 0 {
		return DirEntry{}, fmt.Errorf("%w: 0x%016x", ErrUnexpectedLeaf, raw)
	}

	return DirEntry{
		Valid:     true,
		Table:     PAddr(raw & nextLevelMask),
		SizeClass: uint8(raw & sizeFieldMask),
	}, nil
}

// A RootDescriptor is the first doubleword of a process-table entry. It
// locates the directory and sizes the address space.
type RootDescriptor struct {
	Directory PAddr

	// RTS encodes the address space size as 2^(RTS+31) bytes.
	RTS uint8

	// RPDS is the log2 of the number of directory entries.
	RPDS uint8
}

// NewRootDescriptor creates the descriptor for a 2 GiB space with a
// 1024-entry directory.
func NewRootDescriptor(dir PAddr) RootDescriptor {
	return RootDescriptor{
		Directory: dir,
		RTS:       AddressSpaceBits - 31,
		RPDS:      DirIndexBits,
	}
}

// Encode packs the descriptor into its wire format.
func (d RootDescriptor) Encode() uint64 {
	rts := uint64(d.RTS)

	return ((rts >> 3) << rtsHighShift & rtsHighMask) |
		(uint64(d.Directory) & rootBaseMask) |
		((rts & 0x7) << rtsLowShift & rtsLowMask) |
		(uint64(d.RPDS) & sizeFieldMask)
}

// IsZero tells if the descriptor is empty. An empty descriptor translates
// nothing.
func (d RootDescriptor) IsZero() bool {
	return d == RootDescriptor{}
}

// AddressSpaceSize returns the number of bytes the descriptor covers.
func (d RootDescriptor) AddressSpaceSize() uint64 {
	return uint64(1) << (uint64(d.RTS) + 31)
}

// DecodeRootDescriptor unpacks a process-table entry.
func DecodeRootDescriptor(raw uint64) RootDescriptor {
	rts := ((raw & rtsHighMask) >> rtsHighShift << 3) |
		((raw & rtsLowMask) >> rtsLowShift)

	return RootDescriptor{
		Directory: PAddr(raw & rootBaseMask),
		RTS:       uint8(rts),
		RPDS:      uint8(raw & sizeFieldMask),
	}
}

// A PartitionEntry is the second doubleword of a partition-table entry. It
// locates the process table.
type PartitionEntry struct {
	ProcessTable PAddr

	// PRTS encodes the process table size as 2^(PRTS+12) bytes.
	PRTS uint8
}

// Encode packs the entry into its wire format.
func (e PartitionEntry) Encode() uint64 {
	return (uint64(e.ProcessTable) & rootBaseMask &^ 0xfff) |
		(uint64(e.PRTS) & sizeFieldMask)
}

// DecodePartitionEntry unpacks a partition-table entry.
func DecodePartitionEntry(raw uint64) PartitionEntry {
	return PartitionEntry{
		ProcessTable: PAddr(raw & rootBaseMask &^ 0xfff),
		PRTS:         uint8(raw & sizeFieldMask),
	}
}
