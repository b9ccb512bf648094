package vm

import "encoding/binary"

// A Memory holds doublewords that can be accessed in a chosen byte order.
type Memory interface {
	ReadUint64(address uint64, order binary.ByteOrder) (uint64, error)
	WriteUint64(address uint64, value uint64, order binary.ByteOrder) error
}

// EntryAccessor reads and writes table entries. It is the only place that
// knows entries are kept in EntryOrder.
type EntryAccessor struct {
	mem Memory
}

// NewEntryAccessor creates an EntryAccessor on top of the memory.
func NewEntryAccessor(m Memory) EntryAccessor {
	return EntryAccessor{mem: m}
}

// Load reads the raw entry at addr.
func (a EntryAccessor) Load(addr PAddr) (uint64, error) {
	return a.mem.ReadUint64(uint64(addr), EntryOrder)
}

// Store writes the raw entry at addr.
func (a EntryAccessor) Store(addr PAddr, raw uint64) error {
	return a.mem.WriteUint64(uint64(addr), raw, EntryOrder)
}

func entryAddr(table PAddr, index int) PAddr {
	return table + PAddr(index*EntrySize)
}

// LoadPTE reads the index-th entry of a leaf table.
func (a EntryAccessor) LoadPTE(table PAddr, index int) (PTE, error) {
	raw, err := a.Load(entryAddr(table, index))
	if err != nil {
		return PTE{}, err
	}

	return DecodePTE(raw)
}

// StorePTE writes the index-th entry of a leaf table.
func (a EntryAccessor) StorePTE(table PAddr, index int, pte PTE) error {
	return a.Store(entryAddr(table, index), pte.Encode())
}

// LoadDirEntry reads the index-th entry of a directory.
func (a EntryAccessor) LoadDirEntry(dir PAddr, index int) (DirEntry, error) {
	raw, err := a.Load(entryAddr(dir, index))
	if err != nil {
		return DirEntry{}, err
	}

	return DecodeDirEntry(raw)
}

// StoreDirEntry writes the index-th entry of a directory.
func (a EntryAccessor) StoreDirEntry(dir PAddr, index int, e DirEntry) error {
	return a.Store(entryAddr(dir, index), e.Encode())
}

// Process and partition table entries are two doublewords wide.
const tableEntryPairSize = 16

// LoadRootDescriptor reads the root descriptor of a process.
func (a EntryAccessor) LoadRootDescriptor(
	procTable PAddr,
	pid PID,
) (RootDescriptor, error) {
	raw, err := a.Load(procTable + PAddr(uint64(pid)*tableEntryPairSize))
	if err != nil {
		return RootDescriptor{}, err
	}

	return DecodeRootDescriptor(raw), nil
}

// StoreRootDescriptor writes the root descriptor of a process.
func (a EntryAccessor) StoreRootDescriptor(
	procTable PAddr,
	pid PID,
	d RootDescriptor,
) error {
	return a.Store(procTable+PAddr(uint64(pid)*tableEntryPairSize), d.Encode())
}

// LoadPartitionEntry reads the process-table pointer of partition lpid.
func (a EntryAccessor) LoadPartitionEntry(
	partTable PAddr,
	lpid uint32,
) (PartitionEntry, error) {
	raw, err := a.Load(partTable + PAddr(uint64(lpid)*tableEntryPairSize+8))
	if err != nil {
		return PartitionEntry{}, err
	}

	return DecodePartitionEntry(raw), nil
}

// StorePartitionEntry writes the process-table pointer of partition lpid.
func (a EntryAccessor) StorePartitionEntry(
	partTable PAddr,
	lpid uint32,
	e PartitionEntry,
) error {
	return a.Store(
		partTable+PAddr(uint64(lpid)*tableEntryPairSize+8), e.Encode())
}
