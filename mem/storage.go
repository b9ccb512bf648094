// Package mem provides the physical memory model that page tables and data
// live in.
package mem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// BlockSize is the size of a cache block. A block-zero operation clears
// exactly one block.
const BlockSize = 64

// ErrOutOfCapacity is returned when an access falls outside the storage.
var ErrOutOfCapacity = errors.New(
	"accessing physical address beyond the storage capacity")

// ErrUnalignedBlock is returned when a block operation is not aligned to
// BlockSize.
var ErrUnalignedBlock = errors.New("block address is not aligned")

// A Storage keeps the physical memory of the modeled system.
//
// The storage implementation manages the storage in units. The unit is
// similar to the concept of page in memory management. For the units that
// are not touched by Write function, no memory will be allocated. A Storage
// is safe for concurrent use.
type Storage struct {
	lock     sync.RWMutex
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte

	numBlockZeros uint64
}

// NewStorage creates a storage object with the specified capacity
func NewStorage(capacity uint64) *Storage {
	storage := new(Storage)

	storage.unitSize = 4096
	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

// Capacity returns the number of bytes that the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// NumBlockZeros returns how many block-zero operations have been performed.
func (s *Storage) NumBlockZeros() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.numBlockZeros
}

func (s *Storage) mustBeInRange(address, length uint64) error {
	if address+length < address || address+length > s.capacity {
		return fmt.Errorf("%w: 0x%x+%d", ErrOutOfCapacity, address, length)
	}

	return nil
}

// createOrGetStorageUnit retrieves a storage unit if the unit has been created
// before. Otherwise it initilizes a storage unit in the storage object
func (s *Storage) createOrGetStorageUnit(address uint64) []byte {
	baseAddr, _ := s.parseAddress(address)

	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

// getStorageUnit returns nil if the unit has never been written.
func (s *Storage) getStorageUnit(address uint64) []byte {
	baseAddr, _ := s.parseAddress(address)

	return s.data[baseAddr]
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// Read returns length bytes starting at address. Bytes never written read
// as zero.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	if err := s.mustBeInRange(address, length); err != nil {
		return nil, err
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	currAddr := address
	lenLeft := length
	dataOffset := uint64(0)
	res := make([]byte, length)

	for lenLeft > 0 {
		baseAddr, inUnitAddr := s.parseAddress(currAddr)

		lenToRead := min(lenLeft, baseAddr+s.unitSize-currAddr)

		if unit := s.getStorageUnit(currAddr); unit != nil {
			copy(res[dataOffset:dataOffset+lenToRead],
				unit[inUnitAddr:inUnitAddr+lenToRead])
		}

		lenLeft -= lenToRead
		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return res, nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	if err := s.mustBeInRange(address, uint64(len(data))); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < uint64(len(data)) {
		unit := s.createOrGetStorageUnit(currAddr)
		baseAddr, inUnitAddr := s.parseAddress(currAddr)

		lenToWrite := min(
			uint64(len(data))-dataOffset,
			baseAddr+s.unitSize-currAddr,
		)

		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])

		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}

// ReadUint64 reads one doubleword in the given byte order.
func (s *Storage) ReadUint64(
	address uint64,
	order binary.ByteOrder,
) (uint64, error) {
	buf, err := s.Read(address, 8)
	if err != nil {
		return 0, err
	}

	return order.Uint64(buf), nil
}

// WriteUint64 writes one doubleword in the given byte order.
func (s *Storage) WriteUint64(
	address uint64,
	value uint64,
	order binary.ByteOrder,
) error {
	buf := make([]byte, 8)
	order.PutUint64(buf, value)

	return s.Write(address, buf)
}

// ZeroBlock clears one BlockSize-aligned block. Blocks never straddle a
// storage unit since the unit size is a multiple of BlockSize.
func (s *Storage) ZeroBlock(address uint64) error {
	if address%BlockSize != 0 {
		return fmt.Errorf("%w: 0x%x", ErrUnalignedBlock, address)
	}

	if err := s.mustBeInRange(address, BlockSize); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	unit := s.createOrGetStorageUnit(address)
	_, inUnitAddr := s.parseAddress(address)
	clear(unit[inUnitAddr : inUnitAddr+BlockSize])

	s.numBlockZeros++

	return nil
}
