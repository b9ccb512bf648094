// Package internal provides the definition required for defining TLB.
package internal

import (
	"sort"

	"github.com/sarchlab/radixmmu/mem/vm"
)

// An Entry is one cached translation.
type Entry struct {
	Valid bool
	PID   vm.PID
	EPN   uint64
	PTE   vm.PTE
}

// A Set holds a certain number of ways.
type Set interface {
	Lookup(pid vm.PID, epn uint64) (wayID int, entry Entry, found bool)
	Update(wayID int, entry Entry)
	Evict() (wayID int, ok bool)
	Visit(wayID int)
	Invalidate(wayID int)
	Entries() []Entry
}

// NewSet creates a new TLB set.
func NewSet(numWays int) Set {
	if numWays <= 0 {
		panic("a set must have at least one way")
	}

	s := &setImpl{}
	s.blocks = make([]*block, numWays)
	s.visitList = make([]*block, 0, numWays)
	s.keyWayIDMap = make(map[key]int)

	for i := range s.blocks {
		b := &block{wayID: i}
		s.blocks[i] = b
		s.Visit(i)
	}

	return s
}

type key struct {
	pid vm.PID
	epn uint64
}

type block struct {
	entry     Entry
	wayID     int
	lastVisit uint64
}

type setImpl struct {
	blocks      []*block
	keyWayIDMap map[key]int
	visitList   []*block
	visitCount  uint64
}

func (s *setImpl) Lookup(pid vm.PID, epn uint64) (
	wayID int,
	entry Entry,
	found bool,
) {
	wayID, ok := s.keyWayIDMap[key{pid, epn}]
	if !ok {
		return 0, Entry{}, false
	}

	block := s.blocks[wayID]

	return block.wayID, block.entry, true
}

func (s *setImpl) Update(wayID int, entry Entry) {
	block := s.blocks[wayID]
	if block.entry.Valid {
		delete(s.keyWayIDMap, key{block.entry.PID, block.entry.EPN})
	}

	block.entry = entry
	if entry.Valid {
		s.keyWayIDMap[key{entry.PID, entry.EPN}] = wayID
	}
}

// Evict picks the way to refill. An invalid way is always preferred over the
// least recently visited one.
func (s *setImpl) Evict() (wayID int, ok bool) {
	for _, b := range s.blocks {
		if !b.entry.Valid {
			return b.wayID, true
		}
	}

	if len(s.visitList) == 0 {
		return 0, false
	}

	return s.visitList[0].wayID, true
}

func (s *setImpl) Visit(wayID int) {
	block := s.blocks[wayID]

	for i, b := range s.visitList {
		if b.wayID == wayID {
			s.visitList = append(s.visitList[:i], s.visitList[i+1:]...)
			break
		}
	}

	s.visitCount++
	block.lastVisit = s.visitCount

	index := sort.Search(len(s.visitList), func(i int) bool {
		return s.visitList[i].lastVisit > block.lastVisit
	})

	s.visitList = append(s.visitList, nil)
	copy(s.visitList[index+1:], s.visitList[index:])
	s.visitList[index] = block
}

func (s *setImpl) Invalidate(wayID int) {
	s.Update(wayID, Entry{})
}

func (s *setImpl) Entries() []Entry {
	entries := make([]Entry, len(s.blocks))
	for i, b := range s.blocks {
		entries[i] = b.entry
	}

	return entries
}
