package internal_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/tlb/internal"
)

var _ = Describe("Set", func() {
	var s internal.Set

	BeforeEach(func() {
		s = internal.NewSet(2)
	})

	entry := func(epn uint64) internal.Entry {
		return internal.Entry{
			Valid: true,
			PID:   1,
			EPN:   epn,
			PTE:   vm.NewPTE(0x8000, vm.DefaultDataFlags),
		}
	}

	It("should miss on an empty set", func() {
		_, _, found := s.Lookup(1, 0x124)

		Expect(found).To(BeFalse())
	})

	It("should fill invalid ways first", func() {
		wayID, ok := s.Evict()
		Expect(ok).To(BeTrue())
		s.Update(wayID, entry(0x124))
		s.Visit(wayID)

		second, ok := s.Evict()
		Expect(ok).To(BeTrue())
		Expect(second).NotTo(Equal(wayID))
	})

	It("should hold two entries at once", func() {
		s.Update(0, entry(0x124))
		s.Update(1, entry(0x1124))

		_, e1, found1 := s.Lookup(1, 0x124)
		_, e2, found2 := s.Lookup(1, 0x1124)

		Expect(found1).To(BeTrue())
		Expect(found2).To(BeTrue())
		Expect(e1.EPN).To(Equal(uint64(0x124)))
		Expect(e2.EPN).To(Equal(uint64(0x1124)))
	})

	It("should evict the least recently visited way when full", func() {
		s.Update(0, entry(0x124))
		s.Visit(0)
		s.Update(1, entry(0x1124))
		s.Visit(1)
		s.Visit(0)

		wayID, ok := s.Evict()

		Expect(ok).To(BeTrue())
		Expect(wayID).To(Equal(1))
	})

	It("should forget an invalidated entry", func() {
		s.Update(0, entry(0x124))
		s.Invalidate(0)

		_, _, found := s.Lookup(1, 0x124)
		Expect(found).To(BeFalse())
		Expect(s.Entries()[0].Valid).To(BeFalse())
	})

	It("should drop the old key when a way is refilled", func() {
		s.Update(0, entry(0x124))
		s.Update(0, entry(0x10b))

		_, _, found := s.Lookup(1, 0x124)
		Expect(found).To(BeFalse())
	})
})
