package tlb

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/sim"
)

type hookRecorder struct {
	positions []*sim.HookPos
	items     []interface{}
}

func (h *hookRecorder) Func(ctx sim.HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
	h.items = append(h.items, ctx.Item)
}

var _ = Describe("TLB", func() {
	var (
		tlb *Comp
		pte vm.PTE
	)

	BeforeEach(func() {
		tlb = MakeBuilder().Build("TLB")
		pte = vm.NewPTE(0x8000, vm.DefaultDataFlags)
	})

	It("should use the default geometry", func() {
		Expect(tlb.NumSets()).To(Equal(64))
		Expect(tlb.NumWays()).To(Equal(2))
	})

	It("should refuse an empty geometry", func() {
		Expect(func() {
			MakeBuilder().WithNumWays(0).Build("TLB")
		}).To(Panic())
	})

	It("should miss before a fill and hit after", func() {
		_, found := tlb.Lookup(1, 0x124108)
		Expect(found).To(BeFalse())

		tlb.Insert(1, 0x124108, pte)

		got, found := tlb.Lookup(1, 0x124000)
		Expect(found).To(BeTrue())
		Expect(got).To(Equal(pte))
		Expect(tlb.Stats()).To(Equal(Stats{Hits: 1, Misses: 1, Fills: 1}))
	})

	It("should keep translations of different processes apart", func() {
		tlb.Insert(1, 0x124000, pte)

		_, found := tlb.Lookup(2, 0x124000)
		Expect(found).To(BeFalse())
	})

	Context("when two pages collide in one set", func() {
		BeforeEach(func() {
			Expect(tlb.SetID(0x124000)).To(Equal(tlb.SetID(0x1124000)))

			tlb.Insert(1, 0x124000, pte)
			tlb.Insert(1, 0x1124000, pte)
		})

		It("should keep both resident", func() {
			Expect(tlb.Resident(1, 0x124000)).To(BeTrue())
			Expect(tlb.Resident(1, 0x1124000)).To(BeTrue())
			Expect(tlb.Stats().Evictions).To(BeZero())
		})

		It("should evict the least recently used on a third fill", func() {
			_, found := tlb.Lookup(1, 0x124000)
			Expect(found).To(BeTrue())

			tlb.Insert(1, 0x2124000, pte)

			Expect(tlb.Resident(1, 0x124000)).To(BeTrue())
			Expect(tlb.Resident(1, 0x1124000)).To(BeFalse())
			Expect(tlb.Resident(1, 0x2124000)).To(BeTrue())
			Expect(tlb.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should invalidate only the named page", func() {
			tlb.InvalidatePage(0x124168)

			Expect(tlb.Resident(1, 0x124000)).To(BeFalse())
			Expect(tlb.Resident(1, 0x1124000)).To(BeTrue())
			Expect(tlb.Stats().PageInvalidations).To(Equal(uint64(1)))
		})

		It("should invalidate everything", func() {
			tlb.InvalidateAll()

			Expect(tlb.Snapshot()).To(BeEmpty())
			Expect(tlb.Stats().GlobalInvalidations).To(Equal(uint64(1)))
		})

		It("should list resident entries", func() {
			snapshot := tlb.Snapshot()

			Expect(snapshot).To(HaveLen(2))
			Expect(snapshot[0].Set).To(Equal(0x24))
			Expect([]vm.VAddr{snapshot[0].VAddr, snapshot[1].VAddr}).
				To(ConsistOf(vm.VAddr(0x124000), vm.VAddr(0x1124000)))
		})
	})

	It("should invalidate a page for every process", func() {
		tlb.Insert(1, 0x124000, pte)
		tlb.Insert(2, 0x124000, pte)

		tlb.InvalidatePage(0x124000)

		Expect(tlb.Resident(1, 0x124000)).To(BeFalse())
		Expect(tlb.Resident(2, 0x124000)).To(BeFalse())
	})

	It("should refill in place", func() {
		tlb.Insert(1, 0x124000, pte)
		other := vm.NewPTE(0x9000, vm.PermRead)

		tlb.Insert(1, 0x124000, other)

		got, _ := tlb.Lookup(1, 0x124000)
		Expect(got).To(Equal(other))
		Expect(tlb.Snapshot()).To(HaveLen(1))
	})

	It("should report to hooks", func() {
		h := &hookRecorder{}
		tlb.AcceptHook(h)

		tlb.Lookup(1, 0x124000)
		tlb.Insert(1, 0x124000, pte)
		tlb.Lookup(1, 0x124000)
		tlb.InvalidatePage(0x124010)

		Expect(h.positions).To(Equal([]*sim.HookPos{
			HookPosMiss, HookPosFill, HookPosHit, HookPosInvalidate,
		}))
		Expect(h.items[3]).To(Equal(vm.VAddr(0x124000)))
	})
})
