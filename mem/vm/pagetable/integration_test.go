package pagetable

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/radixmmu/mem"
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/mmu"
	"github.com/sarchlab/radixmmu/mem/vm/tlb"
)

var _ = Describe("Manager with a translating core", func() {
	var (
		storage *mem.Storage
		t       *tlb.Comp
		core    *mmu.Core
		m       *Manager
	)

	BeforeEach(func() {
		storage = mem.NewStorage(0x100000)
		t = tlb.MakeBuilder().Build("TLB")
		core = mmu.MakeBuilder().
			WithMemory(storage).
			WithTLB(t).
			Build("Core[0]")
		m = MakeBuilder().
			WithStorage(storage).
			WithSPR(core.Registers()).
			WithInvalidator(t).
			Build("PageTable")

		Expect(m.Init()).To(Succeed())
	})

	It("should round trip through a mapping", func() {
		Expect(m.Map(0x14a000, 0x9000, vm.DefaultDataFlags)).To(Succeed())

		Expect(core.AttemptWrite(0x14a000+45*8, 0xfee1800d4ea)).To(BeTrue())
		v, ok := core.AttemptRead(0x14a000+45*8, 0)

		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0xfee1800d4ea)))
	})

	It("should see writes through one alias from the other", func() {
		Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())
		Expect(m.Map(0x1124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())

		Expect(core.AttemptWrite(0x124000+33*8, 0xbadc0ffee)).To(BeTrue())
		v, ok := core.AttemptRead(0x1124000+33*8, 0)

		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0xbadc0ffee)))
	})

	It("should keep two aliases in one set resident together", func() {
		Expect(t.SetID(0x124000)).To(Equal(t.SetID(0x1124000)))
		Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())
		Expect(m.Map(0x1124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())

		core.AttemptRead(0x124000, 0)
		core.AttemptRead(0x1124000, 0)

		Expect(t.Resident(1, 0x124000)).To(BeTrue())
		Expect(t.Resident(1, 0x1124000)).To(BeTrue())
	})

	It("should drop only the unmapped page from the TLB", func() {
		Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())
		Expect(m.Map(0x1124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())
		core.AttemptRead(0x124000, 0)
		core.AttemptRead(0x1124000, 0)

		Expect(m.Unmap(0x124000)).To(Succeed())

		Expect(t.Resident(1, 0x124000)).To(BeFalse())
		Expect(t.Resident(1, 0x1124000)).To(BeTrue())
		Expect(t.Stats().GlobalInvalidations).To(Equal(uint64(1)))

		_, ok := core.AttemptRead(0x124000, 0)
		Expect(ok).To(BeFalse())
		_, ok = core.AttemptRead(0x1124000, 0)
		Expect(ok).To(BeTrue())
	})

	It("should leave nothing translating after UnmapAll", func() {
		Expect(m.Map(0x10b000, 0xa000, vm.DefaultDataFlags)).To(Succeed())
		Expect(m.Map(0x110b000, 0xa000, vm.DefaultDataFlags)).To(Succeed())
		core.AttemptRead(0x10b000, 0)
		core.AttemptRead(0x110b000, 0)

		Expect(m.UnmapAll()).To(Succeed())

		_, ok := core.AttemptRead(0x10b000, 0)
		Expect(ok).To(BeFalse())
		_, ok = core.AttemptRead(0x110b000, 0)
		Expect(ok).To(BeFalse())
		Expect(t.Snapshot()).To(BeEmpty())
	})
})
