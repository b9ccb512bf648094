package pagetable

import (
	"encoding/binary"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/radixmmu/mem"
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/mmu"
	"github.com/sarchlab/radixmmu/tracing"
)

var _ = Describe("Manager", func() {
	var (
		mockCtrl    *gomock.Controller
		invalidator *MockInvalidator
		storage     *mem.Storage
		regs        *mmu.Registers
		m           *Manager
	)

	rawAt := func(addr uint64) uint64 {
		v, err := storage.ReadUint64(addr, binary.BigEndian)
		Expect(err).NotTo(HaveOccurred())

		return v
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		invalidator = NewMockInvalidator(mockCtrl)
		storage = mem.NewStorage(0x100000)
		regs = mmu.NewRegisters()
		m = MakeBuilder().
			WithStorage(storage).
			WithSPR(regs).
			WithInvalidator(invalidator).
			Build("PageTable")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should refuse to work before Init", func() {
		Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).
			To(MatchError(ErrNotInitialized))
		Expect(m.Unmap(0x124000)).To(MatchError(ErrNotInitialized))
		Expect(m.UnmapAll()).To(MatchError(ErrNotInitialized))
	})

	Context("Init", func() {
		It("should lay out the tree and flush the TLB", func() {
			Expect(storage.Write(0x10000, []byte{1, 2, 3})).To(Succeed())
			Expect(storage.Write(0x12800, []byte{4, 5, 6})).To(Succeed())
			invalidator.EXPECT().InvalidateAll()

			Expect(m.Init()).To(Succeed())

			Expect(rawAt(0x13008)).To(Equal(uint64(0x12000)))
			Expect(rawAt(0x12010)).To(Equal(uint64(0x1000a)))
			Expect(rawAt(0x10000)).To(BeZero())
			Expect(rawAt(0x12800)).To(BeZero())
			Expect(regs.Get(mmu.SPRPTCR)).To(Equal(uint64(0x13000)))
			Expect(regs.Get(mmu.SPRPID)).To(Equal(uint64(1)))
			Expect(m.Initialized()).To(BeTrue())
		})
	})

	Context("after Init", func() {
		BeforeEach(func() {
			invalidator.EXPECT().InvalidateAll()
			Expect(m.Init()).To(Succeed())
		})

		It("should install a directory entry and a leaf entry", func() {
			Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())

			Expect(rawAt(0x10000)).To(Equal(uint64(0x8000000000014009)))
			Expect(rawAt(0x14000 + 0x124*8)).
				To(Equal(uint64(0xc000000000008186)))
			Expect(m.TablesAllocated()).To(Equal(1))
			Expect(m.Mappings()).To(Equal([]vm.VAddr{0x124000}))
		})

		It("should share a leaf table within one directory slot", func() {
			Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())
			Expect(m.Map(0x14a000, 0x9000, vm.DefaultDataFlags)).To(Succeed())

			Expect(m.TablesAllocated()).To(Equal(1))
		})

		It("should give each directory slot its own leaf table", func() {
			Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())
			Expect(m.Map(0x1124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())

			Expect(m.TablesAllocated()).To(Equal(2))
			Expect(rawAt(0x10000 + 8*8)).To(Equal(uint64(0x8000000000015009)))
		})

		It("should clear a fresh leaf table", func() {
			Expect(storage.WriteUint64(0x14000+8, 0xffff, binary.BigEndian)).
				To(Succeed())

			Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())

			Expect(rawAt(0x14000 + 8)).To(BeZero())
		})

		It("should reject addresses outside the window", func() {
			Expect(m.Map(0x80000000, 0x8000, vm.DefaultDataFlags)).
				To(MatchError(ErrOutOfRange))
		})

		It("should reject mapping a live page twice", func() {
			Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())

			Expect(m.Map(0x124008, 0x9000, vm.DefaultDataFlags)).
				To(MatchError(ErrAlreadyMapped))
			Expect(m.Mappings()).To(HaveLen(1))
		})

		It("should reject mappings past the registry capacity", func() {
			for i := 0; i < DefaultRegistryCapacity; i++ {
				v := vm.VAddr(0x100000 + i*vm.PageSize)
				Expect(m.Map(v, 0x8000, vm.DefaultDataFlags)).To(Succeed())
			}

			err := m.Map(0x200000, 0x8000, vm.DefaultDataFlags)

			Expect(err).To(MatchError(ErrRegistryFull))
			Expect(m.Mappings()).To(HaveLen(DefaultRegistryCapacity))
			_, found := m.Lookup(0x200000)
			Expect(found).To(BeFalse())
		})

		It("should unmap with a scoped invalidation only", func() {
			Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())
			invalidator.EXPECT().InvalidatePage(vm.VAddr(0x124000))

			Expect(m.Unmap(0x124000)).To(Succeed())

			Expect(rawAt(0x14000 + 0x124*8)).To(BeZero())
			Expect(m.Mappings()).To(BeEmpty())
			_, found := m.Lookup(0x124000)
			Expect(found).To(BeFalse())
		})

		It("should do nothing when the directory slot is empty", func() {
			Expect(m.Unmap(0x1124000)).To(Succeed())
		})

		It("should be idempotent in UnmapAll", func() {
			Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())
			Expect(m.Map(0x1124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())
			invalidator.EXPECT().InvalidatePage(vm.VAddr(0x124000))
			invalidator.EXPECT().InvalidatePage(vm.VAddr(0x1124000))

			Expect(m.UnmapAll()).To(Succeed())
			Expect(m.UnmapAll()).To(Succeed())

			Expect(m.Mappings()).To(BeEmpty())
			_, found := m.Lookup(0x124000)
			Expect(found).To(BeFalse())
			_, found = m.Lookup(0x1124000)
			Expect(found).To(BeFalse())
		})

		It("should find mapped pages in a software walk", func() {
			Expect(m.Map(0x10b000, 0xa000, vm.DefaultDataFlags)).To(Succeed())

			pte, found := m.Lookup(0x10b0d8)

			Expect(found).To(BeTrue())
			Expect(pte.Translate(0x10b0d8)).To(Equal(vm.PAddr(0xa0d8)))
		})

		It("should report allocation steps to tracers", func() {
			tracer := tracing.NewStepCountTracer(tracing.KindIs("pagetable"))
			tracing.CollectTrace(m, tracer)

			Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())
			Expect(m.Map(0x14a000, 0x9000, vm.DefaultDataFlags)).To(Succeed())

			Expect(tracer.GetStepCount("alloc-leaf-table")).To(Equal(uint64(1)))
		})
	})
})

var _ = Describe("Manager with a mocked allocator", func() {
	var (
		mockCtrl    *gomock.Controller
		invalidator *MockInvalidator
		allocator   *MockAllocator
		m           *Manager
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		invalidator = NewMockInvalidator(mockCtrl)
		allocator = NewMockAllocator(mockCtrl)
		m = MakeBuilder().
			WithStorage(mem.NewStorage(0x100000)).
			WithSPR(mmu.NewRegisters()).
			WithInvalidator(invalidator).
			WithAllocator(allocator).
			WithRegistryCapacity(8).
			Build("PageTable")

		invalidator.EXPECT().InvalidateAll()
		Expect(m.Init()).To(Succeed())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should leave nothing registered when out of table memory", func() {
		allocator.EXPECT().Alloc().Return(vm.PAddr(0), ErrOutOfTableMemory)

		err := m.Map(0x124000, 0x8000, vm.DefaultDataFlags)

		Expect(errors.Is(err, ErrOutOfTableMemory)).To(BeTrue())
		Expect(m.Mappings()).To(BeEmpty())
	})

	It("should use the table the allocator hands out", func() {
		allocator.EXPECT().Alloc().Return(vm.PAddr(0x40000), nil)
		allocator.EXPECT().Allocated().Return(1)

		Expect(m.Map(0x124000, 0x8000, vm.DefaultDataFlags)).To(Succeed())

		pte, found := m.Lookup(0x124000)
		Expect(found).To(BeTrue())
		Expect(pte.Frame).To(Equal(vm.PAddr(0x8000)))
		Expect(m.TablesAllocated()).To(Equal(1))
	})
})
